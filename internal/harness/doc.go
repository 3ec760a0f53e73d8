// Package harness provides conformance testing for the patch engine.
//
// The harness builds a fixed fixture world, registers the mixins a
// scenario declares, weaves, invokes the scenario's flow, and renders the
// weave report plus the runtime trace as deterministic plain text for
// golden comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	run_token: "test-run-0001"
//	strict_match: false
//	mixins:
//	  - name: logging
//	    target: Counter
//	    requires: []
//	    conflicts: []
//	    decls:
//	      - name: head_trace
//	        method: Increment
//	        handler: trace
//	        inject: {at: HEAD, priority: 100}
//	flow:
//	  - type: Counter
//	    method: Increment
//	    args: [5]
//
// Handler, condition, call, and transform names resolve against the
// fixture table in fixture.go; a scenario can only reference what the
// fixture provides. Every fixture handler writes to the recorder, so the
// trace shows exactly which handlers fired and in what order.
package harness
