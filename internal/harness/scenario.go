package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance test: mixins to register, a flow of
// invocations, and a fixed run token for deterministic reports.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// RunToken is the fixed run token. Defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// StrictMatch turns unmatched injection patterns into spec failures.
	StrictMatch bool `yaml:"strict_match,omitempty"`

	// Mixins are registered in list order before weaving.
	Mixins []MixinDecl `yaml:"mixins"`

	// Flow is invoked against the woven world, in order.
	Flow []FlowStep `yaml:"flow"`
}

// MixinDecl declares one mixin module against the fixture world.
type MixinDecl struct {
	Name      string     `yaml:"name"`
	Target    string     `yaml:"target"`
	Requires  []string   `yaml:"requires,omitempty"`
	Conflicts []string   `yaml:"conflicts,omitempty"`
	Decls     []SpecDecl `yaml:"decls"`
}

// SpecDecl declares one spec. Handler names resolve against the fixture
// table.
type SpecDecl struct {
	Name      string `yaml:"name"`
	Method    string `yaml:"method"`
	Sig       string `yaml:"sig,omitempty"`
	Handler   string `yaml:"handler,omitempty"`
	Condition string `yaml:"condition,omitempty"`
	Transform string `yaml:"transform,omitempty"`

	Inject    *InjectDecl    `yaml:"inject,omitempty"`
	Redirect  *RedirectDecl  `yaml:"redirect,omitempty"`
	Overwrite *OverwriteDecl `yaml:"overwrite,omitempty"`
	Multi     *MultiDecl     `yaml:"multi,omitempty"`
}

type InjectDecl struct {
	At          string `yaml:"at"`
	Priority    int    `yaml:"priority,omitempty"`
	Cancellable bool   `yaml:"cancellable,omitempty"`
}

type RedirectDecl struct {
	Call  string `yaml:"call"`
	Arity int    `yaml:"arity"`
}

type OverwriteDecl struct {
	PreserveOriginal bool `yaml:"preserve_original,omitempty"`
}

type MultiDecl struct {
	At       []string `yaml:"at"`
	Priority int      `yaml:"priority,omitempty"`
}

// FlowStep invokes one method on the fixture world. Args are scenario
// literals: ints, strings, bools.
type FlowStep struct {
	Type   string `yaml:"type"`
	Method string `yaml:"method"`
	Sig    string `yaml:"sig,omitempty"`
	Args   []any  `yaml:"args,omitempty"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if scenario.Name == "" {
		return nil, fmt.Errorf("scenario %s has no name", path)
	}
	return &scenario, nil
}

// LoadScenarioDir reads every *.yaml scenario in a directory, sorted by
// file name for deterministic test order.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var scenarios []*Scenario
	for _, path := range matches {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}
