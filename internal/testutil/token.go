package testutil

// FixedTokens generates the same run token every time.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario with the same FixedTokens produces
// byte-identical reports and audit logs.
//
// Thread-safety: FixedTokens is stateless after construction and safe
// for concurrent use.
type FixedTokens struct {
	token string
}

// NewFixedTokens creates a fixed run token generator.
//
// The token is typically set in the scenario YAML:
//
//	run_token: "test-run-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-run-default".
func NewFixedTokens(token string) *FixedTokens {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokens{token: token}
}

// Generate returns the fixed run token.
//
// Implements patch.TokenGenerator.
func (g *FixedTokens) Generate() string {
	return g.token
}
