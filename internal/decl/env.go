package decl

// ParserEnv carries the toggles a Scanner needs, and only those: every
// field is read by at least one backend. It is a plain value: two envs with
// equal fields are interchangeable.
type ParserEnv struct {
	// ExperimentalMode enables productions only accepted under `<?hh // experimental`.
	ExperimentalMode bool

	// DisallowHashComments makes `#` line comments a recoverable error.
	DisallowHashComments bool
}

// NewParserEnv builds the environment for mode. Every field other than
// ExperimentalMode keeps its zero value.
func NewParserEnv(mode Mode) ParserEnv {
	return ParserEnv{
		ExperimentalMode: mode == ModeExperimental,
	}
}
