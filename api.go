package lox

// RunSource compiles and runs a single source string against a fresh
// VM constructed with cfg (NewConfig defaults if cfg is nil), and
// returns whatever error Interpret produced: nil, a *CompileErrors, or
// a *RuntimeError.
func RunSource(source string, cfg *Config) error {
	vm := NewVM(cfg)
	return vm.Interpret(source)
}
