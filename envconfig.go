package lox

import "github.com/caarlos0/env/v6"

// envOverlay is parsed from the process environment and merged over
// a Config's defaults by ApplyEnv. Grounded on github.com/mna/nenuphar
// (another Lox-descendant VM in the pack), whose go.mod pulls in
// caarlos0/env for exactly this "let the shell override tuning knobs"
// job.
type envOverlay struct {
	StressGC       *bool `env:"LOX_STRESS_GC"`
	TraceExecution *bool `env:"LOX_TRACE_EXECUTION"`
	TraceGC        *bool `env:"LOX_TRACE_GC"`
}

// ApplyEnv overlays LOX_* environment variables onto cfg, leaving
// unset variables untouched. Returns an error only if a set variable
// fails to parse (e.g. LOX_STRESS_GC=maybe).
func ApplyEnv(cfg *Config) error {
	var overlay envOverlay
	if err := env.Parse(&overlay); err != nil {
		return err
	}
	if overlay.StressGC != nil {
		cfg.SetBool("vm.stress_gc", *overlay.StressGC)
	}
	if overlay.TraceExecution != nil {
		cfg.SetBool("vm.trace_execution", *overlay.TraceExecution)
	}
	if overlay.TraceGC != nil {
		cfg.SetBool("vm.trace_gc", *overlay.TraceGC)
	}
	return nil
}
