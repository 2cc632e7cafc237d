package main

import (
	"flag"
	"fmt"
	"os"

	lox "github.com/loxvm/lox"
)

type args struct {
	stressGC       *bool
	traceExecution *bool
	traceGC        *bool
}

func readArgs() *args {
	a := &args{
		stressGC:       flag.Bool("stress-gc", false, "Run a collection before every allocation"),
		traceExecution: flag.Bool("trace-execution", false, "Print each instruction and the stack before executing it"),
		traceGC:        flag.Bool("trace-gc", false, "Log every collection cycle"),
	}
	flag.Parse()
	return a
}

func main() {
	a := readArgs()

	cfg := lox.NewConfig()
	cfg.SetBool("vm.stress_gc", *a.stressGC)
	cfg.SetBool("vm.trace_execution", *a.traceExecution)
	cfg.SetBool("vm.trace_gc", *a.traceGC)
	if err := lox.ApplyEnv(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(lox.ExitUsage)
	}

	switch flag.NArg() {
	case 0:
		lox.REPL(os.Stdin, os.Stdout, cfg)
	case 1:
		os.Exit(lox.RunFile(flag.Arg(0), cfg))
	default:
		fmt.Fprintln(os.Stderr, "Usage: lox [script]")
		os.Exit(lox.ExitUsage)
	}
}
