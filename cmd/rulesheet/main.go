// Package main provides a CLI for evaluating rule contexts.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/rulesheet/internal/platform/config"

	rulesheetcmd "github.com/louisbranch/rulesheet/internal/cmd/rulesheet"
)

func main() {
	cfg, err := rulesheetcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rulesheetcmd.Run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		config.ExitCodef(rulesheetcmd.ExitCode(err), "Error: %s", rulesheetcmd.Describe(err))
	}
}
