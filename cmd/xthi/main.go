package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"xthi/internal/agent"
	"xthi/internal/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "xthi: %v\n", err)
		os.Exit(1)
	}

	logger := agent.BuildLogger(cfg)
	a, err := agent.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("initialization failed")
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		logger.WithError(err).Error("run failed")
		os.Exit(1)
	}
}
