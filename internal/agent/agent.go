// Package agent wires the reporting pipeline: every process records where
// its worker threads run, the coordinator gathers the records of the whole
// group and prints them as one table.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"xthi/internal/collector"
	"xthi/internal/config"
	"xthi/internal/group"
	"xthi/internal/model"
	"xthi/internal/system"
)

// Probe is the placement source the agent samples from.
type Probe interface {
	collector.Prober
	Capabilities() model.Capabilities
}

// JoinFunc returns the process group this process belongs to, or a nil Group
// when it runs alone.
type JoinFunc func() (group.Group, error)

type Agent struct {
	cfg    config.Config
	logger logrus.FieldLogger
	probe  Probe
	join   JoinFunc
	out    io.Writer

	mu    sync.Mutex
	group group.Group
}

func New(cfg config.Config, logger *logrus.Logger) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return newAgent(cfg, logger, system.NewHost(), launcherGroup(cfg, logger), os.Stdout), nil
}

func newAgent(cfg config.Config, logger logrus.FieldLogger, probe Probe, join JoinFunc, out io.Writer) *Agent {
	return &Agent{
		cfg:    cfg,
		logger: logger,
		probe:  probe,
		join:   join,
		out:    out,
	}
}

// launcherGroup joins the group announced by the launcher environment, if any.
func launcherGroup(cfg config.Config, logger logrus.FieldLogger) JoinFunc {
	return func() (group.Group, error) {
		m, ok, err := group.DetectMembership(os.Getenv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		logger.WithFields(logrus.Fields{
			"launcher": m.Launcher,
			"rank":     m.Rank,
			"size":     m.Size,
		}).Debug("process group detected")
		return group.Open(m, cfg.ListenAddr, cfg.CoordinatorAddr, cfg.DialTimeout, logger)
	}
}

// Run executes the pipeline once. An interrupt cancels it; a second interrupt
// or the shutdown timeout abandons it.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.WithFields(logrus.Fields{
		"threads":      a.cfg.Threads,
		"max_threads":  a.cfg.MaxThreads,
		"accelerators": a.cfg.Accelerators,
	}).Debug("starting xthi")
	runCtx, cancelRun := context.WithCancelCause(ctx)
	defer cancelRun(nil)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
	case sig := <-sigCh:
		a.logger.WithFields(logrus.Fields{"signal": sig.String(), "timeout": a.cfg.ShutdownTimeout}).Warn("interrupted, stopping")
		cancelRun(fmt.Errorf("interrupted by %s", sig))

		graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
		defer graceTimer.Stop()

		select {
		case runErr = <-runErrCh:
		case sig2 := <-sigCh:
			a.logger.WithField("signal", sig2.String()).Warn("second signal received, forcing shutdown")
			runErr = context.Cause(runCtx)
		case <-graceTimer.C:
			a.logger.WithField("timeout", a.cfg.ShutdownTimeout).Warn("shutdown timeout reached, forcing shutdown")
			runErr = context.Cause(runCtx)
		}
	}

	a.shutdown()

	if errors.Is(runErr, context.Canceled) {
		if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
	}
	return runErr
}

// BuildLogger returns a logger writing to stderr so stdout carries nothing but
// the table.
func BuildLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	if cfg.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
