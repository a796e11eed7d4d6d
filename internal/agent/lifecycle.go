package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"xthi/internal/collector"
	"xthi/internal/gather"
	"xthi/internal/model"
	"xthi/internal/render"
)

func (a *Agent) run(ctx context.Context) error {
	g, err := a.join()
	if err != nil {
		return fmt.Errorf("join process group: %w", err)
	}
	a.mu.Lock()
	a.group = g
	a.mu.Unlock()

	caps := a.probe.Capabilities()
	caps.Group = g != nil
	caps.Accelerators = a.cfg.Accelerators
	if !caps.Placement {
		a.logger.Warn("thread placement is not available on this platform")
	}

	rank := model.Unavailable
	logger := a.logger.WithField("threads", a.cfg.Threads)
	if g != nil {
		rank = g.Rank()
		logger = logger.WithFields(logrus.Fields{"rank": rank, "size": g.Size()})
	}

	arena := model.NewArena(a.cfg.MaxThreads)
	producer := collector.NewProducer(logger, a.probe, rank, caps.Arity())
	if err := producer.Run(ctx, arena, a.cfg.Threads); err != nil {
		return fmt.Errorf("record thread placement: %w", err)
	}
	local, err := arena.Block(a.cfg.Threads)
	if err != nil {
		return err
	}
	logger.Debug("local records complete")

	table, err := gather.Gather(ctx, g, local, a.cfg.Threads, logger)
	if err != nil {
		return err
	}
	if table != nil {
		headers := model.NewHeaders(caps, a.cfg.Threads)
		if err := render.Table(a.out, table, headers); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
		logger.WithField("rows", model.SlotCount(table)).Debug("table written")
	}

	if a.cfg.Chew > 0 {
		logger.WithField("duration", a.cfg.Chew).Debug("chewing cpu")
		if err := collector.Chew(ctx, a.cfg.Threads, a.cfg.Chew); err != nil {
			return fmt.Errorf("chew cpu: %w", err)
		}
	}
	return nil
}

func (a *Agent) shutdown() {
	a.mu.Lock()
	g := a.group
	a.group = nil
	a.mu.Unlock()
	if g == nil {
		return
	}
	if err := g.Close(); err != nil {
		a.logger.WithError(err).Warn("process group close failed")
	}
}
