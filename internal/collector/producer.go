package collector

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"xthi/internal/model"
	"xthi/internal/system"
)

// Prober supplies the facts a worker thread records about itself.
type Prober interface {
	Hostname() string
	// Placement is called on a goroutine locked to its OS thread.
	Placement() system.Placement
	Accelerators() string
}

// Producer runs the per-process worker pool. Each worker writes exactly one
// record into the arena slot matching its thread index.
type Producer struct {
	logger logrus.FieldLogger
	probe  Prober
	rank   int
	arity  int
}

func NewProducer(logger logrus.FieldLogger, probe Prober, rank, arity int) *Producer {
	return &Producer{logger: logger, probe: probe, rank: rank, arity: arity}
}

// Run spawns threads workers, each pinned to its own OS thread, and returns
// once all of them have written their slot. Workers rendezvous before
// sampling so every sample is taken while all threads are alive at once.
func (p *Producer) Run(ctx context.Context, arena *model.Arena, threads int) error {
	if threads < 1 || threads > arena.Len() {
		return fmt.Errorf("worker count %d outside arena capacity 1..%d", threads, arena.Len())
	}

	host := p.probe.Hostname()
	accelerators := model.NoAccelerators
	if p.arity > model.BaseArity {
		accelerators = p.probe.Accelerators()
	}

	var ready sync.WaitGroup
	ready.Add(threads)

	g, gctx := errgroup.WithContext(ctx)
	for thread := 0; thread < threads; thread++ {
		thread := thread
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			ready.Done()
			ready.Wait()
			if err := gctx.Err(); err != nil {
				return err
			}

			placement := p.probe.Placement()
			rec := model.Record{
				Host:         host,
				Rank:         p.rank,
				Thread:       thread,
				CPU:          placement.CPU,
				NUMANode:     placement.NUMANode,
				Affinity:     placement.Affinity,
				Accelerators: accelerators,
			}
			rec.Encode(arena.Slot(thread), p.arity)

			p.logger.WithFields(logrus.Fields{
				"thread": thread,
				"tid":    placement.TID,
				"cpu":    placement.CPU,
			}).Debug("thread placement recorded")
			return nil
		})
	}
	return g.Wait()
}
