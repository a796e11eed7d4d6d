// Package gather collects every process's record block onto the coordinator
// in (rank, thread) order.
//
// All processes must run the same number of worker threads. A group with
// non-uniform thread counts is unsupported and fails with ErrNonUniform.
package gather

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"xthi/internal/group"
	"xthi/internal/model"
)

var (
	ErrShortBlock = errors.New("block length does not match thread count")
	ErrNonUniform = errors.New("thread count differs across group")
)

// Gather aggregates the local block of threads records. With no group the
// local block is the whole table. In a group, every non-coordinator sends its
// block and returns a nil table; the coordinator seeds rank 0 from local and
// receives ranks 1..size-1 strictly in increasing order, so the table order
// does not depend on when senders happen to arrive. Any transport error is
// fatal and no partial table is returned.
func Gather(ctx context.Context, g group.Group, local []byte, threads int, logger logrus.FieldLogger) ([]byte, error) {
	blockSize := threads * model.SlotSize
	if threads < 1 || len(local) != blockSize {
		return nil, fmt.Errorf("%w: local block of %d bytes for %d threads", ErrShortBlock, len(local), threads)
	}
	if g == nil {
		return local, nil
	}

	if g.Rank() != group.Coordinator {
		if err := g.Send(ctx, local, threads); err != nil {
			return nil, fmt.Errorf("send block from rank %d: %w", g.Rank(), err)
		}
		logger.WithField("rank", g.Rank()).Debug("block accepted by coordinator")
		return nil, nil
	}

	size := g.Size()
	table := make([]byte, blockSize*size)
	copy(table, local)
	for rank := 1; rank < size; rank++ {
		d, err := g.Recv(ctx, rank)
		if err != nil {
			return nil, fmt.Errorf("gather rank %d: %w", rank, err)
		}
		if d.Threads != threads {
			return nil, fmt.Errorf("%w: rank %d reports %d threads, coordinator runs %d", ErrNonUniform, rank, d.Threads, threads)
		}
		if len(d.Block) != blockSize {
			return nil, fmt.Errorf("%w: rank %d sent %d bytes, want %d", ErrShortBlock, rank, len(d.Block), blockSize)
		}
		copy(table[rank*blockSize:], d.Block)
	}
	logger.WithFields(logrus.Fields{"size": size, "threads": threads}).Debug("table gathered")
	return table, nil
}
