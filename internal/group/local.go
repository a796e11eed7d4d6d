package group

import (
	"context"
	"fmt"
)

// Local is an in-process group whose members share one mailbox. It serves
// single-process runs inside a launcher and tests that simulate many ranks.
type Local struct {
	rank int
	size int
	box  *mailbox
}

// NewLocal returns every member of an in-process group of the given size.
func NewLocal(size int) []*Local {
	box := newMailbox(size)
	members := make([]*Local, size)
	for rank := range members {
		members[rank] = &Local{rank: rank, size: size, box: box}
	}
	return members
}

func (l *Local) Rank() int      { return l.rank }
func (l *Local) Size() int      { return l.size }
func (l *Local) LocalRank() int { return l.rank }
func (l *Local) LocalSize() int { return l.size }

func (l *Local) Send(ctx context.Context, block []byte, threads int) error {
	if l.rank == Coordinator {
		return fmt.Errorf("%w: coordinator does not send", ErrRank)
	}
	return l.box.post(ctx, Delivery{Rank: l.rank, Threads: threads, Block: block})
}

func (l *Local) Recv(ctx context.Context, from int) (Delivery, error) {
	if l.rank != Coordinator {
		return Delivery{}, fmt.Errorf("%w: rank %d is not the coordinator", ErrRank, l.rank)
	}
	return l.box.take(ctx, from)
}

func (l *Local) Close() error {
	return nil
}
