// Package group provides process-group membership and the blocking
// point-to-point transport the aggregator runs on. A Send returns only after
// the coordinator has taken the block, so senders are back-pressured by
// construction and nothing is queued in between.
package group

import (
	"context"
	"errors"
)

// Coordinator is the rank that receives every block and renders the table.
const Coordinator = 0

// ErrRank reports a rank outside the group or a call made from the wrong role.
var ErrRank = errors.New("invalid rank for operation")

// Delivery is one process's block of records as accepted by the coordinator.
type Delivery struct {
	Rank    int
	Threads int
	Block   []byte
}

// Group is an established, fixed-size process group. Membership is set up and
// torn down outside this package's callers.
type Group interface {
	Rank() int
	Size() int
	// LocalRank and LocalSize describe placement within the node, or -1 when
	// the launcher does not say.
	LocalRank() int
	LocalSize() int
	// Send hands block to the coordinator and returns once it was accepted.
	Send(ctx context.Context, block []byte, threads int) error
	// Recv blocks until rank from has delivered. Only the coordinator receives.
	Recv(ctx context.Context, from int) (Delivery, error)
	Close() error
}
