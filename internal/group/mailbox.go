package group

import (
	"bytes"
	"context"
	"fmt"
)

type envelope struct {
	delivery Delivery
	accepted chan struct{}
}

// mailbox is a synchronous rendezvous with one unbuffered slot per rank. A
// post completes only after the matching take has copied the block.
type mailbox struct {
	slots []chan envelope
}

func newMailbox(size int) *mailbox {
	m := &mailbox{slots: make([]chan envelope, size)}
	for i := range m.slots {
		m.slots[i] = make(chan envelope)
	}
	return m
}

func (m *mailbox) checkSender(rank int) error {
	if rank <= Coordinator || rank >= len(m.slots) {
		return fmt.Errorf("%w: rank %d in group of %d", ErrRank, rank, len(m.slots))
	}
	return nil
}

func (m *mailbox) post(ctx context.Context, d Delivery) error {
	if err := m.checkSender(d.Rank); err != nil {
		return err
	}
	e := envelope{delivery: d, accepted: make(chan struct{})}
	select {
	case m.slots[d.Rank] <- e:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-e.accepted:
		return nil
	case <-ctx.Done():
		// The coordinator may have accepted concurrently with cancellation.
		select {
		case <-e.accepted:
			return nil
		default:
		}
		return ctx.Err()
	}
}

func (m *mailbox) take(ctx context.Context, from int) (Delivery, error) {
	if err := m.checkSender(from); err != nil {
		return Delivery{}, err
	}
	select {
	case e := <-m.slots[from]:
		d := e.delivery
		d.Block = bytes.Clone(d.Block)
		close(e.accepted)
		return d, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}
