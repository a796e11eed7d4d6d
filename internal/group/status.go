package group

import (
	"sync/atomic"
	"time"
)

// Status tracks coordinator-side progress for diagnostics.
type Status struct {
	serving        atomic.Bool
	delivered      atomic.Int64
	lastDeliveryAt atomic.Int64
}

func NewStatus() *Status {
	return &Status{}
}

func (s *Status) SetServing(ok bool) {
	s.serving.Store(ok)
}

func (s *Status) MarkDelivered(ts time.Time) {
	s.delivered.Add(1)
	s.lastDeliveryAt.Store(ts.UnixNano())
}

func (s *Status) Delivered() int64 {
	return s.delivered.Load()
}

func (s *Status) Snapshot() map[string]any {
	out := map[string]any{
		"serving":   s.serving.Load(),
		"delivered": s.delivered.Load(),
	}
	if v := s.lastDeliveryAt.Load(); v > 0 {
		out["last_delivery_at"] = time.Unix(0, v).UTC()
	}
	return out
}
