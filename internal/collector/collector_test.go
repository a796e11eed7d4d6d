package collector

import (
	"context"
	"io"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xthi/internal/model"
	"xthi/internal/system"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeProber hands out increasing CPU ids and counts how often each probe runs.
type fakeProber struct {
	nextCPU    atomic.Int64
	hostCalls  atomic.Int64
	accelCalls atomic.Int64
}

func (f *fakeProber) Hostname() string {
	f.hostCalls.Add(1)
	return "nodeA"
}

func (f *fakeProber) Placement() system.Placement {
	cpu := int(f.nextCPU.Add(1) - 1)
	return system.Placement{CPU: cpu, NUMANode: 0, Affinity: "0-63", TID: cpu}
}

func (f *fakeProber) Accelerators() string {
	f.accelCalls.Add(1)
	return "0;1"
}

func TestProducerFillsEverySlot(t *testing.T) {
	const threads = 8
	probe := &fakeProber{}
	arena := model.NewArena(threads + 4)
	producer := NewProducer(quietLogger(), probe, 3, model.BaseArity)

	require.NoError(t, producer.Run(context.Background(), arena, threads))
	assert.Equal(t, int64(1), probe.hostCalls.Load())
	assert.Equal(t, int64(0), probe.accelCalls.Load())

	seenCPU := map[string]bool{}
	for i := 0; i < threads; i++ {
		fields := model.Fields(arena.Slot(i))
		require.Len(t, fields, model.BaseArity)
		assert.Equal(t, "nodeA", fields[model.FieldHost])
		assert.Equal(t, "3", fields[model.FieldRank])
		assert.Equal(t, strconv.Itoa(i), fields[model.FieldThread])
		assert.Equal(t, "0-63", fields[model.FieldAffinity])
		seenCPU[fields[model.FieldCPU]] = true
	}
	assert.Len(t, seenCPU, threads, "each worker samples exactly once")

	// Slots beyond the worker count stay untouched.
	for i := threads; i < arena.Len(); i++ {
		assert.Equal(t, make([]byte, model.SlotSize), arena.Slot(i))
	}
}

func TestProducerAcceleratorColumn(t *testing.T) {
	probe := &fakeProber{}
	arena := model.NewArena(2)
	producer := NewProducer(quietLogger(), probe, model.Unavailable, model.AcceleratorArity)

	require.NoError(t, producer.Run(context.Background(), arena, 2))
	assert.Equal(t, int64(1), probe.accelCalls.Load())
	for i := 0; i < 2; i++ {
		fields := model.Fields(arena.Slot(i))
		require.Len(t, fields, model.AcceleratorArity)
		assert.Equal(t, "-1", fields[model.FieldRank])
		assert.Equal(t, "0;1", fields[model.FieldAccelerators])
	}
}

func TestProducerRejectsBadWorkerCount(t *testing.T) {
	producer := NewProducer(quietLogger(), &fakeProber{}, 0, model.BaseArity)
	assert.Error(t, producer.Run(context.Background(), model.NewArena(2), 0))
	assert.Error(t, producer.Run(context.Background(), model.NewArena(2), 3))
}

func TestProducerRealHost(t *testing.T) {
	arena := model.NewArena(4)
	producer := NewProducer(quietLogger(), system.NewHost(), 0, model.BaseArity)
	require.NoError(t, producer.Run(context.Background(), arena, 4))
	for i := 0; i < 4; i++ {
		assert.Len(t, model.Fields(arena.Slot(i)), model.BaseArity)
	}
}

func TestChew(t *testing.T) {
	start := time.Now()
	require.NoError(t, Chew(context.Background(), 2, 50*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Positive(t, spins.Load())

	assert.NoError(t, Chew(context.Background(), 2, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Chew(ctx, 1, time.Hour), context.Canceled)
}
