package model

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFieldsRoundTrip(t *testing.T) {
	rec := Record{Host: "node1", Rank: -1, Thread: 0, CPU: 3, NUMANode: 0, Affinity: "0-3"}
	slot := make([]byte, SlotSize)

	n := rec.Encode(slot, BaseArity)
	assert.Equal(t, len("node1 -1 0 3 0 0-3"), n)
	assert.Equal(t, []string{"node1", "-1", "0", "3", "0", "0-3"}, Fields(slot))

	n = rec.Encode(slot, AcceleratorArity)
	assert.Equal(t, []string{"node1", "-1", "0", "3", "0", "0-3", "None"}, Fields(slot))
	assert.Equal(t, byte(Terminator), slot[n])
}

func TestEncodeSentinels(t *testing.T) {
	slot := make([]byte, SlotSize)
	Record{Rank: Unavailable, CPU: Unavailable, NUMANode: Unavailable}.Encode(slot, AcceleratorArity)
	assert.Equal(t, []string{"-", "-1", "0", "-1", "-1", "-", "None"}, Fields(slot))
}

func TestEncodeSanitizesSeparator(t *testing.T) {
	slot := make([]byte, SlotSize)
	Record{Host: "bad host", Affinity: "0,1", Accelerators: "a b\x00c"}.Encode(slot, AcceleratorArity)
	fields := Fields(slot)
	require.Len(t, fields, AcceleratorArity)
	assert.Equal(t, "bad_host", fields[FieldHost])
	assert.Equal(t, "a_b_c", fields[FieldAccelerators])
}

func TestEncodeTruncation(t *testing.T) {
	tests := map[string]struct {
		rec   Record
		arity int
		check func(t *testing.T, fields []string)
	}{
		"HostCapped": {
			rec:   Record{Host: strings.Repeat("h", 200), Affinity: "0"},
			arity: BaseArity,
			check: func(t *testing.T, fields []string) {
				require.Len(t, fields, BaseArity)
				assert.Len(t, fields[FieldHost], HostMaxLen)
			},
		},
		"AffinityCapped": {
			rec:   Record{Host: "n", Affinity: strings.Repeat("1,", 100)},
			arity: BaseArity,
			check: func(t *testing.T, fields []string) {
				require.Len(t, fields, BaseArity)
				assert.Len(t, fields[FieldAffinity], AffinityMaxLen)
			},
		},
		"TailDropped": {
			rec: Record{
				Host:         strings.Repeat("h", 100),
				Affinity:     strings.Repeat("9", 100),
				Accelerators: strings.Repeat("g", 100),
			},
			arity: AcceleratorArity,
			check: func(t *testing.T, fields []string) {
				require.Len(t, fields, AcceleratorArity)
				assert.Len(t, fields[FieldAffinity], AffinityMaxLen)
				assert.Equal(t, "ggg", fields[FieldAccelerators])
			},
		},
		"TrailingFieldMissing": {
			rec: Record{
				Host:     strings.Repeat("h", 100),
				Rank:     -1234567890,
				Thread:   -1234567890,
				CPU:      -1234567890,
				NUMANode: -1234567890,
				Affinity: strings.Repeat("9", 100),
			},
			arity: AcceleratorArity,
			check: func(t *testing.T, fields []string) {
				require.Len(t, fields, BaseArity)
				assert.Len(t, fields[FieldAffinity], SlotSize-1-(HostMaxLen+4*(IntMaxLen+1)+1))
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			slot := make([]byte, SlotSize)
			n := tc.rec.Encode(slot, tc.arity)
			assert.Less(t, n, SlotSize)
			assert.Equal(t, byte(Terminator), slot[n])
			tc.check(t, Fields(slot))
		})
	}
}

func TestEncodeNeverLeavesSlot(t *testing.T) {
	block := make([]byte, 3*SlotSize)
	for i := range block {
		block[i] = 0xAA
	}
	long := Record{
		Host:         strings.Repeat("x", 500),
		Affinity:     strings.Repeat("y", 500),
		Accelerators: strings.Repeat("z", 500),
	}
	long.Encode(SlotAt(block, 1), AcceleratorArity)

	for i := 0; i < SlotSize; i++ {
		assert.Equal(t, byte(0xAA), block[i], "byte %d of preceding slot", i)
		assert.Equal(t, byte(0xAA), block[2*SlotSize+i], "byte %d of following slot", i)
	}
}

func TestFieldsUnterminatedSlot(t *testing.T) {
	slot := []byte("a b c")
	assert.Equal(t, []string{"a", "b", "c"}, Fields(slot))
	assert.Equal(t, []string{""}, Fields(make([]byte, SlotSize)))
}

func TestArenaDisjointConcurrentWrites(t *testing.T) {
	const threads = 16
	arena := NewArena(threads)
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			Record{Host: "n", Thread: thread, Affinity: strings.Repeat("7", 60)}.Encode(arena.Slot(thread), BaseArity)
		}(i)
	}
	wg.Wait()

	block, err := arena.Block(threads)
	require.NoError(t, err)
	require.Equal(t, threads, SlotCount(block))
	for i := 0; i < threads; i++ {
		want := make([]byte, SlotSize)
		Record{Host: "n", Thread: i, Affinity: strings.Repeat("7", 60)}.Encode(want, BaseArity)
		assert.Equal(t, want, SlotAt(block, i))
	}

	_, err = arena.Block(threads + 1)
	assert.Error(t, err)
}

func TestArenaSlotCapacityClipped(t *testing.T) {
	arena := NewArena(2)
	slot := arena.Slot(0)
	assert.Equal(t, SlotSize, len(slot))
	assert.Equal(t, SlotSize, cap(slot))
}

func TestNewHeaders(t *testing.T) {
	tests := map[string]struct {
		caps    Capabilities
		threads int
		want    Headers
	}{
		"SingleProcessLinux": {
			caps:    Capabilities{Placement: true, NUMA: true},
			threads: 1,
			want:    Headers{"Host", "", "", "CPU", "NUMA-Node", "CPU-Affinity"},
		},
		"GroupMultiThreadNoNUMA": {
			caps:    Capabilities{Group: true, Placement: true},
			threads: 4,
			want:    Headers{"Host", "MPI-Rank", "OMP-Thread", "CPU", "", "CPU-Affinity"},
		},
		"NoPlacement": {
			caps:    Capabilities{Group: true, NUMA: true},
			threads: 2,
			want:    Headers{"Host", "MPI-Rank", "OMP-Thread", "", "", ""},
		},
		"Accelerators": {
			caps:    Capabilities{Placement: true, NUMA: true, Accelerators: true},
			threads: 1,
			want:    Headers{"Host", "", "", "CPU", "NUMA-Node", "CPU-Affinity", "Accelerators"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h := NewHeaders(tc.caps, tc.threads)
			assert.Equal(t, tc.want, h)
			assert.Equal(t, tc.caps.Arity(), len(h))
		})
	}
}

func TestHeadersDisplayed(t *testing.T) {
	h := Headers{"Host", "", "CPU"}
	assert.True(t, h.Displayed(0))
	assert.False(t, h.Displayed(1))
	assert.True(t, h.Displayed(2))
	assert.False(t, h.Displayed(3))
	assert.False(t, h.Displayed(-1))
}
