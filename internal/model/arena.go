package model

import "fmt"

// Arena is a process-local buffer of fixed-size record slots. Slot i belongs
// exclusively to worker thread i, so writers never need to synchronize.
type Arena struct {
	buf   []byte
	slots int
}

// NewArena allocates room for slots records.
func NewArena(slots int) *Arena {
	if slots < 0 {
		slots = 0
	}
	return &Arena{buf: make([]byte, slots*SlotSize), slots: slots}
}

func (a *Arena) Len() int {
	return a.slots
}

// Slot returns the bytes owned by thread i. The returned slice has its
// capacity clipped to the slot boundary.
func (a *Arena) Slot(i int) []byte {
	return SlotAt(a.buf, i)
}

// Block returns the first n slots as one contiguous block, the unit sent to the
// coordinator.
func (a *Arena) Block(n int) ([]byte, error) {
	if n < 0 || n > a.slots {
		return nil, fmt.Errorf("block of %d slots exceeds arena of %d", n, a.slots)
	}
	return a.buf[:n*SlotSize : n*SlotSize], nil
}

// SlotAt returns slot i of a contiguous block of records.
func SlotAt(block []byte, i int) []byte {
	lo := i * SlotSize
	hi := lo + SlotSize
	return block[lo:hi:hi]
}

// SlotCount returns the number of whole slots held in block.
func SlotCount(block []byte) int {
	return len(block) / SlotSize
}
