package model

import (
	"errors"
	"strconv"
	"strings"
)

// SlotSize is the fixed byte capacity of one serialized record, terminator included.
const SlotSize = 128

// Per-field character caps applied before fields are joined into a slot.
const (
	HostMaxLen         = 64
	IntMaxLen          = 11
	AffinityMaxLen     = 50
	AcceleratorsMaxLen = 40
)

const (
	Separator  = ' '
	Terminator = 0
)

// Sentinel values for facts whose probe is unavailable on the running platform.
const (
	Unavailable    = -1
	NoValue        = "-"
	NoAccelerators = "None"
)

// Record arities. Accelerator reporting adds one trailing column.
const (
	BaseArity        = 6
	AcceleratorArity = 7
)

// ErrArity reports a record that carries more fields than the header schema describes.
var ErrArity = errors.New("record arity exceeds header schema")

type Field int

const (
	FieldHost Field = iota
	FieldRank
	FieldThread
	FieldCPU
	FieldNUMANode
	FieldAffinity
	FieldAccelerators
)

var fieldCaps = [AcceleratorArity]int{
	FieldHost:         HostMaxLen,
	FieldRank:         IntMaxLen,
	FieldThread:       IntMaxLen,
	FieldCPU:          IntMaxLen,
	FieldNUMANode:     IntMaxLen,
	FieldAffinity:     AffinityMaxLen,
	FieldAccelerators: AcceleratorsMaxLen,
}

// Cap returns the maximum number of characters kept for field f.
func (f Field) Cap() int {
	if f < 0 || int(f) >= len(fieldCaps) {
		return 0
	}
	return fieldCaps[f]
}

// Record holds the placement facts of one worker thread in one process.
type Record struct {
	Host         string
	Rank         int
	Thread       int
	CPU          int
	NUMANode     int
	Affinity     string
	Accelerators string
}

// Values returns the record's fields in column order, sanitized and capped.
// arity selects whether the accelerator column is included.
func (r Record) Values(arity int) []string {
	raw := [AcceleratorArity]string{
		FieldHost:         orNoValue(r.Host),
		FieldRank:         strconv.Itoa(r.Rank),
		FieldThread:       strconv.Itoa(r.Thread),
		FieldCPU:          strconv.Itoa(r.CPU),
		FieldNUMANode:     strconv.Itoa(r.NUMANode),
		FieldAffinity:     orNoValue(r.Affinity),
		FieldAccelerators: orDefault(r.Accelerators, NoAccelerators),
	}
	if arity > AcceleratorArity {
		arity = AcceleratorArity
	}
	out := make([]string, 0, arity)
	for i := 0; i < arity; i++ {
		out = append(out, capField(sanitize(raw[i]), Field(i).Cap()))
	}
	return out
}

// sanitize replaces bytes that would break field splitting on the wire.
func sanitize(v string) string {
	if strings.IndexByte(v, Separator) < 0 && strings.IndexByte(v, Terminator) < 0 {
		return v
	}
	b := []byte(v)
	for i, c := range b {
		if c == Separator || c == Terminator {
			b[i] = '_'
		}
	}
	return string(b)
}

func capField(v string, n int) string {
	if len(v) > n {
		return v[:n]
	}
	return v
}

func orNoValue(v string) string {
	return orDefault(v, NoValue)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
