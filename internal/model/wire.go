package model

import (
	"bytes"
	"strings"
)

// Encode serializes r into slot as separator-joined fields followed by a
// terminator. Each field is capped first; if the joined record still does not
// fit, the tail is dropped. Nothing is ever written past len(slot). Bytes after
// the terminator are zeroed so a reused slot carries no stale data. Encode
// returns the number of record bytes written, terminator excluded.
func (r Record) Encode(slot []byte, arity int) int {
	if len(slot) == 0 {
		return 0
	}
	clear(slot)

	limit := len(slot) - 1
	n := 0
	for i, v := range r.Values(arity) {
		if i > 0 {
			if n >= limit {
				break
			}
			slot[n] = Separator
			n++
		}
		c := copy(slot[n:limit], v)
		n += c
		if c < len(v) {
			break
		}
	}
	slot[n] = Terminator
	return n
}

// Fields splits a serialized slot back into its field strings using the same
// rule the encoder applies: one split per separator, stopping at the first
// terminator or the end of the slot.
func Fields(slot []byte) []string {
	end := bytes.IndexByte(slot, Terminator)
	if end < 0 {
		end = len(slot)
	}
	return strings.Split(string(slot[:end]), string(rune(Separator)))
}
