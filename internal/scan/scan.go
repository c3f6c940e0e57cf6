// Package scan locates fixed byte patterns inside in-memory buffers. It is
// shared by the archive locator, the container fingerprint and the
// firmware image splitter, which all work by hunting for magic numbers at
// unknown offsets.
package scan

import (
	"bytes"
	"iter"
)

// FindAll returns a lazy sequence of every non-overlapping occurrence of
// pattern in buf at or after start, in ascending order. The sequence is
// finite and deterministic for a given input. An empty pattern yields
// nothing.
func FindAll(buf, pattern []byte, start int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if len(pattern) == 0 {
			return
		}
		if start < 0 {
			start = 0
		}
		for start <= len(buf)-len(pattern) {
			i := bytes.Index(buf[start:], pattern)
			if i < 0 {
				return
			}
			off := start + i
			if !yield(off) {
				return
			}
			start = off + len(pattern)
		}
	}
}

// First returns the offset of the first occurrence of pattern at or after
// start, or -1 when there is none.
func First(buf, pattern []byte, start int) int {
	for off := range FindAll(buf, pattern, start) {
		return off
	}
	return -1
}
