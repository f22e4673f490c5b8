// Package seatmap encodes seat occupancy for a journey leg as bits in a
// 64-bit word. Each stop on the route owns a 2-bit field: the high bit marks
// a departure, the low bit an arrival, and both bits together a stop the
// journey passes through. Two journeys can share a seat exactly when their
// words have no overlapping bits.
package seatmap

import (
	"fmt"
	"strings"
)

// MaxStops is the largest route length a single word can encode.
const MaxStops = 32

// WindowDays is the size of the rolling occupancy window in days.
const WindowDays = 10

// Mask returns the occupancy word for a journey boarding at boardSeq and
// alighting at alightSeq (1-based stop sequence numbers). Degenerate
// intervals return 0: non-positive sequences, boardSeq >= alightSeq, or
// stops beyond the encodable route length.
func Mask(boardSeq, alightSeq int) uint64 {
	if boardSeq <= 0 || alightSeq <= 0 || boardSeq >= alightSeq {
		return 0
	}
	if alightSeq > MaxStops {
		return 0
	}

	var mask uint64
	mask |= 1 << (2*(boardSeq-1) + 1)
	mask |= 1 << (2 * (alightSeq - 1))
	for s := boardSeq + 1; s < alightSeq; s++ {
		mask |= 3 << (2 * (s - 1))
	}
	return mask
}

// Conflicts reports whether a journey with the given mask collides with an
// existing occupancy word. Back-to-back legs that meet at a stop share that
// stop's field but not its bits, so they do not conflict.
func Conflicts(word, mask uint64) bool {
	return word&mask != 0
}

// Apply returns the word with the journey's bits set.
func Apply(word, mask uint64) uint64 {
	return word | mask
}

// Clear returns the word with the journey's bits released.
func Clear(word, mask uint64) uint64 {
	return word &^ mask
}

// Stops lists the 1-based stop sequence numbers whose fields carry any bit
// in the word, in ascending order.
func Stops(word uint64) []int {
	var stops []int
	for s := 1; s <= MaxStops; s++ {
		if word&(3<<(2*(s-1))) != 0 {
			stops = append(stops, s)
		}
	}
	return stops
}

// Describe renders an occupancy word stop by stop for logs and debugging,
// e.g. "1:leave 2:transit 3:arrive". An empty word renders as "free".
func Describe(word uint64) string {
	if word == 0 {
		return "free"
	}
	var parts []string
	for s := 1; s <= MaxStops; s++ {
		field := (word >> (2 * (s - 1))) & 3
		switch field {
		case 1:
			parts = append(parts, fmt.Sprintf("%d:arrive", s))
		case 2:
			parts = append(parts, fmt.Sprintf("%d:leave", s))
		case 3:
			parts = append(parts, fmt.Sprintf("%d:transit", s))
		}
	}
	return strings.Join(parts, " ")
}
