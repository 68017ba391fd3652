// Package cache implements the TTL policy and the one-shot snapshot slot
// backing attribute reads.
//
// The slot is deliberately not a general read-through cache: a stored
// snapshot is consumed (returned and cleared) by the first fresh read, and
// the reader stores its own capture back on a miss. Each read thus drains or
// refills the slot, never both. Callers sharing a slot across goroutines
// must serialize attribute reads themselves.
package cache

import "time"

// Entry is anything carrying a capture timestamp.
type Entry interface {
	CapturedAt() time.Time
}

// Fresh reports whether an entry is still valid under the given TTL at the
// given instant. Expiry is relative to capture time, not last access. A
// non-positive TTL means nothing is ever fresh.
func Fresh(e Entry, ttl time.Duration, now time.Time) bool {
	if e == nil || ttl <= 0 {
		return false
	}
	return now.Sub(e.CapturedAt()) < ttl
}

// Slot holds at most one snapshot. Not safe for concurrent use.
type Slot struct {
	entry Entry
}

// Put replaces the stored snapshot.
func (s *Slot) Put(e Entry) {
	s.entry = e
}

// Peek returns the stored snapshot without consuming it.
func (s *Slot) Peek() Entry {
	return s.entry
}

// Take returns and clears the stored snapshot if it is fresh, else nil.
// A stale snapshot is left in place to be overwritten by the next capture;
// it is never returned to a caller.
func (s *Slot) Take(ttl time.Duration, now time.Time) Entry {
	e := s.entry
	if !Fresh(e, ttl, now) {
		return nil
	}
	s.entry = nil
	return e
}

// Clear discards any stored snapshot.
func (s *Slot) Clear() {
	s.entry = nil
}
