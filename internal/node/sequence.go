package node

import "sync/atomic"

// Sequence is the monotonic logical clock that orders journal entries.
// It holds the seq of the last journaled entry; the node advances it only
// after the store has accepted the entry.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
type Sequence struct {
	seq atomic.Int64
}

// NewSequenceAt creates a sequence resuming after start.
// Used on recovery to continue from the last journaled seq.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Current returns the last journaled sequence number.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

// Set records seq as the last journaled sequence number.
func (s *Sequence) Set(seq int64) {
	s.seq.Store(seq)
}
