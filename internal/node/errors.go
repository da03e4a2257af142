package node

import "errors"

// ErrSnapshotNotFound is returned when a requested snapshot height has not
// been folded.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrNotEmpty is returned by ApplyGenesis when the journal already has
// entries.
var ErrNotEmpty = errors.New("journal is not empty")
