package imagery

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is one decoded overlay image and where it came from.
// Immutable after construction.
type Snapshot struct {
	Image     image.Image
	Source    string // "remote" or "cache"
	FetchedAt time.Time
}

// Store provides thread-safe access to the current overlay snapshot.
type Store struct {
	snap atomic.Pointer[Snapshot]
	mu   sync.Mutex // serializes refreshes
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current snapshot, or nil if none has been loaded.
func (s *Store) Get() *Snapshot {
	return s.snap.Load()
}

// Set atomically replaces the current snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.snap.Store(snap)
}

// AgeSeconds returns the age of the current snapshot in seconds, or -1
// when nothing is loaded.
func (s *Store) AgeSeconds() float64 {
	snap := s.snap.Load()
	if snap == nil {
		return -1
	}
	return time.Since(snap.FetchedAt).Seconds()
}
