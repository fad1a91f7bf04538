package capture

import (
	"sync"
	"time"
)

// Marker is one detected marker in a processed frame.
type Marker struct {
	ID        int        `json:"id"`
	Center    [2]float64 `json:"center"`
	DistanceM float64    `json:"distance_m"`
}

// Frame is the latest annotated, JPEG-encoded camera frame.
type Frame struct {
	JPEG       []byte
	Width      int
	Height     int
	Channels   int
	Seq        uint64
	CapturedAt time.Time
	Markers    []Marker
}

// Shape returns the frame dimensions as rows, cols, channels.
func (f Frame) Shape() [3]int {
	return [3]int{f.Height, f.Width, f.Channels}
}

// Store holds the single most recent frame. The capture goroutine writes it,
// HTTP handlers read it.
type Store struct {
	mu    sync.RWMutex
	frame *Frame
	seq   uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Put replaces the current frame and returns its sequence number.
// Sequence numbers keep increasing across Clear.
func (s *Store) Put(f Frame) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	f.Seq = s.seq
	s.frame = &f
	return f.Seq
}

// Latest returns a copy of the current frame. The JPEG slice is shared and
// must not be modified.
func (s *Store) Latest() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frame == nil {
		return Frame{}, false
	}
	return *s.frame, true
}

// HasFrame reports whether a frame is available.
func (s *Store) HasFrame() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame != nil
}

// Clear drops the current frame.
func (s *Store) Clear() {
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
}
