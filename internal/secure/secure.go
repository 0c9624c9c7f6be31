// Package secure holds secret byte buffers that are wiped on release.
//
// Every buffer carrying private scalars, derived symmetric keys or
// password-derived keys lives in a Bytes value and is released with
// Destroy, normally via defer so error paths are covered too.
package secure

import (
	"runtime"
	"sync"
	"sync/atomic"
)

//nolint:gochecknoglobals // process-wide setting from config
var lockMemory atomic.Bool

func init() { lockMemory.Store(true) }

// SetMemoryLock turns mlock of new buffers on or off. Buffers already
// allocated keep their state.
func SetMemoryLock(enabled bool) { lockMemory.Store(enabled) }

// Bytes is a wrapper for sensitive byte slices that provides
// best-effort mlock and explicit zeroing.
type Bytes struct {
	data   []byte
	locked bool
	mu     sync.Mutex
}

// New allocates a zeroed secret buffer of the given size.
// The memory is locked if the system supports it.
func New(size int) *Bytes {
	b := &Bytes{data: make([]byte, size)}
	if lockMemory.Load() {
		b.locked = mlock(b.data)
	}

	// Backstop for callers that forget Destroy.
	runtime.SetFinalizer(b, func(s *Bytes) {
		s.Destroy()
	})

	return b
}

// FromSlice copies data into a new secret buffer.
// The source slice is left untouched; callers that own it should Zero it.
func FromSlice(data []byte) *Bytes {
	b := New(len(data))
	copy(b.data, data)
	return b
}

// Take copies data into a new secret buffer and wipes the source.
func Take(data []byte) *Bytes {
	b := FromSlice(data)
	Zero(data)
	return b
}

// Bytes returns the underlying byte slice, or nil once destroyed.
// The slice aliases the secret; do not retain it past Destroy.
func (s *Bytes) Bytes() []byte {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Copy returns an unprotected copy the caller must Zero.
func (s *Bytes) Copy() []byte {
	data := s.Bytes()
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// Len returns the length of the data.
func (s *Bytes) Len() int {
	return len(s.Bytes())
}

// IsLocked returns whether the memory is mlocked.
func (s *Bytes) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Destroy zeros the memory and unlocks it. Safe to call multiple times
// and on a nil receiver.
func (s *Bytes) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return
	}

	Zero(s.data)

	if s.locked {
		munlock(s.data)
		s.locked = false
	}

	s.data = nil
	runtime.SetFinalizer(s, nil)
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// ZeroArray32 overwrites a fixed 32-byte array.
func ZeroArray32(a *[32]byte) {
	if a == nil {
		return
	}
	Zero(a[:])
}
