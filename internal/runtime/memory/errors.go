package memory

import "errors"

var (
	// ErrMemoryReadFailed is returned when the engine refuses a read that passed the bounds check
	ErrMemoryReadFailed = errors.New("memory read failed")
	// ErrMemoryWriteFailed is returned when the engine refuses a write that passed the bounds check
	ErrMemoryWriteFailed = errors.New("memory write failed")
)
