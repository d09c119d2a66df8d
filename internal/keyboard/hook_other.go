//go:build !linux

package keyboard

import (
	"context"
)

// StubHook is used on unsupported platforms.
type StubHook struct{}

// NewHook creates a hook for the current platform.
func NewHook(cfg HookConfig) Hook {
	return &StubHook{}
}

// Available returns false on unsupported platforms.
func (s *StubHook) Available() (bool, string) {
	return false, "keyboard capture not implemented for this platform"
}

// Start returns an error on unsupported platforms.
func (s *StubHook) Start(ctx context.Context) (<-chan Event, error) {
	return nil, ErrNotAvailable
}

// Stop is a no-op on unsupported platforms.
func (s *StubHook) Stop() error {
	return nil
}
