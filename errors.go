package gpio

import "github.com/pkg/errors"

var (
	// ErrModeNotSet means no numbering scheme was chosen before a
	// configuration operation.
	ErrModeNotSet = errors.New("numbering mode has not been set")
	// ErrModeAlreadySet means SetMode was called a second time without a
	// full Cleanup in between.
	ErrModeAlreadySet = errors.New("numbering mode is already set")
	// ErrAlreadyConfigured means Setup was called for a channel that
	// already has a ledger entry.
	ErrAlreadyConfigured = errors.New("channel is already configured")
	// ErrNotConfigured means the channel has no ledger entry.
	ErrNotConfigured = errors.New("channel is not configured")
	// ErrWrongDirection means the channel is configured for the other
	// direction than the operation requires.
	ErrWrongDirection = errors.New("channel is configured for the other direction")
)
