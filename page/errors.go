package page

import (
	"errors"
	"fmt"
)

// ErrFull is returned by Add when the page is already at capacity.
var ErrFull = errors.New("page: full")

// ErrCorrupt is returned by Deserialize when a slot's header or record
// count cannot possibly be valid (truncated buffer, object_count beyond
// the configured capacity).
var ErrCorrupt = errors.New("page: corrupt slot")

func errFull() error { return ErrFull }

func errSlotTooSmall(need, got int) error {
	return fmt.Errorf("page: slot size %d too small, need at least %d: %w", got, need, ErrCorrupt)
}
