package netbound

import (
	"errors"
	"fmt"
)

// MessageUnknown is shown when a failure carries no message of its own.
const MessageUnknown = "Unknown error"

// MessageCacheUnavailable is shown when an offline run cannot read the local store.
const MessageCacheUnavailable = "Cached data is unavailable."

// MessageOffline is the usual Resource.OfflineMessage for network-only operations.
const MessageOffline = "Can't do that operation without an internet connection"

var (
	ErrEmptySlot     = errors.New("netbound: resource slot is required")
	ErrNilCall       = errors.New("netbound: CreateCall is required when fetching from network")
	ErrNilTranslator = errors.New("netbound: HandleSuccess is required when fetching from network")
	ErrNoSource      = errors.New("netbound: resource has neither a cache loader nor a network call")
)

type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
