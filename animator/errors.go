package animator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPeriod rejects a keyframe registration with a non-positive period.
	ErrInvalidPeriod = errors.New("keyframe period must be positive")

	// ErrDataFetch marks an external data source that could not be reached.
	// Collectors recover from it by keeping their last good value.
	ErrDataFetch = errors.New("data fetch failed")

	// ErrAssetLoad means an overlay asset was missing or corrupt. The overlay
	// stays disabled for the rest of the process.
	ErrAssetLoad = errors.New("asset load failed")

	// ErrMalformedShutdownTime disables the shutdown scheduler.
	ErrMalformedShutdownTime = errors.New("malformed shutdown time")
)

// CallbackError is a scene draw callback that failed or panicked.
type CallbackError struct {
	Scene SceneID
	Tick  Tick
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("scene %s keyframe failed at tick %d: %v", e.Scene, e.Tick, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
