package engine

import (
	"errors"
	"fmt"
)

// Domain errors for the visualization engine.
var (
	// ErrCapability indicates the host has no usable rendering context.
	// Not retryable; the caller shows a fallback panel.
	ErrCapability = errors.New("mesviz: no usable rendering context")

	// ErrResourceExhausted indicates the renderer pool is at capacity and
	// holds no idle handle. Retryable after a release.
	ErrResourceExhausted = errors.New("mesviz: renderer pool exhausted")

	// ErrConfiguration indicates an invalid or unsupported model definition.
	ErrConfiguration = errors.New("mesviz: invalid model configuration")

	// ErrHandleReleased indicates an attempt to reuse a released renderer id.
	ErrHandleReleased = errors.New("mesviz: renderer handle already released")

	// ErrUnmounted indicates an operation on a viewer after unmount.
	ErrUnmounted = errors.New("mesviz: viewer unmounted")
)

// RenderError wraps a failed draw or context operation with the viewer
// that produced it.
type RenderError struct {
	Viewer  string
	Frame   int
	Wrapped error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (frame %d): %v", e.Viewer, e.Frame, e.Wrapped)
}

func (e *RenderError) Unwrap() error {
	return e.Wrapped
}

// ConfigError names the offending field of a model definition.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration.Error(), e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// IsRetryable reports whether err may succeed if the operation is repeated
// later without changing its inputs.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrResourceExhausted) {
		return true
	}
	var re *RenderError
	return errors.As(err, &re)
}
