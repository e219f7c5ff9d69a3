package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestRenderErrorUnwrap(t *testing.T) {
	cause := errors.New("device lost")
	err := fmt.Errorf("draw: %w", &RenderError{Viewer: "v1", Frame: 12, Wrapped: cause})

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}

	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatal("expected RenderError")
	}
	if re.Viewer != "v1" || re.Frame != 12 {
		t.Errorf("unexpected render error fields: %+v", re)
	}
	if got := re.Error(); got != "render v1 (frame 12): device lost" {
		t.Errorf("Error() = %q", got)
	}
}

func TestConfigErrorIsConfiguration(t *testing.T) {
	err := &ConfigError{Field: "biofilm.coverage", Message: "must be within [0,1]"}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("ConfigError should match ErrConfiguration")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"exhausted", ErrResourceExhausted, true},
		{"wrapped exhausted", fmt.Errorf("mount: %w", ErrResourceExhausted), true},
		{"render", &RenderError{Viewer: "a", Wrapped: errors.New("x")}, true},
		{"capability", ErrCapability, false},
		{"configuration", ErrConfiguration, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
