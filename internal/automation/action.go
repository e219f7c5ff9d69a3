package automation

import (
	"fmt"

	"github.com/san-kum/mesviz/internal/viewer"
)

const (
	ActionPause   = "pause"
	ActionResume  = "resume"
	ActionRetry   = "retry"
	ActionSelect  = "select"
	ActionClear   = "clear"
	ActionOrbit   = "orbit"
	ActionZoomIn  = "zoom_in"
	ActionZoomOut = "zoom_out"
	ActionSpeed   = "speed"
)

// Action is one scripted viewer call, applied just before host frame Frame
// (1-based) is flushed.
type Action struct {
	Frame int     `yaml:"frame"`
	Do    string  `yaml:"do"`
	Part  string  `yaml:"part,omitempty"`
	Yaw   float64 `yaml:"yaw,omitempty"`
	Pitch float64 `yaml:"pitch,omitempty"`
	Value float64 `yaml:"value,omitempty"`
}

func (a Action) Validate() error {
	if a.Frame < 1 {
		return fmt.Errorf("action %q: frame must be at least 1", a.Do)
	}
	switch a.Do {
	case ActionPause, ActionResume, ActionRetry, ActionClear, ActionOrbit, ActionZoomIn, ActionZoomOut:
	case ActionSelect:
		if a.Part == "" {
			return fmt.Errorf("action select: part is required")
		}
	case ActionSpeed:
		if a.Value < 0 {
			return fmt.Errorf("action speed: value must not be negative")
		}
	default:
		return fmt.Errorf("unknown action %q", a.Do)
	}
	return nil
}

// Apply performs the action on v.
func (a Action) Apply(v *viewer.Viewer) error {
	switch a.Do {
	case ActionPause:
		v.Pause()
	case ActionResume:
		v.Resume()
	case ActionRetry:
		return v.Retry()
	case ActionSelect:
		return v.Select(a.Part)
	case ActionClear:
		v.ClearSelection()
	case ActionOrbit:
		if c := v.Camera(); c != nil {
			c.Orbit(a.Yaw, a.Pitch)
		}
	case ActionZoomIn:
		if c := v.Camera(); c != nil {
			c.ZoomIn()
		}
	case ActionZoomOut:
		if c := v.Camera(); c != nil {
			c.ZoomOut()
		}
	case ActionSpeed:
		if f := v.Flow(); f != nil {
			f.SetSpeed(a.Value)
		}
	default:
		return fmt.Errorf("unknown action %q", a.Do)
	}
	return nil
}
