// Package viz is the terminal front end of mesviz.
//
// [TermHost] implements backend.Host over a braille [Canvas], one dot per
// surface pixel, and always classifies as the basic tier. [Model] is a
// Bubble Tea program that mounts one viewer on that host and flushes the
// frame queue on every tick.
//
// # Key Bindings
//
//	Space  - Pause/Resume
//	R      - Retry a failed viewer
//	Arrows - Orbit the camera
//	+/-    - Zoom
//	Tab    - Select the next part
//	[ ]    - Flow speed
//	C      - Save a capture
//	G      - Toggle GIF recording
//	T      - Cycle panel themes
package viz
