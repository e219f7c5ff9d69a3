// Package engine holds the primitives shared by every part of the MES
// visualization engine.
//
//   - [Simulation]: anything advanced once per frame by a frame driver
//   - error taxonomy: [ErrCapability], [ErrResourceExhausted],
//     [ErrConfiguration], [RenderError]
//   - the package logger: [SetLogger], [Logger]
//
// # Thread Safety
//
// Simulations are owned by exactly one frame driver and are NOT safe for
// concurrent use. The logger is safe to swap from any goroutine.
package engine
