// Package backend defines the host rendering environment the engine draws
// through.
//
// A [Host] is the capability query surface of one environment: it can be
// queried for what it supports and asked for rendering contexts. Two hosts
// ship with the engine:
//
//   - software: CPU rasterizer backed by gogpu/gg, always available
//   - raylib (package gui): desktop GPU window
//
// The terminal viewer (package viz) provides a third, braille-based host.
//
// Contexts are scarce on real GPUs, so callers do not create them directly:
// the renderer pool (package rpool) owns every live context.
package backend
