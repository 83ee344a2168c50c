// Package viz renders columns and trajectories in the terminal: a
// braille-dot canvas for the ray diagram, asciigraph beam-envelope
// profiles, a detector-plane spot scatter, and a bubbletea live view
// with keyboard parameter editing.
//
// The package only consumes trajectories; every parameter edit builds a
// fresh column and re-traces, so the engine stays pure.
package viz
