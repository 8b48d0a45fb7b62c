// Package app is the composition root of the tickship pipeline.
//
// It wires stages and messengers together and owns their goroutines. No
// stage package imports app.
package app
