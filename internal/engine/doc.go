// Package engine implements the commands that query and change tool version
// requests: current, use and use --rm.
//
// The engine sits between the CLI and the lower layers. It runs layer
// discovery, merges the layers, resolves requests against the install
// registry and, for mutations, picks exactly one target layer before anything
// is installed or written.
//
// Every call re-reads the layer files from disk. Nothing is cached between
// calls and no file is held open or locked while an install runs.
package engine
