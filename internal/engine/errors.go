package engine

import "errors"

var (
	// ErrNoTools indicates a mutation request named no tools.
	ErrNoTools = errors.New("no tools given")

	// ErrInvalidTool indicates a malformed tool argument.
	ErrInvalidTool = errors.New("invalid tool")
)
