package layer

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("config parse error")
	// ErrIO matches every *WriteError.
	ErrIO = errors.New("config write failed")
	// ErrUnsupportedLayout is returned by Write when the tools table is
	// defined inline or with dotted keys instead of a [tools] header.
	ErrUnsupportedLayout = errors.New("tools table is not defined by a [tools] header")
)

// Layer is the parsed content of one configuration file.
type Layer struct {
	Path  string
	Scope Scope
	Tools *Tools

	exists bool
}

// New returns an empty layer for a file that has not been read.
func New(path string, scope Scope) *Layer {
	return &Layer{Path: path, Scope: scope, Tools: NewTools()}
}

// Exists reports whether the file was present when the layer was read.
func (l *Layer) Exists() bool { return l.exists }

// ParseError reports a malformed layer file.
type ParseError struct {
	Path    string
	Line    int
	Col     int
	Key     string
	Message string
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Path, e.Line, e.Col)
	}
	if e.Key != "" {
		return fmt.Sprintf("%s: %s: %s", loc, e.Key, e.Message)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// Is makes errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// WriteError reports a failed commit of a layer file. The target file is
// left as it was before the write started.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrIO) match.
func (e *WriteError) Is(target error) bool { return target == ErrIO }
