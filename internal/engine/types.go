package engine

import (
	"fmt"
	"strings"

	"github.com/kattouf/mise/internal/layer"
	"github.com/kattouf/mise/internal/version"
)

// Target selects the layer a mutation writes to.
type Target int

const (
	// TargetDefault writes to the active environment's overlay when an
	// environment is set, and to the project file in Dir otherwise.
	TargetDefault Target = iota
	// TargetGlobal writes to the per-user file.
	TargetGlobal
	// TargetLocal writes to the local override file in Dir.
	TargetLocal
)

func (t Target) String() string {
	switch t {
	case TargetDefault:
		return "default"
	case TargetGlobal:
		return "global"
	case TargetLocal:
		return "local"
	default:
		return "unknown"
	}
}

// ToolRequest is one tool@version argument.
type ToolRequest struct {
	Tool string
	Spec string
}

// ParseToolRequest splits "tool@version". A bare tool name requests the
// latest version. An @ directly after ':' or '/' belongs to the tool name,
// as in npm:@scope/pkg@1.0.0.
func ParseToolRequest(arg string) (ToolRequest, error) {
	tool, spec := arg, version.LatestToken
	i := strings.LastIndex(arg, "@")
	if i > 0 && arg[i-1] != ':' && arg[i-1] != '/' {
		tool, spec = arg[:i], arg[i+1:]
	}
	if i == 0 || strings.TrimSpace(tool) == "" {
		return ToolRequest{}, fmt.Errorf("%w: %q has no tool name", ErrInvalidTool, arg)
	}
	return ToolRequest{Tool: tool, Spec: spec}, nil
}

func (r ToolRequest) String() string { return r.Tool + "@" + r.Spec }

// CurrentRequest contains parameters for Current.
type CurrentRequest struct {
	Dir string
	Env string
	// Tools restricts the result to these tools, in this order. Empty means
	// every configured tool.
	Tools []string
}

// CurrentResult is the effective state of one tool.
type CurrentResult struct {
	Tool string
	// Configured is false when no layer mentions the tool.
	Configured bool
	Requested  []version.Spec
	// Version is the installed version chosen for the request; empty when
	// Resolved is false.
	Version  string
	Resolved bool
	Source   *layer.Layer
}

// UseRequest contains parameters for Use.
type UseRequest struct {
	Dir    string
	Env    string
	Target Target
	Tools  []ToolRequest
}

// InstalledTool records the version installed for one request.
type InstalledTool struct {
	Tool    string
	Spec    version.Spec
	Version string
}

// UseResult contains the outcome of Use.
type UseResult struct {
	Path      string
	Scope     layer.Scope
	Installed []InstalledTool
	Outcome   layer.Outcome
}

// RemoveRequest contains parameters for Remove.
type RemoveRequest struct {
	Dir    string
	Env    string
	Target Target
	Tools  []string
}

// RemoveResult contains the outcome of Remove.
type RemoveResult struct {
	Path  string
	Scope layer.Scope
	// Removed lists the tools that were present and are now gone.
	Removed []string
	Outcome layer.Outcome
}
