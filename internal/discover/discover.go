package discover

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/kattouf/mise/internal/layer"
)

// Context is the input to layer discovery.
type Context struct {
	// Dir is the working directory.
	Dir string
	// Env is the active environment name, or "".
	Env string
	// GlobalConfigFile overrides GlobalPath when set.
	GlobalConfigFile string
	// Ceilings are directories the upward walk never enters. The walk stops
	// below the first one it reaches.
	Ceilings []string
	// StopAtVCS ends the walk at the first directory holding .git.
	StopAtVCS bool
}

// Ref names a layer file and the scope it belongs to.
type Ref struct {
	Path  string
	Scope layer.Scope
}

// Layers returns the layers that apply to ctx.Dir, lowest precedence first:
//
//  1. the global file
//  2. each project file from the outermost ancestor down to Dir
//  3. the env overlay in Dir, when an environment is active and the file exists
//  4. the local file in Dir
//
// Global and local are always listed so that callers can read them as empty
// layers. A path reached twice keeps its first, lower-precedence position.
func Layers(ctx Context) ([]Ref, error) {
	dir, err := filepath.Abs(ctx.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	if ctx.Env != "" {
		if err := ValidateEnvName(ctx.Env); err != nil {
			return nil, err
		}
	}

	global := ctx.GlobalConfigFile
	if global == "" {
		if global, err = GlobalPath(); err != nil {
			return nil, err
		}
	}

	refs := []Ref{{Path: filepath.Clean(global), Scope: layer.Global()}}

	chain := Ancestors(dir, ctx.Ceilings, ctx.StopAtVCS)
	for _, d := range slices.Backward(chain) {
		if p := ProjectPath(d); isFile(p) {
			refs = append(refs, Ref{Path: p, Scope: layer.Project()})
		}
	}

	if ctx.Env != "" {
		if p := EnvPath(dir, ctx.Env); isFile(p) {
			refs = append(refs, Ref{Path: p, Scope: layer.Env(ctx.Env)})
		}
	}

	refs = append(refs, Ref{Path: LocalPath(dir), Scope: layer.Local()})
	Sort(refs)
	return dedupe(refs), nil
}

// Sort orders refs by scope precedence, lowest first. Refs of the same scope
// keep their relative order, so project files stay root-first.
func Sort(refs []Ref) {
	slices.SortStableFunc(refs, func(a, b Ref) int {
		return layer.CompareRank(a.Scope, b.Scope)
	})
}

// Ancestors returns dir followed by its parents, nearest first. The walk ends
// at the filesystem root, just below the first ceiling, or (with stopAtVCS)
// at the first directory holding .git.
func Ancestors(dir string, ceilings []string, stopAtVCS bool) []string {
	stops := make(map[string]bool, len(ceilings))
	for _, c := range ceilings {
		if abs, err := filepath.Abs(c); err == nil {
			stops[abs] = true
		}
	}

	var chain []string
	current := filepath.Clean(dir)
	for !stops[current] {
		chain = append(chain, current)
		if stopAtVCS && hasVCSMarker(current) {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return chain
}

func dedupe(refs []Ref) []Ref {
	seen := make(map[string]bool, len(refs))
	out := refs[:0]
	for _, r := range refs {
		if seen[r.Path] {
			continue
		}
		seen[r.Path] = true
		out = append(out, r)
	}
	return out
}
