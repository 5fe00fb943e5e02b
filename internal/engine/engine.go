package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/kattouf/mise/internal/branding"
	"github.com/kattouf/mise/internal/discover"
	"github.com/kattouf/mise/internal/install"
	"github.com/kattouf/mise/internal/layer"
	"github.com/kattouf/mise/internal/toolset"
	"github.com/kattouf/mise/internal/version"
)

// Options holds the settings the engine threads into discovery and writes.
type Options struct {
	// GlobalConfigFile overrides the default per-user layer path.
	GlobalConfigFile string
	Ceilings         []string
	StopAtVCS        bool
	// KeepEmptyConfig keeps layer files whose last tool was removed.
	KeepEmptyConfig bool
}

// Engine orchestrates queries and mutations.
type Engine struct {
	registry install.Registry
	opts     Options
	logger   *log.Logger
}

// New creates an Engine. A nil logger discards output.
func New(registry install.Registry, opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{registry: registry, opts: opts, logger: logger}
}

func (e *Engine) discoverContext(dir, env string) discover.Context {
	return discover.Context{
		Dir:              dir,
		Env:              env,
		GlobalConfigFile: e.opts.GlobalConfigFile,
		Ceilings:         e.opts.Ceilings,
		StopAtVCS:        e.opts.StopAtVCS,
	}
}

// Layers reads every layer that applies to dir, lowest precedence first.
// A malformed layer aborts the call.
func (e *Engine) Layers(_ context.Context, dir, env string) ([]*layer.Layer, error) {
	refs, err := discover.Layers(e.discoverContext(dir, env))
	if err != nil {
		return nil, err
	}

	layers := make([]*layer.Layer, 0, len(refs))
	for _, ref := range refs {
		l, err := layer.Read(ref.Path, ref.Scope)
		if err != nil {
			return nil, err
		}
		e.logger.Printf("layer %s %s: %d tools", ref.Scope, ref.Path, l.Tools.Len())
		layers = append(layers, l)
	}
	return layers, nil
}

// Current resolves the effective version of each requested tool. It never
// writes.
func (e *Engine) Current(ctx context.Context, req CurrentRequest) ([]CurrentResult, error) {
	layers, err := e.Layers(ctx, req.Dir, req.Env)
	if err != nil {
		return nil, err
	}
	mapping := toolset.Merge(layers)

	var entries []toolset.Entry
	if len(req.Tools) == 0 {
		entries = mapping.Entries()
	} else {
		for _, tool := range req.Tools {
			entry, ok := mapping.Get(tool)
			if !ok {
				entry = toolset.Entry{Tool: tool}
			}
			entries = append(entries, entry)
		}
	}

	results := make([]CurrentResult, 0, len(entries))
	for _, entry := range entries {
		res := CurrentResult{
			Tool:       entry.Tool,
			Configured: entry.Source != nil,
			Requested:  entry.Specs,
			Source:     entry.Source,
		}
		if res.Configured {
			res.Version, res.Resolved, err = toolset.Resolve(ctx, e.registry, entry.Tool, entry.Specs)
			if err != nil {
				return nil, err
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// ResolveTarget returns the layer a mutation in dir writes to. The choice
// depends only on the arguments, never on which files exist.
func (e *Engine) ResolveTarget(dir, env string, target Target) (discover.Ref, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return discover.Ref{}, fmt.Errorf("resolving working directory: %w", err)
	}

	switch target {
	case TargetGlobal:
		path := e.opts.GlobalConfigFile
		if path == "" {
			if path, err = discover.GlobalPath(); err != nil {
				return discover.Ref{}, err
			}
		}
		return discover.Ref{Path: path, Scope: layer.Global()}, nil
	case TargetLocal:
		return discover.Ref{Path: discover.LocalPath(abs), Scope: layer.Local()}, nil
	case TargetDefault:
		if env != "" {
			if err := discover.ValidateEnvName(env); err != nil {
				return discover.Ref{}, err
			}
			return discover.Ref{Path: discover.EnvPath(abs, env), Scope: layer.Env(env)}, nil
		}
		return discover.Ref{Path: discover.ProjectPath(abs), Scope: layer.Project()}, nil
	default:
		return discover.Ref{}, fmt.Errorf("unknown target %d", target)
	}
}

// Use installs each requested version and records the installed versions in
// the target layer with a single write. All specs are parsed and every
// install must succeed before the layer is touched.
func (e *Engine) Use(ctx context.Context, req UseRequest) (*UseResult, error) {
	if len(req.Tools) == 0 {
		return nil, ErrNoTools
	}

	specs := make([]version.Spec, len(req.Tools))
	for i, tr := range req.Tools {
		s, err := version.Parse(tr.Spec)
		if err != nil {
			return nil, fmt.Errorf("parsing version for %s: %w", tr.Tool, err)
		}
		specs[i] = s
	}

	ref, err := e.ResolveTarget(req.Dir, req.Env, req.Target)
	if err != nil {
		return nil, err
	}
	// Fail on a malformed target before spending time on installs.
	if _, err := layer.Read(ref.Path, ref.Scope); err != nil {
		return nil, err
	}

	result := &UseResult{Path: ref.Path, Scope: ref.Scope}
	for i, tr := range req.Tools {
		e.logger.Printf("ensuring %s@%s is installed", tr.Tool, specs[i])
		v, err := e.registry.EnsureInstalled(ctx, tr.Tool, specs[i])
		if err != nil {
			if !errors.Is(err, install.ErrInstall) {
				err = &install.Error{Tool: tr.Tool, Spec: specs[i], Err: err}
			}
			return nil, err
		}
		if v == "" {
			return nil, &install.Error{Tool: tr.Tool, Spec: specs[i], Err: errors.New("registry returned no version")}
		}
		result.Installed = append(result.Installed, InstalledTool{Tool: tr.Tool, Spec: specs[i], Version: v})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l, err := layer.Read(ref.Path, ref.Scope)
	if err != nil {
		return nil, err
	}
	created := !l.Exists()
	before := l.Tools.Clone()
	for _, it := range result.Installed {
		s, err := version.Parse(it.Version)
		if err != nil {
			return nil, fmt.Errorf("recording %s: %w", it.Tool, err)
		}
		l.Tools.Set(it.Tool, s)
	}
	// A hand-written section that already pins these versions keeps its
	// formatting.
	if l.Exists() && l.Tools.Equal(before) {
		result.Outcome = layer.Unchanged
		return result, nil
	}

	result.Outcome, err = layer.Write(l, layer.WriteOptions{KeepEmpty: e.opts.KeepEmptyConfig})
	if err != nil {
		return nil, err
	}
	e.logger.Printf("%s %s", result.Outcome, ref.Path)

	if created && result.Outcome == layer.Written && ref.Scope.Kind() == layer.ScopeLocal {
		e.ignoreLocal(filepath.Dir(ref.Path))
	}
	return result, nil
}

// ignoreLocal adds the local file to .gitignore when dir is inside a git
// work tree. Failure only warrants a log line.
func (e *Engine) ignoreLocal(dir string) {
	if discover.FindVCSRoot(dir) == "" {
		return
	}
	if err := layer.EnsureIgnored(dir, branding.LocalFile()); err != nil {
		e.logger.Printf("warning: %v", err)
	}
}

// Remove deletes the named tools from the target layer. Tools that are not
// present are ignored; a file left without content is deleted.
func (e *Engine) Remove(_ context.Context, req RemoveRequest) (*RemoveResult, error) {
	if len(req.Tools) == 0 {
		return nil, ErrNoTools
	}

	ref, err := e.ResolveTarget(req.Dir, req.Env, req.Target)
	if err != nil {
		return nil, err
	}
	l, err := layer.Read(ref.Path, ref.Scope)
	if err != nil {
		return nil, err
	}

	result := &RemoveResult{Path: ref.Path, Scope: ref.Scope, Outcome: layer.Unchanged}
	for _, tool := range req.Tools {
		if l.Tools.Delete(tool) {
			result.Removed = append(result.Removed, tool)
		}
	}
	if len(result.Removed) == 0 {
		return result, nil
	}

	result.Outcome, err = layer.Write(l, layer.WriteOptions{KeepEmpty: e.opts.KeepEmptyConfig})
	if err != nil {
		return nil, err
	}
	e.logger.Printf("%s %s", result.Outcome, ref.Path)
	return result, nil
}
