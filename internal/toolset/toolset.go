package toolset

import (
	"context"
	"fmt"
	"slices"

	"github.com/kattouf/mise/internal/install"
	"github.com/kattouf/mise/internal/layer"
	"github.com/kattouf/mise/internal/version"
)

// Entry is the effective request for one tool and the layer it came from.
type Entry struct {
	Tool   string
	Specs  []version.Spec
	Source *layer.Layer
}

// Mapping is the ordered result of Merge.
type Mapping struct {
	names   []string
	entries map[string]Entry
}

// Merge folds layers into one mapping. Layers are applied in scope
// precedence order; layers of the same scope apply in the order given, so
// pass project layers root-first. A higher layer replaces a tool's whole
// request list, and the tool keeps the position of its first appearance.
func Merge(layers []*layer.Layer) *Mapping {
	ordered := slices.Clone(layers)
	slices.SortStableFunc(ordered, func(a, b *layer.Layer) int {
		return layer.CompareRank(a.Scope, b.Scope)
	})

	m := &Mapping{entries: make(map[string]Entry)}
	for _, l := range ordered {
		for _, name := range l.Tools.Names() {
			specs, _ := l.Tools.Get(name)
			if _, ok := m.entries[name]; !ok {
				m.names = append(m.names, name)
			}
			m.entries[name] = Entry{Tool: name, Specs: slices.Clone(specs), Source: l}
		}
	}
	return m
}

// Get returns the entry for tool.
func (m *Mapping) Get(tool string) (Entry, bool) {
	e, ok := m.entries[tool]
	return e, ok
}

// Entries returns every entry in order.
func (m *Mapping) Entries() []Entry {
	out := make([]Entry, 0, len(m.names))
	for _, n := range m.names {
		out = append(out, m.entries[n])
	}
	return out
}

// Len returns the number of tools.
func (m *Mapping) Len() int { return len(m.names) }

// Resolve returns the installed version that satisfies the first spec, in
// preference order, that any installed version satisfies. Exact specs need
// the literal version installed; prefix and latest specs take the highest
// match. found is false when no spec is satisfied.
func Resolve(ctx context.Context, lister install.Lister, tool string, specs []version.Spec) (resolved string, found bool, err error) {
	installed, err := lister.InstalledVersions(ctx, tool)
	if err != nil {
		return "", false, fmt.Errorf("listing installed versions of %s: %w", tool, err)
	}
	for _, s := range specs {
		if v, ok := version.Select(s, installed); ok {
			return v, true, nil
		}
	}
	return "", false, nil
}
