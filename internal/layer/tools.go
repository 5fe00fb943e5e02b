package layer

import (
	"slices"

	"github.com/kattouf/mise/internal/version"
)

// Tools is an insertion-ordered mapping from tool name to an ordered list of
// version requests. The zero value is not usable; call NewTools.
type Tools struct {
	names []string
	specs map[string][]version.Spec
}

// NewTools returns an empty mapping.
func NewTools() *Tools {
	return &Tools{specs: make(map[string][]version.Spec)}
}

// Get returns the requests for name.
func (t *Tools) Get(name string) ([]version.Spec, bool) {
	s, ok := t.specs[name]
	return s, ok
}

// Set stores specs for name. An existing key keeps its position; a new key is
// appended.
func (t *Tools) Set(name string, specs ...version.Spec) {
	if _, ok := t.specs[name]; !ok {
		t.names = append(t.names, name)
	}
	t.specs[name] = slices.Clone(specs)
}

// Delete removes name and reports whether it was present.
func (t *Tools) Delete(name string) bool {
	if _, ok := t.specs[name]; !ok {
		return false
	}
	delete(t.specs, name)
	t.names = slices.DeleteFunc(t.names, func(n string) bool { return n == name })
	return true
}

// Names returns the tool names in insertion order.
func (t *Tools) Names() []string {
	return slices.Clone(t.names)
}

// Len returns the number of tools.
func (t *Tools) Len() int { return len(t.names) }

// Clone returns an independent copy.
func (t *Tools) Clone() *Tools {
	c := NewTools()
	for _, n := range t.names {
		c.Set(n, t.specs[n]...)
	}
	return c
}

// Equal reports whether both mappings hold the same entries in the same order.
func (t *Tools) Equal(o *Tools) bool {
	if !slices.Equal(t.names, o.names) {
		return false
	}
	for _, n := range t.names {
		if !slices.Equal(t.specs[n], o.specs[n]) {
			return false
		}
	}
	return true
}
