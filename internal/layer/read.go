package layer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kattouf/mise/internal/branding"
	"github.com/kattouf/mise/internal/version"
)

// Read parses the layer file at path. A missing file yields an empty layer;
// a malformed one yields a *ParseError.
func Read(path string, scope Scope) (*Layer, error) {
	l := New(path, scope)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading layer %s: %w", path, err)
	}
	l.exists = true

	tools, err := decodeTools(path, data, branding.ToolsTable())
	if err != nil {
		return nil, err
	}
	l.Tools = tools
	return l, nil
}

// decodeTools extracts the named table from TOML source, keeping the order
// in which keys appear in the file.
func decodeTools(path string, data []byte, table string) (*Tools, error) {
	var doc map[string]any
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, toParseError(path, err)
	}

	tools := NewTools()
	if !md.IsDefined(table) {
		return tools, nil
	}

	// Line numbers are best effort; the document already decoded.
	sec, hasHeader, _ := findSection(data, table)
	fail := func(key, msg string) error {
		pe := &ParseError{Path: path, Key: table, Message: msg}
		if key != "" {
			pe.Key = table + "." + key
			if hasHeader {
				pe.Line = sec.keys[key]
			}
		} else if hasHeader {
			pe.Line = sec.line
		}
		if pe.Line > 0 {
			pe.Col = 1
		}
		return pe
	}

	// Implicitly created tables ([tools.x] or dotted keys) carry no type.
	if typ := md.Type(table); typ != "Hash" && typ != "" {
		return nil, fail("", "expected a table, got "+strings.ToLower(typ))
	}
	raw, _ := doc[table].(map[string]any)

	for name := range raw {
		switch typ := md.Type(table, name); typ {
		case "String", "Array":
		default:
			return nil, fail(name, "expected a version string or an array of version strings, got "+strings.ToLower(typ))
		}
	}

	issues, err := validateTools(raw)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	if len(issues) > 0 {
		return nil, issueError(issues, fail)
	}

	for _, name := range orderedNames(md, table, raw) {
		specs, err := toSpecs(raw[name])
		if err != nil {
			return nil, fail(name, err.Error())
		}
		tools.Set(name, specs...)
	}
	return tools, nil
}

func toParseError(path string, err error) *ParseError {
	var perr toml.ParseError
	if errors.As(err, &perr) {
		return &ParseError{
			Path:    path,
			Line:    perr.Position.Line,
			Col:     perr.Position.Col,
			Message: perr.Message,
		}
	}
	return &ParseError{Path: path, Message: err.Error()}
}

// issueError reports the issues found for the first offending key.
func issueError(issues []Issue, fail func(key, msg string) error) error {
	first := strings.TrimPrefix(issues[0].Path, "/")
	key, _, _ := strings.Cut(first, "/")

	var msgs []string
	for _, is := range issues {
		k, _, _ := strings.Cut(strings.TrimPrefix(is.Path, "/"), "/")
		if k == key {
			msgs = append(msgs, is.Message)
		}
	}
	return fail(key, strings.Join(msgs, "; "))
}

// orderedNames returns the table's keys in document order. Keys the metadata
// does not list fall back to sorted order after the rest.
func orderedNames(md toml.MetaData, table string, raw map[string]any) []string {
	var names []string
	seen := make(map[string]bool, len(raw))
	for _, k := range md.Keys() {
		if len(k) != 2 || k[0] != table || seen[k[1]] {
			continue
		}
		if _, ok := raw[k[1]]; ok {
			seen[k[1]] = true
			names = append(names, k[1])
		}
	}
	var rest []string
	for name := range raw {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

func toSpecs(v any) ([]version.Spec, error) {
	switch val := v.(type) {
	case string:
		s, err := version.Parse(val)
		if err != nil {
			return nil, err
		}
		return []version.Spec{s}, nil
	case []any:
		specs := make([]version.Spec, 0, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d is not a string", i)
			}
			s, err := version.Parse(str)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			specs = append(specs, s)
		}
		return specs, nil
	default:
		return nil, fmt.Errorf("unexpected value of type %T", v)
	}
}
