package layer

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kattouf/mise/internal/branding"
	"github.com/kattouf/mise/internal/platform"
)

// commit is swapped out in tests to simulate a failed write.
var commit = platform.AtomicWrite

// Outcome describes what Write did to the file.
type Outcome int

const (
	// Unchanged means the file already held the rendered content.
	Unchanged Outcome = iota
	// Written means the file was created or replaced.
	Written
	// Deleted means the file was removed because nothing was left in it.
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Written:
		return "written"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// WriteOptions tunes Write.
type WriteOptions struct {
	// KeepEmpty keeps a file that has no content left instead of deleting it.
	KeepEmpty bool
}

// Write persists l.Tools to l.Path.
//
// The file is re-read at write time and only its [tools] section is
// replaced; every byte outside that section is kept. Existing keys keep
// their position and new keys follow them. An empty mapping removes the
// section. The file is deleted only when nothing but whitespace is left and
// opts.KeepEmpty is unset; a remainder of comments or other tables keeps it.
//
// There is no locking. Two processes writing the same file concurrently each
// commit a complete file and the last rename wins.
func Write(l *Layer, opts WriteOptions) (Outcome, error) {
	data, err := os.ReadFile(l.Path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Unchanged, &WriteError{Path: l.Path, Err: err}
	}

	out, err := splice(l.Path, data, branding.ToolsTable(), l.Tools)
	if err != nil {
		return Unchanged, err
	}

	if len(bytes.TrimSpace(out)) == 0 && !opts.KeepEmpty {
		if !exists {
			return Unchanged, nil
		}
		if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Unchanged, &WriteError{Path: l.Path, Err: err}
		}
		l.exists = false
		return Deleted, nil
	}

	if exists && bytes.Equal(out, data) {
		return Unchanged, nil
	}
	if !exists && l.Tools.Len() == 0 {
		return Unchanged, nil
	}

	if err := commit(l.Path, out, platform.FileMode(l.Path, 0o644)); err != nil {
		return Unchanged, &WriteError{Path: l.Path, Err: err}
	}
	l.exists = true
	return Written, nil
}

// splice returns data with the table's section replaced by a rendering of
// tools.
func splice(path string, data []byte, table string, tools *Tools) ([]byte, error) {
	var doc map[string]any
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, toParseError(path, err)
	}

	sec, found, err := findSection(data, table)
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error()}
	}
	if !found && md.IsDefined(table) {
		return nil, fmt.Errorf("writing %s: %w", path, ErrUnsupportedLayout)
	}

	rendered, err := render(table, tools)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}

	var buf bytes.Buffer
	switch {
	case found:
		buf.Write(data[:sec.start])
		buf.Write(rendered)
		buf.Write(data[sec.end:])
	case len(rendered) == 0:
		buf.Write(data)
	default:
		buf.Write(data)
		if len(bytes.TrimSpace(data)) > 0 {
			if !bytes.HasSuffix(data, []byte("\n")) {
				buf.WriteByte('\n')
			}
			if !bytes.HasSuffix(data, []byte("\n\n")) {
				buf.WriteByte('\n')
			}
		}
		buf.Write(rendered)
	}
	return buf.Bytes(), nil
}

// render produces the section text for tools, or nothing for an empty
// mapping. Keys and strings are encoded one entry at a time so the
// insertion order survives.
func render(table string, tools *Tools) ([]byte, error) {
	if tools == nil || tools.Len() == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s]\n", table)
	enc := toml.NewEncoder(&buf)
	for _, name := range tools.Names() {
		specs, _ := tools.Get(name)
		var entry map[string]any
		if len(specs) == 1 {
			entry = map[string]any{name: specs[0].String()}
		} else {
			vals := make([]string, len(specs))
			for i, s := range specs {
				vals[i] = s.String()
			}
			entry = map[string]any{name: vals}
		}
		if err := enc.Encode(entry); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
	}
	return []byte(strings.ReplaceAll(buf.String(), "\r\n", "\n")), nil
}
