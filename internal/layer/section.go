package layer

import (
	"bytes"

	"github.com/pelletier/go-toml/v2/unstable"
)

// section locates a table's own lines within a file. end stops after the last
// key line so trailing comments and blank lines stay with whatever follows.
type section struct {
	start int
	end   int
	line  int
	// keys maps each key written in the section to its 1-based line.
	keys map[string]int
}

// expression is one top-level TOML expression reduced to what splicing
// needs: where its line starts and, for headers and key/values, its key.
type expression struct {
	kind   unstable.Kind
	offset int
	key    []string
}

// scanExpressions tokenizes data and returns its top-level expressions in
// document order. Comments are kept so they bound the preceding section.
func scanExpressions(data []byte) ([]expression, error) {
	p := unstable.Parser{KeepComments: true}
	p.Reset(data)

	var exprs []expression
	for p.NextExpression() {
		n := p.Expression()
		e := expression{kind: n.Kind, offset: int(n.Raw.Offset)}
		switch n.Kind {
		case unstable.Table, unstable.ArrayTable, unstable.KeyValue:
			it := n.Key()
			first := true
			for it.Next() {
				k := it.Node()
				if first {
					e.offset = int(k.Raw.Offset)
					first = false
				}
				e.key = append(e.key, string(k.Data))
			}
		}
		exprs = append(exprs, e)
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return exprs, nil
}

// lineStart returns the offset of the first byte of the line holding off.
func lineStart(data []byte, off int) int {
	return bytes.LastIndexByte(data[:off], '\n') + 1
}

// lineNumber returns the 1-based line of off.
func lineNumber(data []byte, off int) int {
	return bytes.Count(data[:off], []byte("\n")) + 1
}

// trimTrailingBlank moves end back over whitespace-only lines.
func trimTrailingBlank(data []byte, start, end int) int {
	for end > start {
		prev := lineStart(data, end-1)
		if len(bytes.TrimSpace(data[prev:end])) > 0 {
			return end
		}
		end = prev
	}
	return end
}

// findSection returns the byte range of the [table] section in data. Header
// positions come from a TOML tokenizer, so brackets inside strings and
// comments are never taken for a header.
func findSection(data []byte, table string) (section, bool, error) {
	exprs, err := scanExpressions(data)
	if err != nil {
		return section{}, false, err
	}

	for i, e := range exprs {
		if e.kind != unstable.Table || len(e.key) != 1 || e.key[0] != table {
			continue
		}
		start := lineStart(data, e.offset)
		sec := section{start: start, line: lineNumber(data, start), keys: map[string]int{}}

		// Ends at the start of the next expression that is not one of this
		// table's keys, minus the blank lines in between.
		last := i
		end := len(data)
		for j := i + 1; j < len(exprs); j++ {
			next := exprs[j]
			if next.kind == unstable.Table || next.kind == unstable.ArrayTable {
				end = lineStart(data, next.offset)
				break
			}
			if next.kind == unstable.KeyValue {
				last = j
				if len(next.key) == 1 {
					if _, seen := sec.keys[next.key[0]]; !seen {
						sec.keys[next.key[0]] = lineNumber(data, next.offset)
					}
				}
			}
		}
		if last+1 < len(exprs) && (exprs[last+1].kind == unstable.Comment) {
			end = lineStart(data, exprs[last+1].offset)
		}
		if last == i {
			// A header with no keys: the section is just the header line.
			if nl := bytes.IndexByte(data[start:], '\n'); nl >= 0 {
				end = start + nl + 1
			} else {
				end = len(data)
			}
			sec.end = end
			return sec, true, nil
		}
		sec.end = trimTrailingBlank(data, start, end)
		return sec, true, nil
	}
	return section{}, false, nil
}
