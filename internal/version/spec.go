package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSpec is returned by Parse for an empty request.
var ErrInvalidSpec = errors.New("invalid version spec")

// Kind classifies a parsed Spec.
type Kind int

const (
	// Exact matches one literal version string.
	Exact Kind = iota
	// Prefix matches any version whose leading components equal the prefix.
	Prefix
	// Latest matches the highest available version.
	Latest
)

// LatestToken is the symbolic request for the most recent version.
const LatestToken = "latest"

var (
	fullPattern   = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	prefixPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	case Latest:
		return "latest"
	default:
		return "unknown"
	}
}

// Spec is an immutable, parsed version request.
type Spec struct {
	kind Kind
	raw  string
}

// Parse classifies raw. A full three-component numeric version is Exact, a
// shorter numeric prefix is Prefix, "latest" is Latest, and any other
// non-empty string is an opaque Exact (tags like "lts" or "1.0.0-rc1").
func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Spec{}, fmt.Errorf("%w: empty version", ErrInvalidSpec)
	case s == LatestToken:
		return Spec{kind: Latest, raw: s}, nil
	case fullPattern.MatchString(s):
		return Spec{kind: Exact, raw: s}, nil
	case prefixPattern.MatchString(s):
		return Spec{kind: Prefix, raw: s}, nil
	default:
		return Spec{kind: Exact, raw: s}, nil
	}
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(raw string) Spec {
	s, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind returns the spec classification.
func (s Spec) Kind() Kind { return s.kind }

// String returns the request exactly as written.
func (s Spec) String() string { return s.raw }

// Matches reports whether v satisfies the spec. Latest matches every
// stable version; see Select for how candidates are ranked.
func (s Spec) Matches(v string) bool {
	switch s.kind {
	case Exact:
		return v == s.raw
	case Prefix:
		if !strings.HasPrefix(v, s.raw) {
			return false
		}
		rest := v[len(s.raw):]
		if rest == "" {
			return true
		}
		if rest[0] != '.' && rest[0] != '-' {
			return false
		}
		return !IsPrerelease(v)
	case Latest:
		return !IsPrerelease(v)
	default:
		return false
	}
}

// Select returns the version from candidates that best satisfies the spec:
// the literal for Exact, the highest match for Prefix and Latest. The second
// return is false when nothing matches.
func Select(s Spec, candidates []string) (string, bool) {
	best := ""
	found := false
	for _, c := range candidates {
		if !s.Matches(c) {
			continue
		}
		if !found || Compare(c, best) > 0 {
			best = c
			found = true
		}
	}
	return best, found
}
