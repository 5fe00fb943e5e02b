package version

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compare orders two version strings component-wise numerically, so
// "2.0.0" < "2.1.0" < "2.10.0". Versions that do not parse as semver sort
// below every parseable one and compare lexically among themselves.
// Returns -1, 0 or 1.
func Compare(a, b string) int {
	av, aerr := parseSemver(a)
	bv, berr := parseSemver(b)
	switch {
	case aerr == nil && berr == nil:
		if c := av.Compare(bv); c != 0 {
			return c
		}
		// "2.1" and "2.1.0" coerce to the same value; keep the order total.
		return strings.Compare(a, b)
	case aerr == nil:
		return 1
	case berr == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// Sort orders versions ascending in place.
func Sort(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return Compare(versions[i], versions[j]) < 0
	})
}

// IsPrerelease reports whether v carries a semver pre-release suffix.
func IsPrerelease(v string) bool {
	sv, err := parseSemver(v)
	if err != nil {
		return false
	}
	return sv.Prerelease() != ""
}

// parseSemver strips a leading "v" and parses the version string.
func parseSemver(v string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(v, "v"))
}
