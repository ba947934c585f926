package update

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a semantic release number.
type Version struct {
	Major int
	Minor int
	Patch int

	// Prerelease includes its leading dash, e.g. "-rc.1".
	Prerelease string
}

// ParseVersion accepts a semantic version with an optional "v" prefix.
// MINOR and PATCH may be omitted. Build metadata is dropped.
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "v") {
		raw = "v" + raw
	}
	canonical := semver.Canonical(raw)
	if canonical == "" {
		return Version{}, fmt.Errorf("unable to parse version %q", s)
	}

	pre := semver.Prerelease(canonical)
	nums := strings.SplitN(strings.TrimSuffix(strings.TrimPrefix(canonical, "v"), pre), ".", 3)
	var parts [3]int
	for i, n := range nums {
		v, err := strconv.Atoi(n)
		if err != nil {
			return Version{}, fmt.Errorf("unable to parse version %q: %w", s, err)
		}
		parts[i] = v
	}
	return Version{Major: parts[0], Minor: parts[1], Patch: parts[2], Prerelease: pre}, nil
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than o.
// A prerelease is older than its release.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.semver(), o.semver())
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.Major, v.Minor, v.Patch, v.Prerelease)
}

func (v Version) semver() string {
	return "v" + v.String()
}
