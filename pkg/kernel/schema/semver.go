package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// SemverRe matches MAJOR.MINOR.PATCH version strings.
var SemverRe = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// IsSemver reports whether v looks like "X.Y.Z".
func IsSemver(v string) bool {
	return SemverRe.MatchString(v)
}

// ParseSemver splits a "major.minor.patch" string. Returns (0,0,0) when the
// string is not a semver.
func ParseSemver(v string) (major, minor, patch int) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return 0, 0, 0
	}
	major, _ = strconv.Atoi(parts[0])
	minor, _ = strconv.Atoi(parts[1])
	patch, _ = strconv.Atoi(parts[2])
	return
}

// SameMajor reports whether two semver strings share a MAJOR component.
// Readers may accept any artifact with a matching MAJOR; a MAJOR bump
// signals that hashes for the same logical input may have changed.
func SameMajor(a, b string) bool {
	am, _, _ := ParseSemver(a)
	bm, _, _ := ParseSemver(b)
	return am == bm
}
