package configurator

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// ErrInvalidVersion indicates a feature version is not of the form
// major[.minor[.micro[.qualifier]]].
var ErrInvalidVersion = errors.New("invalid version")

// Version is a feature version: three numeric segments compared as a
// semantic version followed by a free-form qualifier compared as a string.
// "3.0.1.v20040601" sorts after "3.0.1" and before "3.0.2".
type Version struct {
	sem       *semver.Version
	qualifier string
}

// ParseVersion parses a feature version. Missing segments are zero; the
// empty string is 0.0.0.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{sem: semver.New(0, 0, 0, "", "")}, nil
	}

	parts := strings.SplitN(s, ".", 4)
	var nums [3]uint64
	for i := 0; i < 3 && i < len(parts); i++ {
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			return Version{}, errors.Wrapf(ErrInvalidVersion, "%q", s)
		}
		nums[i] = n
	}

	v := Version{sem: semver.New(nums[0], nums[1], nums[2], "", "")}
	if len(parts) == 4 {
		v.qualifier = parts[3]
	}
	return v, nil
}

// Compare returns -1, 0 or +1 as v is lower than, equal to or higher than o.
func (v Version) Compare(o Version) int {
	if c := v.sem.Compare(o.sem); c != 0 {
		return c
	}
	return strings.Compare(v.qualifier, o.qualifier)
}

// String renders the version as major.minor.micro[.qualifier].
func (v Version) String() string {
	if v.sem == nil {
		return ""
	}
	s := v.sem.String()
	if v.qualifier != "" {
		s += "." + v.qualifier
	}
	return s
}

// CompareVersions orders two version strings. A version that does not
// parse sorts below one that does; two unparseable versions are compared
// as plain strings.
func CompareVersions(a, b string) int {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	default:
		return 1
	}
}
