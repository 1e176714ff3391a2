package debian

import (
	"fmt"
	"regexp"

	goversion "github.com/hashicorp/go-version"
	version "github.com/knqyf263/go-deb-version"
)

// Comparator orders two version strings. It returns -1, 0 or 1
// in the same manner as strings.Compare.
type Comparator interface {
	Compare(a, b string) (int, error)
}

const (
	ComparatorDebian = "debian"
	ComparatorLegacy = "legacy"
)

// NewComparator returns the Comparator registered under the given name.
// An empty name selects the Debian ordering.
func NewComparator(name string) (Comparator, error) {
	switch name {
	case "", ComparatorDebian:
		return DebianComparator{}, nil
	case ComparatorLegacy:
		return LegacyComparator{}, nil
	default:
		return nil, fmt.Errorf("unknown version comparator: %s", name)
	}
}

// DebianComparator implements the full Debian version ordering,
// including epochs, tildes and revisions.
type DebianComparator struct{}

func (DebianComparator) Compare(a, b string) (int, error) {
	v1, err := version.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version '%s': %w", a, err)
	}
	v2, err := version.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version '%s': %w", b, err)
	}
	switch {
	case v1.GreaterThan(v2):
		return 1, nil
	case v1.LessThan(v2):
		return -1, nil
	default:
		return 0, nil
	}
}

var regexpLegacyVersion = regexp.MustCompile(`^[a-zA-Z0-9.]*`)

// LegacyComparator strips both versions down to their leading run of
// alphanumeric and dot characters and compares what is left as a
// dotted numeric version. Strings such as "1:2.0" or "1.0~rc1" are
// truncated before comparison and anything non-numeric is rejected.
type LegacyComparator struct{}

func (LegacyComparator) Compare(a, b string) (int, error) {
	v1, err := goversion.NewVersion(regexpLegacyVersion.FindString(a))
	if err != nil {
		return 0, fmt.Errorf("parsing version '%s': %w", a, err)
	}
	v2, err := goversion.NewVersion(regexpLegacyVersion.FindString(b))
	if err != nil {
		return 0, fmt.Errorf("parsing version '%s': %w", b, err)
	}
	return v1.Compare(v2), nil
}

// Matches reports whether the installed version s1 satisfies the
// relation. A relation without a version matches anything.
func (r *Relation) Matches(cmp Comparator, s1 string) bool {
	if r.Version == "" {
		return true
	}
	if s1 == "" {
		return false
	}
	c, err := cmp.Compare(s1, r.Version)
	if err != nil {
		return false
	}
	switch r.Constraint {
	case ">>", ">":
		return c > 0
	case "<<", "<":
		return c < 0
	case "=", "":
		return c == 0
	case ">=":
		return c >= 0
	case "<=":
		return c <= 0
	default:
		return false
	}
}
