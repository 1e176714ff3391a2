package debian

import (
	"errors"
	"regexp"
	"strings"
)

var regexpParseVersion = regexp.MustCompile(`\((?P<constraint>[<>=]{1,2})?(?P<version>[^)]*)\)`)
var regexpName = regexp.MustCompile(`^[^([]+`)

// ParseDependency parses a single entry of a "Depends" field. Each
// alternative separated by "|" carries its own version constraint.
//
// https://www.debian.org/doc/debian-policy/ch-relationships.html
func ParseDependency(s string) (*Dependency, error) {
	s = strings.TrimSpace(s)
	dep := &Dependency{Raw: s}
	for _, alt := range strings.Split(s, "|") {
		rel, err := ParseRelation(alt)
		if err != nil {
			return nil, err
		}
		dep.Alternatives = append(dep.Alternatives, rel)
	}
	return dep, nil
}

// ParseRelation parses one alternative, e.g. "libc6:amd64 (>= 2.34)".
func ParseRelation(s string) (Relation, error) {
	s = strings.TrimSpace(s)
	matches := regexpName.FindStringSubmatch(s)
	if len(matches) == 0 || strings.TrimSpace(matches[0]) == "" {
		return Relation{}, errors.New("unable to extract package name")
	}
	// drop any architecture qualifier (e.g. "foo:any")
	name, _, _ := strings.Cut(strings.TrimSpace(matches[0]), ":")
	// extract the version and constraint if they're present
	matches = regexpParseVersion.FindStringSubmatch(strings.TrimPrefix(s, matches[0]))
	var version string
	var constraint string
	if len(matches) >= 2 {
		version = strings.TrimSpace(matches[regexpParseVersion.SubexpIndex("version")])
		constraint = strings.TrimSpace(matches[regexpParseVersion.SubexpIndex("constraint")])
	}
	if version != "" && constraint == "" {
		constraint = "="
	}
	return Relation{
		Name:       name,
		Version:    version,
		Constraint: constraint,
	}, nil
}

// SplitDepends splits a comma-separated "Depends" expression into its
// trimmed entries, preserving their order.
func SplitDepends(s string) []string {
	var out []string
	for _, dep := range strings.Split(s, ",") {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		out = append(out, dep)
	}
	return out
}
