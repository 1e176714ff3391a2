package debian

import "fmt"

// Record is the subset of a binary package control paragraph that
// decides whether a package needs to be installed or removed.
type Record struct {
	Package      string `required:"true"`
	Version      string
	Architecture string
	Depends      string
}

// Filename returns the canonical name of the package file,
// e.g. "foo_1.0_amd64.deb".
func (r *Record) Filename() string {
	return fmt.Sprintf("%s_%s_%s.deb", r.Package, r.Version, r.Architecture)
}

// statusParagraph is a single stanza of /var/lib/dpkg/status.
type statusParagraph struct {
	Package      string
	Version      string
	Architecture string
	Status       string
}

// indexParagraph is a single stanza of an apt Packages index.
type indexParagraph struct {
	Package      string
	Version      string
	Architecture string
}

// Relation is one alternative of a "Depends" entry.
type Relation struct {
	Name       string
	Version    string
	Constraint string
}

// Dependency is a single entry of a "Depends" expression. It is
// satisfied when any of its alternatives is.
type Dependency struct {
	Alternatives []Relation
	// Raw is the entry as it appeared in the expression.
	Raw string
}

type Entry struct {
	Name             string
	Installed        bool
	InstalledVersion string
	// Candidate is the newest version known to the apt lists.
	Candidate string
}

type Database interface {
	Lookup(name string) (Entry, bool)
}
