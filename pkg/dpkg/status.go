package dpkg

import (
	"context"

	"github.com/Wiredcraft/ansible-addons/pkg/debian"
	"github.com/go-logr/logr"
)

// QueryStatus reports whether a package is installed and whether it
// can be upgraded. When a version is given, installed means installed
// at exactly that version and upgradable is always false.
func QueryStatus(name, version string, db debian.Database) (installed, upgradable bool) {
	e, ok := db.Lookup(name)
	if !ok {
		return false, false
	}
	if version != "" {
		return e.Installed && e.InstalledVersion == version, false
	}
	return e.Installed, e.Upgradable()
}

// MissingDependencies checks a "Depends" expression against the package
// database and returns the entries that aren't satisfied, in the order
// they appear in the expression.
// An entry that can't be parsed counts as missing.
func MissingDependencies(ctx context.Context, depends string, db debian.Database, cmp debian.Comparator) (bool, []string) {
	log := logr.FromContextOrDiscard(ctx)
	if cmp == nil {
		cmp = debian.DebianComparator{}
	}

	var missing []string
	for _, dep := range debian.SplitDepends(depends) {
		rel, err := debian.ParseDependency(dep)
		if err != nil {
			log.V(1).Info("unable to parse dependency", "dep", dep, "err", err.Error())
			missing = append(missing, dep)
			continue
		}
		if satisfied(rel, db, cmp) {
			log.V(3).Info("dependency satisfied", "dep", rel.Raw)
			continue
		}
		log.V(1).Info("dependency missing", "dep", rel.Raw)
		missing = append(missing, rel.Raw)
	}
	return len(missing) > 0, missing
}

// satisfied reports whether any of the alternatives of a dependency
// is installed at a version matching its own constraint.
func satisfied(dep *debian.Dependency, db debian.Database, cmp debian.Comparator) bool {
	for i := range dep.Alternatives {
		alt := &dep.Alternatives[i]
		e, ok := db.Lookup(alt.Name)
		if !ok || !e.Installed {
			continue
		}
		if alt.Matches(cmp, e.InstalledVersion) {
			return true
		}
	}
	return false
}
