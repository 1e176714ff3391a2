package debian

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Wiredcraft/ansible-addons/pkg/archiveutil"
	"github.com/go-logr/logr"
	"pault.ag/go/debian/control"
)

const (
	DefaultStatusFile = "/var/lib/dpkg/status"
	DefaultListsDir   = "/var/lib/apt/lists"
)

// Upgradable reports whether the apt lists know of a version newer
// than the one installed.
func (e Entry) Upgradable() bool {
	if !e.Installed || e.Candidate == "" || e.InstalledVersion == "" {
		return false
	}
	c, err := DebianComparator{}.Compare(e.Candidate, e.InstalledVersion)
	if err != nil {
		return false
	}
	return c > 0
}

// MemoryDatabase is a Database backed by a map.
type MemoryDatabase struct {
	entries map[string]Entry
}

func NewMemoryDatabase(entries ...Entry) *MemoryDatabase {
	db := &MemoryDatabase{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		db.entries[e.Name] = e
	}
	return db
}

func (db *MemoryDatabase) Lookup(name string) (Entry, bool) {
	e, ok := db.entries[name]
	return e, ok
}

func (db *MemoryDatabase) Count() int {
	return len(db.entries)
}

// LoadDatabase builds a snapshot of the local package database from the
// dpkg status file and, when listsDir is set, the apt package lists.
func LoadDatabase(ctx context.Context, statusPath, listsDir string) (*MemoryDatabase, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("status", statusPath, "lists", listsDir)

	var status []statusParagraph
	if err := decodeFile(statusPath, &status); err != nil {
		log.Error(err, "failed to decode status file")
		return nil, fmt.Errorf("reading package status '%s': %w", statusPath, err)
	}
	log.V(1).Info("successfully decoded status file", "count", len(status))

	db := NewMemoryDatabase()
	for _, p := range status {
		// a package may appear once per architecture; prefer
		// the installed one
		if existing, ok := db.entries[p.Package]; ok && existing.Installed {
			continue
		}
		db.entries[p.Package] = Entry{
			Name:             p.Package,
			Installed:        isInstalled(p.Status),
			InstalledVersion: p.Version,
		}
	}

	if listsDir == "" {
		log.V(1).Info("loaded package database", "packages", db.Count())
		return db, nil
	}
	lists, err := filepath.Glob(filepath.Join(listsDir, "*_Packages*"))
	if err != nil {
		return nil, err
	}
	for _, path := range lists {
		if err := db.mergeIndex(ctx, path); err != nil {
			return nil, err
		}
	}
	log.V(1).Info("loaded package database", "packages", db.Count(), "lists", len(lists))
	return db, nil
}

// mergeIndex records the candidate versions found in an apt Packages
// index for every package already present in the database.
func (db *MemoryDatabase) mergeIndex(ctx context.Context, path string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	var index []indexParagraph
	if err := decodeFile(path, &index); err != nil {
		if errors.Is(err, archiveutil.ErrUnsupportedCompression) {
			log.V(2).Info("skipping package list with unknown compression")
			return nil
		}
		log.Error(err, "failed to decode package list")
		return fmt.Errorf("reading package list '%s': %w", path, err)
	}
	log.V(2).Info("successfully decoded package list", "count", len(index))

	for _, p := range index {
		e, ok := db.entries[p.Package]
		if !ok {
			continue
		}
		if e.Candidate != "" {
			c, err := DebianComparator{}.Compare(p.Version, e.Candidate)
			if err != nil || c <= 0 {
				continue
			}
		}
		e.Candidate = p.Version
		db.entries[p.Package] = e
	}
	return nil
}

// isInstalled checks the third word of a dpkg "Status" field,
// e.g. "install ok installed".
func isInstalled(status string) bool {
	fields := strings.Fields(status)
	return len(fields) == 3 && fields[2] == "installed"
}

func decodeFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompress(path, f)
	if err != nil {
		return err
	}
	defer r.Close()

	dec, err := control.NewDecoder(r, nil)
	if err != nil {
		return err
	}
	return dec.Decode(out)
}

// decompress picks a reader based on the file extension, as apt may
// store its lists compressed.
func decompress(path string, r io.Reader) (io.ReadCloser, error) {
	// list names contain the mirror hostname, so an uncompressed
	// list has a bogus extension
	if filepath.Ext(path) == "" || strings.HasSuffix(path, "Packages") {
		return io.NopCloser(r), nil
	}
	return archiveutil.Decompress(path, r)
}
