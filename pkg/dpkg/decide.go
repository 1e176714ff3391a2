package dpkg

import (
	"context"
	"fmt"
	"strings"

	"github.com/Wiredcraft/ansible-addons/pkg/debian"
	"github.com/Wiredcraft/ansible-addons/pkg/downloader"
	"github.com/go-logr/logr"
)

type ActionKind int

const (
	ActionNoOp ActionKind = iota
	ActionInstall
	ActionRemove
	ActionFail
)

func (k ActionKind) String() string {
	switch k {
	case ActionNoOp:
		return "noop"
	case ActionInstall:
		return "install"
	case ActionRemove:
		return "remove"
	case ActionFail:
		return "fail"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is the outcome of comparing a package against the
// package database.
type Action struct {
	Kind ActionKind
	// Path of the package file to install.
	Path string
	// Name of the package to remove.
	Name  string
	Purge bool
	Force bool
	// Message explains a failed decision.
	Message string
}

type InstallOptions struct {
	// Force skips the dependency check and passes --force-all to dpkg.
	Force      bool
	Comparator debian.Comparator
	// Store receives the payload of packages that were only partially
	// fetched.
	Store *downloader.Downloader
}

// DecideInstall works out whether a package needs to be installed. When
// it does and the package was only partially fetched, the remainder of
// the package is read and saved into opts.Store.
func DecideInstall(ctx context.Context, src *Source, db debian.Database, opts InstallOptions) (Action, error) {
	rec := src.Record
	log := logr.FromContextOrDiscard(ctx).WithValues("name", rec.Package, "version", rec.Version)

	installed, upgradable := QueryStatus(rec.Package, rec.Version, db)
	if installed && !upgradable {
		log.Info("package is already installed")
		_ = src.Close()
		return Action{Kind: ActionNoOp}, nil
	}

	path := src.Path
	if src.Fetch != nil {
		if opts.Store == nil {
			_ = src.Close()
			return Action{}, fmt.Errorf("%w: no location to save package from url '%s'", ErrFetch, src.Locator)
		}
		log.V(1).Info("fetching remainder of package", "url", src.Locator)
		saved, err := opts.Store.Save(ctx, rec.Filename(), src.Fetch)
		if err != nil {
			return Action{}, fmt.Errorf("%w: failed to fetch package from url '%s': %w", ErrFetch, src.Locator, err)
		}
		path = saved
	}

	if !opts.Force {
		missing, deps := MissingDependencies(ctx, rec.Depends, db, opts.Comparator)
		if missing {
			log.Info("not installing package with missing dependencies", "deps", deps)
			return Action{
				Kind:    ActionFail,
				Path:    path,
				Message: fmt.Sprintf("missing dependencies: %s, use force to override", strings.Join(deps, ", ")),
			}, nil
		}
	}

	return Action{
		Kind:  ActionInstall,
		Path:  path,
		Name:  rec.Package,
		Force: opts.Force,
	}, nil
}

// DecideRemove works out whether a package needs to be removed.
func DecideRemove(ctx context.Context, rec *debian.Record, db debian.Database, purge bool) Action {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", rec.Package, "version", rec.Version)

	installed, _ := QueryStatus(rec.Package, rec.Version, db)
	if !installed {
		log.Info("package is not installed")
		return Action{Kind: ActionNoOp}
	}
	return Action{
		Kind:  ActionRemove,
		Name:  rec.Package,
		Purge: purge,
	}
}
