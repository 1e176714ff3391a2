package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/Wiredcraft/ansible-addons/cmd/cache"
	aav1 "github.com/Wiredcraft/ansible-addons/pkg/api/v1"
	"github.com/Wiredcraft/ansible-addons/pkg/debian"
	"github.com/Wiredcraft/ansible-addons/pkg/downloader"
	"github.com/Wiredcraft/ansible-addons/pkg/dpkg"
	"github.com/Wiredcraft/ansible-addons/pkg/modargs"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

var dpkgCmd = &cobra.Command{
	Use:   "dpkg [ARGS_FILE]",
	Short: "install or remove a Debian package from a file or url",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDpkg,
	// failures are reported on stdout
	SilenceErrors: true,
}

// errFailed tells Execute to exit non-zero once the failure has
// already been reported on stdout.
var errFailed = errors.New("module failed")

const (
	flagURL        = "url"
	flagPackage    = "package"
	flagState      = "state"
	flagPurge      = "purge"
	flagForce      = "force"
	flagCheck      = "check"
	flagTimeout    = "timeout"
	flagComparator = "comparator"
	flagCacheDir   = "cache-dir"
	flagStatusFile = "status-file"
	flagListsDir   = "lists-dir"
	flagLockDir    = "lock-dir"
	flagDpkg       = "dpkg"
	flagAptGet     = "apt-get"
)

// moduleFlags maps flags onto the module parameters they override.
var moduleFlags = map[string]string{
	flagURL:        "url",
	flagPackage:    "package",
	flagState:      "state",
	flagPurge:      "purge",
	flagForce:      "force",
	flagCheck:      "_ansible_check_mode",
	flagTimeout:    "timeout",
	flagComparator: "comparator",
}

func init() {
	dpkgCmd.Flags().String(flagURL, "", "url of the package")
	dpkgCmd.Flags().StringP(flagPackage, "p", "", "path to the package")
	dpkgCmd.Flags().String(flagState, string(aav1.StateInstalled), "one of installed, present, removed or absent")
	dpkgCmd.Flags().Bool(flagPurge, false, "purge configuration files when removing")
	dpkgCmd.Flags().Bool(flagForce, false, "install even if dependencies are missing")
	dpkgCmd.Flags().Bool(flagCheck, false, "report what would change without changing anything")
	dpkgCmd.Flags().String(flagTimeout, "", "timeout for fetching the package, in seconds or as a duration")
	dpkgCmd.Flags().String(flagComparator, debian.ComparatorDebian, "version comparator, debian or legacy")

	dpkgCmd.Flags().String(flagCacheDir, "", "cache directory (defaults to user cache dir)")
	dpkgCmd.Flags().String(flagStatusFile, debian.DefaultStatusFile, "path to the dpkg status file")
	dpkgCmd.Flags().String(flagListsDir, debian.DefaultListsDir, "directory containing apt package lists")
	dpkgCmd.Flags().String(flagLockDir, dpkg.DefaultLockDir, "directory containing the dpkg lock files")
	dpkgCmd.Flags().String(flagDpkg, dpkg.DefaultDpkgPath, "path to the dpkg binary")
	dpkgCmd.Flags().String(flagAptGet, dpkg.DefaultAptGetPath, "path to the apt-get binary")

	_ = dpkgCmd.MarkFlagDirname(flagCacheDir)
	_ = dpkgCmd.MarkFlagDirname(flagListsDir)
	_ = dpkgCmd.MarkFlagDirname(flagLockDir)
	_ = dpkgCmd.MarkFlagFilename(flagPackage, ".deb")
}

func runDpkg(cmd *cobra.Command, args []string) error {
	log := logr.FromContextOrDiscard(cmd.Context())
	out := cmd.OutOrStdout()

	// read the module arguments, letting flags override them
	params := map[string]string{}
	if len(args) > 0 {
		var err error
		params, err = modargs.Read(args[0])
		if err != nil {
			return report(out, aav1.Result{}, err)
		}
	}
	for flag, key := range moduleFlags {
		if cmd.Flags().Changed(flag) {
			params[key] = cmd.Flags().Lookup(flag).Value.String()
		}
	}
	modArgs, err := modargs.Dpkg(params)
	if err != nil {
		return report(out, aav1.Result{}, err)
	}
	log.V(1).Info("parsed module arguments", "args", modArgs)

	cacheDir, _ := cmd.Flags().GetString(flagCacheDir)
	statusFile, _ := cmd.Flags().GetString(flagStatusFile)
	listsDir, _ := cmd.Flags().GetString(flagListsDir)
	lockDir, _ := cmd.Flags().GetString(flagLockDir)
	dpkgPath, _ := cmd.Flags().GetString(flagDpkg)
	aptGetPath, _ := cmd.Flags().GetString(flagAptGet)

	executor := &dpkg.Executor{
		Runner:     dpkg.ExecRunner{},
		Locker:     dpkg.DpkgLock{Dir: lockDir},
		DpkgPath:   dpkgPath,
		AptGetPath: aptGetPath,
		DryRun:     modArgs.CheckMode,
	}
	res, err := apply(cmd.Context(), modArgs, config{
		cacheDir:   cache.Dir(cacheDir),
		statusFile: statusFile,
		listsDir:   listsDir,
	}, executor)
	return report(out, res, err)
}

type config struct {
	cacheDir   string
	statusFile string
	listsDir   string
}

// apply resolves the package, works out what has to change and
// carries it out.
func apply(ctx context.Context, args aav1.DpkgArgs, cfg config, executor *dpkg.Executor) (aav1.Result, error) {
	timeout, err := modargs.ParseTimeout(args.Timeout)
	if err != nil {
		return aav1.Result{}, err
	}
	cmp, err := debian.NewComparator(args.Comparator)
	if err != nil {
		return aav1.Result{}, err
	}
	db, err := debian.LoadDatabase(ctx, cfg.statusFile, cfg.listsDir)
	if err != nil {
		return aav1.Result{}, err
	}
	store, err := downloader.NewDownloader(cfg.cacheDir)
	if err != nil {
		return aav1.Result{}, err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("using package cache", "dir", store.Dir())

	inspector := dpkg.NewInspector(dpkg.WithTimeout(timeout), dpkg.WithDownloader(store))
	src, err := inspector.Resolve(ctx, args.Package, args.URL)
	if err != nil {
		return aav1.Result{}, err
	}
	defer src.Close()

	var action dpkg.Action
	if args.State.Install() {
		action, err = dpkg.DecideInstall(ctx, src, db, dpkg.InstallOptions{
			Force:      args.Force,
			Comparator: cmp,
			Store:      store,
		})
		if err != nil {
			return aav1.Result{}, err
		}
	} else {
		action = dpkg.DecideRemove(ctx, src.Record, db, args.Purge)
	}
	return executor.Run(ctx, action)
}

// report writes the result for Ansible. Errors are folded into a
// failed result.
func report(w io.Writer, res aav1.Result, err error) error {
	if err != nil {
		res.Failed = true
		if res.Msg == "" {
			res.Msg = err.Error()
		}
	}
	if encErr := json.NewEncoder(w).Encode(res); encErr != nil {
		return encErr
	}
	if res.Failed {
		return errFailed
	}
	return nil
}
