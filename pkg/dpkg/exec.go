package dpkg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	aav1 "github.com/Wiredcraft/ansible-addons/pkg/api/v1"
	"github.com/go-logr/logr"
)

const (
	DefaultDpkgPath   = "/usr/bin/dpkg"
	DefaultAptGetPath = "/usr/bin/apt-get"
)

// noninteractive keeps dpkg and apt from prompting.
var noninteractive = []string{
	"DEBIAN_FRONTEND=noninteractive",
	"DEBIAN_PRIORITY=critical",
}

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (stdout, stderr []byte, err error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Locker checks that the package database can be locked.
type Locker interface {
	Probe() error
}

type Executor struct {
	Runner     Runner
	Locker     Locker
	DpkgPath   string
	AptGetPath string
	// DryRun reports what would change without running anything.
	DryRun bool
}

// Run carries out an action.
func (e *Executor) Run(ctx context.Context, action Action) (aav1.Result, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("action", action.Kind.String())

	switch action.Kind {
	case ActionNoOp:
		return aav1.Result{Changed: false}, nil
	case ActionFail:
		return aav1.Result{Failed: true, Msg: action.Message}, fmt.Errorf("%w: %s", ErrDependency, action.Message)
	case ActionInstall, ActionRemove:
	default:
		return aav1.Result{}, fmt.Errorf("unknown action: %s", action.Kind)
	}

	name, args, desc := e.command(action)
	if e.DryRun {
		log.Info("skipping command in check mode", "cmd", name, "args", args)
		return aav1.Result{Changed: true}, nil
	}

	if e.Locker != nil {
		if err := e.Locker.Probe(); err != nil {
			log.Error(err, "failed to lock package database")
			return aav1.Result{Failed: true, Msg: "Failed to lock apt for exclusive operation"}, fmt.Errorf("%w: failed to lock apt for exclusive operation: %w", ErrLock, err)
		}
	}

	log.Info("running command", "cmd", name, "args", args)
	runner := e.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	stdout, stderr, err := runner.Run(ctx, noninteractive, name, args...)
	log.V(2).Info("command completed", "stdout", string(stdout))
	if err != nil {
		msg := fmt.Sprintf("'%s' failed: %s", desc, strings.TrimSpace(string(stderr)))
		log.Error(err, "command failed", "stderr", string(stderr))
		return aav1.Result{Failed: true, Msg: msg}, fmt.Errorf("%w: %s: %w", ErrCommand, msg, err)
	}
	return aav1.Result{Changed: true}, nil
}

// command returns the binary, its arguments and a short description
// used in error messages.
func (e *Executor) command(action Action) (string, []string, string) {
	if action.Kind == ActionInstall {
		args := []string{"--install", "--force-confold"}
		if action.Force {
			args = append(args, "--force-all")
		}
		args = append(args, action.Path)
		return orDefault(e.DpkgPath, DefaultDpkgPath), args, "dpkg --install " + action.Path
	}
	args := []string{"-q", "-y"}
	if action.Purge {
		args = append(args, "--purge")
	}
	args = append(args, "remove", action.Name)
	return orDefault(e.AptGetPath, DefaultAptGetPath), args, "apt-get remove " + action.Name
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
