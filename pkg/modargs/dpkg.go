package modargs

import (
	"errors"
	"fmt"

	aav1 "github.com/Wiredcraft/ansible-addons/pkg/api/v1"
)

var packageAliases = []string{"package", "pkg", "name", "path"}

// Dpkg validates the parameters of the dpkg module.
func Dpkg(params map[string]string) (aav1.DpkgArgs, error) {
	args := aav1.DpkgArgs{
		URL:        params["url"],
		State:      aav1.StateInstalled,
		Timeout:    params["timeout"],
		Comparator: params["comparator"],
	}
	for _, k := range packageAliases {
		if v := params[k]; v != "" {
			if args.Package != "" && args.Package != v {
				return aav1.DpkgArgs{}, fmt.Errorf("parameters are mutually exclusive: %v", packageAliases)
			}
			args.Package = v
		}
	}
	if args.URL != "" && args.Package != "" {
		return aav1.DpkgArgs{}, errors.New("parameters are mutually exclusive: package, url")
	}
	if args.URL == "" && args.Package == "" {
		return aav1.DpkgArgs{}, errors.New("one of the following is required: package, url")
	}

	if v := params["state"]; v != "" {
		args.State = aav1.State(v)
	}
	if !args.State.Valid() {
		return aav1.DpkgArgs{}, fmt.Errorf("value of state must be one of: installed, present, removed, absent, got: %s", args.State)
	}

	var err error
	if args.Purge, err = ParseBool(params["purge"]); err != nil {
		return aav1.DpkgArgs{}, fmt.Errorf("purge: %w", err)
	}
	if args.Force, err = ParseBool(params["force"]); err != nil {
		return aav1.DpkgArgs{}, fmt.Errorf("force: %w", err)
	}
	if args.CheckMode, err = ParseBool(params["_ansible_check_mode"]); err != nil {
		return aav1.DpkgArgs{}, fmt.Errorf("_ansible_check_mode: %w", err)
	}
	return args, nil
}
