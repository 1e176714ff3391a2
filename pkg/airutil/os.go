package airutil

import "github.com/drone/envsubst"

// ExpandEnv substitutes ${VAR} references in s using the process
// environment. Strings that aren't valid templates are returned as-is.
func ExpandEnv(s string) string {
	val, err := envsubst.EvalEnv(s)
	if err != nil {
		return s
	}
	return val
}
