// Package modargs reads the arguments Ansible hands to a module.
//
// Ansible either writes a JSON object to a file and passes its path, or
// (for old-style modules) passes a string of shell-quoted key=value
// pairs. Both forms are accepted here.
package modargs

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Wiredcraft/ansible-addons/pkg/airutil"
	"k8s.io/apimachinery/pkg/util/yaml"
	"mvdan.cc/sh/v3/shell"
)

// Read parses the arguments file at path.
func Read(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading arguments file: %w", err)
	}
	return Parse(data)
}

// Parse parses module arguments in either of the forms Ansible uses.
func Parse(data []byte) (map[string]string, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return map[string]string{}, nil
	}
	if !strings.HasPrefix(s, "{") {
		if fields, ok := keyValues(s); ok {
			return fields, nil
		}
	}
	return parseObject(data)
}

// keyValues splits s with shell quoting rules and returns the pairs,
// or false if any field is not a key=value pair. Shell operators are
// kept as literal characters, so "url=http://x/foo.deb?a=b&c=d" is a
// single pair.
func keyValues(s string) (map[string]string, bool) {
	fields, err := shell.Fields(escapeOperators(s), nil)
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

// escapeOperators backslash-escapes the unquoted characters the shell
// parser would otherwise read as operators.
func escapeOperators(s string) string {
	var sb strings.Builder
	var quote rune
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case strings.ContainsRune("&;|<>()", r):
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func parseObject(data []byte) (map[string]string, error) {
	var obj map[string]any
	if err := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = airutil.ExpandEnv(val)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// ParseBool accepts the spellings of a boolean Ansible allows.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on", "1", "true", "y", "t":
		return true, nil
	case "no", "off", "0", "false", "n", "f", "":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not a valid boolean", s)
	}
}

// ParseTimeout reads a timeout given either as a number of seconds or
// as a Go duration string. An empty string means no timeout.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid timeout", s)
	}
	return d, nil
}
