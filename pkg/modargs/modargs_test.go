package modargs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	aav1 "github.com/Wiredcraft/ansible-addons/pkg/api/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Setenv("MODARGS_TEST_HOST", "mirror.example.org")

	var cases = []struct {
		name string
		in   string
		out  map[string]string
	}{
		{
			"key value pairs",
			`pkg=/bar/foo.deb state=present force=yes`,
			map[string]string{"pkg": "/bar/foo.deb", "state": "present", "force": "yes"},
		},
		{
			"quoted values",
			`url='http://example.org/foo bar.deb' state="absent"`,
			map[string]string{"url": "http://example.org/foo bar.deb", "state": "absent"},
		},
		{
			"shell operators are literal",
			`url=http://example.org/foo.deb?a=b&c=d;e=(f) state=present`,
			map[string]string{"url": "http://example.org/foo.deb?a=b&c=d;e=(f)", "state": "present"},
		},
		{
			"quoted shell operators",
			`url="http://example.org/foo.deb?a=b&c=d" force='a|b' name=foo\&bar`,
			map[string]string{"url": "http://example.org/foo.deb?a=b&c=d", "force": "a|b", "name": "foo&bar"},
		},
		{
			"json",
			`{"url": "http://example.org/foo.deb?a=b", "force": true, "_ansible_check_mode": false, "purge": null}`,
			map[string]string{"url": "http://example.org/foo.deb?a=b", "force": "true", "_ansible_check_mode": "false"},
		},
		{
			"json values are expanded",
			`{"url": "http://${MODARGS_TEST_HOST}/foo.deb"}`,
			map[string]string{"url": "http://mirror.example.org/foo.deb"},
		},
		{
			"yaml",
			"package: /tmp/foo.deb\nstate: removed\n",
			map[string]string{"package": "/tmp/foo.deb", "state": "removed"},
		},
		{
			"empty",
			"\n",
			map[string]string{},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Parse([]byte(tt.in))
			assert.NoError(t, err)
			assert.EqualValues(t, tt.out, out)
		})
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "args")
	require.NoError(t, os.WriteFile(path, []byte("name=/tmp/foo.deb"), 0644))

	out, err := Read(path)
	assert.NoError(t, err)
	assert.EqualValues(t, "/tmp/foo.deb", out["name"])

	_, err = Read(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestParseBool(t *testing.T) {
	var cases = []struct {
		in string
		ok bool
	}{
		{"yes", true},
		{"True", true},
		{"1", true},
		{"no", false},
		{"", false},
		{"off", false},
	}
	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseBool(tt.in)
			assert.NoError(t, err)
			assert.EqualValues(t, tt.ok, v)
		})
	}

	_, err := ParseBool("maybe")
	assert.Error(t, err)
}

func TestParseTimeout(t *testing.T) {
	var cases = []struct {
		in  string
		out time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"1m30s", 90 * time.Second},
		{" 5 ", 5 * time.Second},
	}
	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseTimeout(tt.in)
			assert.NoError(t, err)
			assert.EqualValues(t, tt.out, d)
		})
	}

	_, err := ParseTimeout("soon")
	assert.Error(t, err)
}

func TestDpkg(t *testing.T) {
	var cases = []struct {
		name string
		in   map[string]string
		out  aav1.DpkgArgs
		ok   bool
	}{
		{
			"defaults",
			map[string]string{"pkg": "/bar/foo.deb"},
			aav1.DpkgArgs{Package: "/bar/foo.deb", State: aav1.StateInstalled},
			true,
		},
		{
			"url with options",
			map[string]string{"url": "http://example.org/foo.deb", "state": "absent", "purge": "yes", "force": "true", "_ansible_check_mode": "True"},
			aav1.DpkgArgs{URL: "http://example.org/foo.deb", State: aav1.StateAbsent, Purge: true, Force: true, CheckMode: true},
			true,
		},
		{
			"same value through two aliases",
			map[string]string{"name": "/bar/foo.deb", "path": "/bar/foo.deb"},
			aav1.DpkgArgs{Package: "/bar/foo.deb", State: aav1.StateInstalled},
			true,
		},
		{
			"url and package",
			map[string]string{"url": "http://example.org/foo.deb", "package": "/bar/foo.deb"},
			aav1.DpkgArgs{},
			false,
		},
		{
			"neither url nor package",
			map[string]string{"state": "present"},
			aav1.DpkgArgs{},
			false,
		},
		{
			"unknown state",
			map[string]string{"pkg": "/bar/foo.deb", "state": "latest"},
			aav1.DpkgArgs{},
			false,
		},
		{
			"bad boolean",
			map[string]string{"pkg": "/bar/foo.deb", "force": "perhaps"},
			aav1.DpkgArgs{},
			false,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Dpkg(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.EqualValues(t, tt.out, out)
		})
	}
}
