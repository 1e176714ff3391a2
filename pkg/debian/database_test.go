package debian

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStatus = `Package: foo
Status: install ok installed
Priority: optional
Architecture: amd64
Version: 1.0
Description: a test package
 with a long description

Package: bar
Status: deinstall ok config-files
Architecture: amd64
Version: 0.9
Conffiles:
 /etc/bar.conf 0123456789abcdef

Package: baz
Status: hold ok installed
Architecture: all
Version: 2:3.1-1
`

const testPackages = `Package: foo
Version: 1.1
Architecture: amd64
Filename: pool/main/f/foo/foo_1.1_amd64.deb

Package: foo
Version: 1.0
Architecture: amd64
Filename: pool/main/f/foo/foo_1.0_amd64.deb

Package: baz
Version: 3.2-1
Architecture: all
Filename: pool/main/b/baz/baz_3.2-1_all.deb
`

func TestLoadDatabase(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	dir := t.TempDir()
	statusPath := filepath.Join(dir, "status")
	require.NoError(t, os.WriteFile(statusPath, []byte(testStatus), 0644))

	listsDir := filepath.Join(dir, "lists")
	require.NoError(t, os.MkdirAll(listsDir, 0755))

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(testPackages))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(listsDir, "deb.debian.org_debian_dists_bookworm_main_binary-amd64_Packages.gz"), buf.Bytes(), 0644))
	// lists that we can't read are skipped
	require.NoError(t, os.WriteFile(filepath.Join(listsDir, "deb.debian.org_debian_dists_bookworm_main_binary-amd64_Packages.diff_Index"), []byte("garbage"), 0644))

	t.Run("status only", func(t *testing.T) {
		db, err := LoadDatabase(ctx, statusPath, "")
		require.NoError(t, err)
		assert.EqualValues(t, 3, db.Count())

		foo, ok := db.Lookup("foo")
		assert.True(t, ok)
		assert.True(t, foo.Installed)
		assert.EqualValues(t, "1.0", foo.InstalledVersion)
		assert.False(t, foo.Upgradable())

		bar, ok := db.Lookup("bar")
		assert.True(t, ok)
		assert.False(t, bar.Installed)

		baz, ok := db.Lookup("baz")
		assert.True(t, ok)
		assert.True(t, baz.Installed)

		_, ok = db.Lookup("zoo")
		assert.False(t, ok)
	})
	t.Run("lists provide candidates", func(t *testing.T) {
		db, err := LoadDatabase(ctx, statusPath, listsDir)
		require.NoError(t, err)

		foo, _ := db.Lookup("foo")
		assert.EqualValues(t, "1.1", foo.Candidate)
		assert.True(t, foo.Upgradable())

		// the epoch makes the installed version newer
		baz, _ := db.Lookup("baz")
		assert.EqualValues(t, "3.2-1", baz.Candidate)
		assert.False(t, baz.Upgradable())
	})
	t.Run("missing status file", func(t *testing.T) {
		_, err := LoadDatabase(ctx, filepath.Join(dir, "missing"), "")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestIsInstalled(t *testing.T) {
	var cases = []struct {
		in string
		ok bool
	}{
		{"install ok installed", true},
		{"hold ok installed", true},
		{"deinstall ok config-files", false},
		{"install ok half-installed", false},
		{"", false},
	}
	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			assert.EqualValues(t, tt.ok, isInstalled(tt.in))
		})
	}
}
