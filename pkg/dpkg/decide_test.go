package dpkg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Wiredcraft/ansible-addons/internal/debtest"
	"github.com/Wiredcraft/ansible-addons/pkg/debian"
	"github.com/Wiredcraft/ansible-addons/pkg/downloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideInstall(t *testing.T) {
	ctx := testContext(t)
	db := testDatabase()

	local := func(name, version, depends string) *Source {
		return &Source{
			Locator: "/tmp/" + name + ".deb",
			Path:    "/tmp/" + name + ".deb",
			Record:  &debian.Record{Package: name, Version: version, Architecture: "amd64", Depends: depends},
		}
	}

	var cases = []struct {
		name  string
		src   *Source
		force bool
		out   Action
	}{
		{
			"already installed",
			local("foo", "1.0", ""),
			false,
			Action{Kind: ActionNoOp},
		},
		{
			"new package",
			local("zsh", "5.9-4", "libc6 (>= 2.34)"),
			false,
			Action{Kind: ActionInstall, Path: "/tmp/zsh.deb", Name: "zsh"},
		},
		{
			"different version",
			local("foo", "1.1", "bar"),
			false,
			Action{Kind: ActionInstall, Path: "/tmp/foo.deb", Name: "foo"},
		},
		{
			"missing dependencies",
			local("foo", "1.1", "bar (>= 2.0)"),
			false,
			Action{Kind: ActionFail, Path: "/tmp/foo.deb", Message: "missing dependencies: bar (>= 2.0), use force to override"},
		},
		{
			"missing dependencies are listed in order",
			local("foo", "1.1", "zsh, bar (>= 2.0), libc6"),
			false,
			Action{Kind: ActionFail, Path: "/tmp/foo.deb", Message: "missing dependencies: zsh, bar (>= 2.0), use force to override"},
		},
		{
			"missing dependencies are forced",
			local("foo", "1.1", "bar (>= 2.0)"),
			true,
			Action{Kind: ActionInstall, Path: "/tmp/foo.deb", Name: "foo", Force: true},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			out, err := DecideInstall(ctx, tt.src, db, InstallOptions{Force: tt.force})
			assert.NoError(t, err)
			assert.EqualValues(t, tt.out, out)
		})
	}
}

func TestDecideInstall_Remote(t *testing.T) {
	ctx := testContext(t)
	db := testDatabase()

	pkg := debtest.Build(t, debtest.Options{
		Control:     debtest.Control("zsh", "5.9-4", "amd64", "libc6 (>= 2.34)"),
		Compression: debtest.XZ,
		DataSize:    3 * HeaderSize,
	})
	installed := debtest.Build(t, debtest.Options{
		Control:     debtest.Control("foo", "1.0", "amd64", ""),
		Compression: debtest.Gzip,
		DataSize:    3 * HeaderSize,
	})
	ts := serve(t, map[string][]byte{
		"/zsh.deb": pkg,
		"/foo.deb": installed,
	})
	inspector := NewInspector(WithHTTPClient(ts.Client()))

	t.Run("payload is saved", func(t *testing.T) {
		store, err := downloader.NewDownloader(t.TempDir())
		require.NoError(t, err)

		src, err := inspector.Resolve(ctx, "", ts.URL+"/zsh.deb")
		require.NoError(t, err)

		out, err := DecideInstall(ctx, src, db, InstallOptions{Store: store})
		require.NoError(t, err)
		assert.EqualValues(t, ActionInstall, out.Kind)
		assert.EqualValues(t, filepath.Join(store.Dir(), "zsh_5.9-4_amd64.deb"), out.Path)

		data, err := os.ReadFile(out.Path)
		require.NoError(t, err)
		assert.Equal(t, pkg, data)

		// the saved file is a complete package
		rec, err := inspector.ResolveFromPath(ctx, out.Path)
		require.NoError(t, err)
		assert.EqualValues(t, src.Record, rec)
	})
	t.Run("payload is not fetched when installed", func(t *testing.T) {
		store, err := downloader.NewDownloader(t.TempDir())
		require.NoError(t, err)

		src, err := inspector.Resolve(ctx, "", ts.URL+"/foo.deb")
		require.NoError(t, err)

		out, err := DecideInstall(ctx, src, db, InstallOptions{Store: store})
		require.NoError(t, err)
		assert.EqualValues(t, ActionNoOp, out.Kind)

		entries, err := os.ReadDir(store.Dir())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
	t.Run("no store", func(t *testing.T) {
		src, err := inspector.Resolve(ctx, "", ts.URL+"/zsh.deb")
		require.NoError(t, err)

		_, err = DecideInstall(ctx, src, db, InstallOptions{})
		assert.ErrorIs(t, err, ErrFetch)
	})
}

func TestDecideRemove(t *testing.T) {
	ctx := testContext(t)
	db := testDatabase()

	var cases = []struct {
		name  string
		rec   *debian.Record
		purge bool
		out   Action
	}{
		{
			"installed",
			&debian.Record{Package: "foo", Version: "1.0"},
			false,
			Action{Kind: ActionRemove, Name: "foo"},
		},
		{
			"installed and purged",
			&debian.Record{Package: "foo", Version: "1.0"},
			true,
			Action{Kind: ActionRemove, Name: "foo", Purge: true},
		},
		{
			"other version installed",
			&debian.Record{Package: "foo", Version: "0.9"},
			false,
			Action{Kind: ActionNoOp},
		},
		{
			"not installed",
			&debian.Record{Package: "wget", Version: "1.21.3-1+b2"},
			false,
			Action{Kind: ActionNoOp},
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualValues(t, tt.out, DecideRemove(ctx, tt.rec, db, tt.purge))
		})
	}
}

// Deciding twice against the state produced by the first decision
// results in no further change.
func TestDecide_Idempotent(t *testing.T) {
	ctx := testContext(t)
	src := &Source{
		Path:   "/tmp/zsh.deb",
		Record: &debian.Record{Package: "zsh", Version: "5.9-4"},
	}

	db := debian.NewMemoryDatabase()
	out, err := DecideInstall(ctx, src, db, InstallOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, ActionInstall, out.Kind)

	db = debian.NewMemoryDatabase(debian.Entry{Name: "zsh", Installed: true, InstalledVersion: "5.9-4"})
	out, err = DecideInstall(ctx, src, db, InstallOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, ActionNoOp, out.Kind)

	out = DecideRemove(ctx, src.Record, db, false)
	assert.EqualValues(t, ActionRemove, out.Kind)

	db = debian.NewMemoryDatabase(debian.Entry{Name: "zsh", Installed: false, InstalledVersion: "5.9-4"})
	out = DecideRemove(ctx, src.Record, db, false)
	assert.EqualValues(t, ActionNoOp, out.Kind)
}
