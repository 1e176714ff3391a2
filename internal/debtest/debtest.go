// Package debtest builds Debian binary packages in memory for tests.
package debtest

import (
	"archive/tar"
	"bytes"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type Compression string

const (
	Gzip Compression = ".gz"
	XZ   Compression = ".xz"
	Zstd Compression = ".zst"
	None Compression = ""
)

type Options struct {
	// Control is the content of the ./control file.
	Control string
	// Compression of the control archive. The zero value writes a plain
	// control.tar.
	Compression Compression
	// DataSize is the amount of filler written into data.tar.
	DataSize int
	// OmitControl leaves ./control out of the control archive.
	OmitControl bool
}

// Control renders a minimal control file.
func Control(name, version, arch, depends string) string {
	s := "Package: " + name + "\n" +
		"Version: " + version + "\n" +
		"Architecture: " + arch + "\n" +
		"Maintainer: Test <test@example.org>\n"
	if depends != "" {
		s += "Depends: " + depends + "\n"
	}
	return s + "Description: test package\n a package used in tests\n"
}

// Build returns the bytes of a .deb.
func Build(t testing.TB, opts Options) []byte {
	t.Helper()

	files := map[string]string{
		"./md5sums": "d41d8cd98f00b204e9800998ecf8427e  usr/share/doc/test/copyright\n",
	}
	if !opts.OmitControl {
		files["./control"] = opts.Control
	}
	controlTar := compress(t, opts.Compression, tarball(t, files))
	dataTar := compress(t, XZ, tarball(t, map[string]string{
		"./usr/share/doc/test/copyright": string(filler(opts.DataSize)),
	}))

	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	require.NoError(t, w.WriteGlobalHeader())
	member(t, w, "debian-binary", []byte("2.0\n"))
	member(t, w, "control.tar"+string(opts.Compression), controlTar)
	member(t, w, "data.tar.xz", dataTar)
	return buf.Bytes()
}

// filler returns n bytes that don't compress well.
func filler(n int) []byte {
	b := make([]byte, n)
	r := rand.New(rand.NewSource(int64(n)))
	_, _ = r.Read(b)
	return b
}

func member(t testing.TB, w *ar.Writer, name string, data []byte) {
	require.NoError(t, w.WriteHeader(&ar.Header{
		Name:    name,
		ModTime: time.Unix(1700000000, 0),
		Mode:    0644,
		Size:    int64(len(data)),
	}))
	// the writer pads odd-sized members itself
	_, err := w.Write(data)
	require.NoError(t, err)
}

func tarball(t testing.TB, files map[string]string) []byte {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "./",
		Typeflag: tar.TypeDir,
		Mode:     0755,
	}))
	for _, name := range []string{"./control", "./md5sums", "./usr/share/doc/test/copyright"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func compress(t testing.TB, c Compression, data []byte) []byte {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch c {
	case Gzip:
		w = gzip.NewWriter(&buf)
	case XZ:
		w, err = xz.NewWriter(&buf)
	case Zstd:
		w, err = zstd.NewWriter(&buf)
	default:
		return data
	}
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}
