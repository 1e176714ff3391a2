package archiveutil

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

var (
	ErrFileNotFound           = errors.New("file not found in archive")
	ErrUnsupportedCompression = errors.New("unsupported compression")
)

// Decompress wraps r in a decompressing reader chosen by the extension
// of the archive name, e.g. "control.tar.xz".
func Decompress(name string, r io.Reader) (io.ReadCloser, error) {
	switch ext := filepath.Ext(name); ext {
	case ".gz":
		return gzip.NewReader(r)
	case ".xz":
		reader, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(reader), nil
	case ".zst":
		reader, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return reader.IOReadCloser(), nil
	case ".lz4":
		return io.NopCloser(lz4.NewReader(r)), nil
	case ".tar":
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, ext)
	}
}

// ExtractFile decompresses the named tar archive held in r and returns
// the content of the single entry at target.
func ExtractFile(ctx context.Context, name string, r io.Reader, target string) ([]byte, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("archive", name, "target", target)

	dec, err := Decompress(name, r)
	if err != nil {
		log.Error(err, "failed to open archive")
		return nil, err
	}
	defer dec.Close()

	target = path.Clean("/" + target)
	tr := tar.NewReader(dec)
	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF:
			return nil, ErrFileNotFound
		case err != nil:
			log.Error(err, "failed to read file from archive")
			return nil, err
		case header == nil:
			continue
		}

		if header.Typeflag != tar.TypeReg || path.Clean("/"+header.Name) != target {
			continue
		}
		log.V(5).Info("extracting file", "mode", header.Mode, "size", header.Size)
		data, err := io.ReadAll(tr)
		if err != nil {
			log.Error(err, "failed to extract file")
			return nil, err
		}
		return data, nil
	}
}
