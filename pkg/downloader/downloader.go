package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/hashicorp/go-getter"
)

type Downloader struct {
	cacheDir string
}

func NewDownloader(cacheDir string) (*Downloader, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}
	return &Downloader{cacheDir: cacheDir}, nil
}

func (d *Downloader) Dir() string {
	return d.cacheDir
}

// Download fetches a whole file from any source understood by go-getter
// (e.g. "s3::", "gcs::" or "file://") into the cache directory.
func (d *Downloader) Download(ctx context.Context, src string) (string, error) {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("downloading file", "src", src)

	name, err := cacheName(src)
	if err != nil {
		log.Error(err, "failed to parse url")
		return "", err
	}

	// download the file to a predictable location so that
	// we can avoid repeated downloads
	dst := filepath.Join(d.cacheDir, name)
	log.V(1).Info("preparing to download file", "dst", dst)

	client := &getter.Client{
		Ctx:             ctx,
		Src:             src,
		Dst:             dst,
		Mode:            getter.ClientModeFile,
		DisableSymlinks: true,
	}
	if err := client.Get(); err != nil {
		log.Error(err, "failed to download file")
		return "", err
	}
	// dpkg runs as root, but the file should stay readable
	// by the group that owns the cache
	if err := os.Chmod(dst, 0664); err != nil {
		log.Error(err, "failed to update file permissions", "file", dst)
		return "", err
	}

	return dst, nil
}

// matches go-getter's "getter::url" syntax
var regexpForcedGetter = regexp.MustCompile(`^[A-Za-z0-9]+::(.+)$`)

// cacheName returns the name src is cached under. A forced getter
// prefix such as "s3::" is not part of the file name.
func cacheName(src string) (string, error) {
	rest := src
	if m := regexpForcedGetter.FindStringSubmatch(src); m != nil {
		rest = m[1]
	}
	uri, err := url.Parse(rest)
	if err != nil {
		return "", err
	}
	name := HashString(src)
	if base := path.Base(uri.Path); base != "." && base != "/" {
		name += "-" + base
	}
	return name, nil
}

// Save writes the content produced by src into the cache directory
// under the given name. The content is staged in a temporary file so
// that a failed transfer never leaves a truncated package behind.
func (d *Downloader) Save(ctx context.Context, name string, src io.WriterTo) (string, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", name)

	dst := filepath.Join(d.cacheDir, filepath.Base(name))
	tmp := filepath.Join(d.cacheDir, fmt.Sprintf(".%s.%s.partial", filepath.Base(name), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0664)
	if err != nil {
		log.Error(err, "failed to create file", "file", tmp)
		return "", err
	}
	dw := newDigestWriter(f)
	n, err := src.WriteTo(dw)
	if err != nil {
		log.Error(err, "failed to write file", "file", tmp)
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		log.Error(err, "failed to move file into place", "file", dst)
		_ = os.Remove(tmp)
		return "", err
	}
	log.V(1).Info("saved file", "file", dst, "size", n, "integrity", dw.Sum())
	return dst, nil
}
