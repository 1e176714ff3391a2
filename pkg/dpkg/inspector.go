package dpkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"time"

	"github.com/Wiredcraft/ansible-addons/pkg/archiveutil"
	"github.com/Wiredcraft/ansible-addons/pkg/debian"
	"github.com/Wiredcraft/ansible-addons/pkg/downloader"
	"github.com/go-logr/logr"
)

var (
	regexpControlMember = regexp.MustCompile(`^control\.tar(\.gz|\.xz|\.zst)?$`)
	regexpDataMember    = regexp.MustCompile(`^data\.tar`)
)

const controlFile = "./control"

// Inspector reads control metadata out of local or remote packages.
type Inspector struct {
	client *http.Client
	dl     *downloader.Downloader
}

type Option func(*Inspector)

// WithHTTPClient sets the client used for remote packages.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Inspector) {
		i.client = c
	}
}

// WithTimeout bounds remote fetches. A zero timeout waits forever.
func WithTimeout(d time.Duration) Option {
	return func(i *Inspector) {
		c := *i.client
		c.Timeout = d
		i.client = &c
	}
}

// WithDownloader enables sources that can only be downloaded whole
// (anything go-getter understands that isn't plain HTTP).
func WithDownloader(dl *downloader.Downloader) Option {
	return func(i *Inspector) {
		i.dl = dl
	}
}

func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Source is a resolved package, along with whatever is needed to
// install it.
type Source struct {
	Locator string
	Record  *debian.Record
	// Path is set when the package file exists locally.
	Path string
	// Fetch is set when only the beginning of a remote package has
	// been read.
	Fetch *PartialFetch
}

func (s *Source) Close() error {
	if s.Fetch != nil {
		return s.Fetch.Close()
	}
	return nil
}

// Resolve inspects a package given either as a local path
// or as a URL.
func (i *Inspector) Resolve(ctx context.Context, path, uri string) (*Source, error) {
	if uri == "" {
		rec, err := i.ResolveFromPath(ctx, path)
		if err != nil {
			return nil, err
		}
		return &Source{Locator: path, Record: rec, Path: path}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: can not fetch url '%s': %w", ErrFetch, uri, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") && i.dl != nil {
		return i.resolveDownload(ctx, uri)
	}
	rec, fetch, err := i.ResolveFromURL(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &Source{Locator: uri, Record: rec, Fetch: fetch}, nil
}

func (i *Inspector) resolveDownload(ctx context.Context, uri string) (*Source, error) {
	path, err := i.dl.Download(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: can not fetch url '%s': %w", ErrFetch, uri, err)
	}
	rec, err := i.ResolveFromPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Source{Locator: uri, Record: rec, Path: path}, nil
}

// ResolveFromPath reads the control metadata of a local package.
func (i *Inspector) ResolveFromPath(ctx context.Context, path string) (*debian.Record, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)
	log.V(1).Info("reading package")

	f, err := os.Open(path)
	if err != nil {
		log.Error(err, "failed to open file")
		return nil, fmt.Errorf("%w: can not open package '%s', ensure the file exists and is a valid deb package: %w", ErrFetch, path, err)
	}
	defer f.Close()

	rec, err := readControl(ctx, f)
	if err != nil {
		log.Error(err, "failed to read control file")
		return nil, fmt.Errorf("%w: can not open package '%s', ensure the file exists and is a valid deb package: %w", ErrParse, path, err)
	}
	log.V(1).Info("read package", "name", rec.Package, "version", rec.Version, "arch", rec.Architecture)
	return rec, nil
}

// ResolveFromURL reads the control metadata out of the first HeaderSize
// bytes of a remote package. The returned PartialFetch keeps the
// connection open and must be consumed or closed by the caller.
func (i *Inspector) ResolveFromURL(ctx context.Context, uri string) (*debian.Record, *PartialFetch, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("url", uri)
	log.V(1).Info("fetching package header", "size", HeaderSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can not fetch url '%s': %w", ErrFetch, uri, err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		log.Error(err, "failed to fetch url")
		return nil, nil, fmt.Errorf("%w: can not fetch url '%s': %w", ErrFetch, uri, err)
	}
	log.V(2).Info("http request completed", "code", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("%w: can not fetch url '%s': http response failed with code: %d", ErrFetch, uri, resp.StatusCode)
	}

	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(resp.Body, header)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		// the whole package is smaller than the header window
		log.V(2).Info("package is smaller than the header window", "size", n)
	default:
		_ = resp.Body.Close()
		log.Error(err, "failed to read package header")
		return nil, nil, fmt.Errorf("%w: failed to fetch package from url '%s': %w", ErrFetch, uri, err)
	}
	header = header[:n]

	rec, err := parseHeader(ctx, uri, header)
	if err != nil {
		_ = resp.Body.Close()
		return nil, nil, err
	}
	log.V(1).Info("read package", "name", rec.Package, "version", rec.Version, "arch", rec.Architecture)
	return rec, newPartialFetch(uri, header, resp.Body), nil
}

func parseHeader(ctx context.Context, uri string, header []byte) (*debian.Record, error) {
	name, data, err := archiveutil.ReadMember(ctx, bytes.NewReader(header), regexpControlMember.MatchString, regexpDataMember.MatchString)
	if err != nil {
		// either not a deb file or the header window is too small
		return nil, fmt.Errorf("%w: can not find control file from url '%s'", ErrParse, uri)
	}
	content, err := archiveutil.ExtractFile(ctx, name, bytes.NewReader(data), controlFile)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid control file in Debian package from url '%s': %w", ErrParse, uri, err)
	}
	rec, err := debian.ParseControl(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid control file's content format from url '%s': %w", ErrParse, uri, err)
	}
	return rec, nil
}

// readControl reads the control metadata out of a complete package.
func readControl(ctx context.Context, r io.Reader) (*debian.Record, error) {
	name, data, err := archiveutil.ReadMember(ctx, r, regexpControlMember.MatchString, regexpDataMember.MatchString)
	if err != nil {
		return nil, fmt.Errorf("locating control archive: %w", err)
	}
	content, err := archiveutil.ExtractFile(ctx, name, bytes.NewReader(data), controlFile)
	if err != nil {
		return nil, fmt.Errorf("extracting control file: %w", err)
	}
	rec, err := debian.ParseControl(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing control file: %w", err)
	}
	return rec, nil
}
