package dpkg

import (
	"errors"
	"io"
	"sync"
)

// HeaderSize is the number of bytes read from a remote package before
// deciding whether the rest of it is needed. The control archive of a
// typical package fits in the first 2-3KB.
const HeaderSize = 5000

var errConsumed = errors.New("partial fetch already consumed")

// PartialFetch holds the beginning of a remote package together with
// the still-open stream it was read from, so that the package can be
// completed without fetching it a second time.
type PartialFetch struct {
	URL    string
	Header []byte

	body io.ReadCloser
	once sync.Once
	used bool
}

func newPartialFetch(url string, header []byte, body io.ReadCloser) *PartialFetch {
	return &PartialFetch{
		URL:    url,
		Header: header,
		body:   body,
	}
}

// WriteTo writes the header followed by the remainder of the stream.
// It may only be called once and closes the stream when done.
func (p *PartialFetch) WriteTo(w io.Writer) (int64, error) {
	if p.used {
		return 0, errConsumed
	}
	p.used = true
	defer p.Close()

	n, err := w.Write(p.Header)
	if err != nil {
		return int64(n), err
	}
	if p.body == nil {
		return int64(n), nil
	}
	m, err := io.Copy(w, p.body)
	return int64(n) + m, err
}

// Close discards the remainder of the stream.
func (p *PartialFetch) Close() error {
	var err error
	p.once.Do(func() {
		if p.body != nil {
			err = p.body.Close()
		}
	})
	return err
}
