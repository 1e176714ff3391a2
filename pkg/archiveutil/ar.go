package archiveutil

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/go-logr/logr"
)

var (
	ErrMemberNotFound  = errors.New("archive member not found")
	ErrMemberTruncated = errors.New("archive member truncated")
)

// ReadMember walks an ar archive and returns the name and content of the
// first member accepted by match. Walking stops early when stop accepts a
// member name, so that a partially-read archive is never read past a
// known boundary.
func ReadMember(ctx context.Context, r io.Reader, match, stop func(name string) bool) (string, []byte, error) {
	log := logr.FromContextOrDiscard(ctx)
	tr := ar.NewReader(r)

	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF):
			return "", nil, ErrMemberNotFound
		case err != nil:
			log.Error(err, "failed to read file from archive")
			return "", nil, err
		case header == nil:
			continue
		}

		name := MemberName(header.Name)
		log.V(5).Info("found archive member", "name", name, "size", header.Size)
		if stop != nil && stop(name) {
			return "", nil, ErrMemberNotFound
		}
		if !match(name) {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Error(err, "failed to extract file", "target", name)
			return "", nil, err
		}
		if err != nil || int64(len(data)) < header.Size {
			log.V(3).Info("archive member is incomplete", "target", name, "got", len(data), "want", header.Size)
			return name, nil, ErrMemberTruncated
		}
		return name, data, nil
	}
}

// MemberName normalizes an ar member name, which may carry
// a trailing slash in the GNU format.
func MemberName(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), "/")
}
