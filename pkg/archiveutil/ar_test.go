package archiveutil

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAr(t *testing.T, members ...[2]string) []byte {
	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	require.NoError(t, w.WriteGlobalHeader())
	for _, m := range members {
		require.NoError(t, w.WriteHeader(&ar.Header{
			Name:    m[0],
			ModTime: time.Unix(0, 0),
			Mode:    0644,
			Size:    int64(len(m[1])),
		}))
		_, err := w.Write([]byte(m[1]))
		require.NoError(t, err)
	}
	return buf.Bytes()
}

func isControl(s string) bool {
	return strings.HasPrefix(s, "control.tar")
}

func isData(s string) bool {
	return strings.HasPrefix(s, "data.tar")
}

func TestReadMember(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	archive := newAr(t,
		[2]string{"debian-binary", "2.0\n"},
		[2]string{"control.tar.gz", strings.Repeat("c", 128)},
		[2]string{"data.tar.xz", strings.Repeat("d", 512)},
	)

	t.Run("member is found", func(t *testing.T) {
		name, data, err := ReadMember(ctx, bytes.NewReader(archive), isControl, isData)
		assert.NoError(t, err)
		assert.EqualValues(t, "control.tar.gz", name)
		assert.Len(t, data, 128)
	})
	t.Run("data header outside the window", func(t *testing.T) {
		// global header, debian-binary and the whole control member
		window := 8 + 60 + 4 + 60 + 128
		name, data, err := ReadMember(ctx, bytes.NewReader(archive[:window]), isControl, isData)
		assert.NoError(t, err)
		assert.EqualValues(t, "control.tar.gz", name)
		assert.Len(t, data, 128)
	})
	t.Run("truncated member", func(t *testing.T) {
		_, _, err := ReadMember(ctx, bytes.NewReader(archive[:200]), isControl, isData)
		assert.ErrorIs(t, err, ErrMemberTruncated)
	})
	t.Run("truncated before member", func(t *testing.T) {
		_, _, err := ReadMember(ctx, bytes.NewReader(archive[:40]), isControl, isData)
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
	t.Run("stop before member", func(t *testing.T) {
		_, _, err := ReadMember(ctx, bytes.NewReader(archive), isData, isControl)
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
	t.Run("not an archive", func(t *testing.T) {
		_, _, err := ReadMember(ctx, strings.NewReader("<html>not found</html>"), isControl, isData)
		assert.Error(t, err)
	})
}

func TestMemberName(t *testing.T) {
	assert.EqualValues(t, "control.tar.gz", MemberName("control.tar.gz/  "))
	assert.EqualValues(t, "debian-binary", MemberName("debian-binary   "))
}
