// Package axon pushes messages to an axon socket.
//
// Messages are framed with the amp protocol: a single byte holding the
// protocol version in the high nibble and the number of arguments in
// the low nibble, followed by each argument as a 4-byte big-endian
// length and its payload. Strings are prefixed with "s:" and anything
// else is sent as JSON prefixed with "j:". Raw bytes are sent as-is.
package axon

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	Version = 1
	// MaxArgs is the number of arguments that fit in the low nibble of
	// the frame header.
	MaxArgs = 15

	maxArgSize = 16 * 1024 * 1024
)

var ErrMalformed = errors.New("malformed amp frame")

// Encode packs args into a single amp frame.
func Encode(args ...any) ([]byte, error) {
	if len(args) > MaxArgs {
		return nil, fmt.Errorf("too many arguments: %d > %d", len(args), MaxArgs)
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(Version<<4 | len(args)))
	for i, arg := range args {
		payload, err := pack(arg)
		if err != nil {
			return nil, fmt.Errorf("encoding argument %d: %w", i, err)
		}
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(payload)))
		buf.Write(size[:])
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

func pack(arg any) ([]byte, error) {
	switch v := arg.(type) {
	case []byte:
		return v, nil
	case string:
		return append([]byte("s:"), v...), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return append([]byte("j:"), data...), nil
	}
}

// Decode unpacks a single amp frame. String arguments are returned as
// string, JSON arguments as json.RawMessage and anything else as []byte.
func Decode(frame []byte) ([]any, error) {
	args, err := ReadFrame(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	out := make([]any, len(args))
	for i, arg := range args {
		switch {
		case bytes.HasPrefix(arg, []byte("s:")):
			out[i] = string(arg[2:])
		case bytes.HasPrefix(arg, []byte("j:")):
			out[i] = json.RawMessage(arg[2:])
		default:
			out[i] = arg
		}
	}
	return out, nil
}

// ReadFrame reads the raw arguments of the next frame from r.
func ReadFrame(r io.Reader) ([][]byte, error) {
	var meta [1]byte
	if _, err := io.ReadFull(r, meta[:]); err != nil {
		return nil, err
	}
	if v := meta[0] >> 4; v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v)
	}
	argc := int(meta[0] & 0x0f)
	args := make([][]byte, argc)
	for i := range args {
		var size [4]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			return nil, fmt.Errorf("%w: reading length of argument %d: %w", ErrMalformed, i, err)
		}
		n := binary.BigEndian.Uint32(size[:])
		if n > maxArgSize {
			return nil, fmt.Errorf("%w: argument %d is %d bytes", ErrMalformed, i, n)
		}
		args[i] = make([]byte, n)
		if _, err := io.ReadFull(r, args[i]); err != nil {
			return nil, fmt.Errorf("%w: reading argument %d: %w", ErrMalformed, i, err)
		}
	}
	return args, nil
}
