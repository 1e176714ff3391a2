package debian

import (
	"errors"
	"io"
	"strings"

	"pault.ag/go/debian/control"
)

// ParseControl reads the first paragraph of a binary package control file.
func ParseControl(r io.Reader) (*Record, error) {
	dec, err := control.NewDecoder(r, nil)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	rec.Package = strings.TrimSpace(rec.Package)
	if rec.Package == "" {
		return nil, errors.New("control file has no package name")
	}
	return &rec, nil
}
