//go:build !unix

package dpkg

const DefaultLockDir = ""

// DpkgLock is a no-op where dpkg doesn't exist.
type DpkgLock struct {
	Dir string
}

func (DpkgLock) Probe() error {
	return nil
}
