//go:build !unix

package preflight

import "errors"

func freeBytes(path string) (uint64, error) {
	return 0, errors.New("free space check not supported on this platform")
}
