//go:build !unix

package mapped

import "os"

// mapFile reads the whole file where mmap is not available.
func mapFile(f *os.File, _ int64) ([]byte, func() error, error) {
	data, err := readAll(f)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
