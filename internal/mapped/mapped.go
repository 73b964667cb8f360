// Package mapped opens input files as read-only byte readers, memory-mapped
// where the platform supports it.
package mapped

import (
	"bytes"
	"fmt"
	"os"
)

// File is an opened input file. Its contents must not be used after Close.
type File struct {
	*bytes.Reader
	release func() error
}

// Open maps name for reading.
//
//	f, err := mapped.Open("large.csv")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	err = proc.Process(f, sink)
func Open(name string) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapped: stat %s: %w", name, err)
	}
	if stat.Size() == 0 || !stat.Mode().IsRegular() {
		// pipes and devices cannot be mapped
		data, err := readAll(f)
		if err != nil {
			return nil, fmt.Errorf("mapped: read %s: %w", name, err)
		}
		return &File{Reader: bytes.NewReader(data), release: func() error { return nil }}, nil
	}

	data, release, err := mapFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("mapped: %s: %w", name, err)
	}
	return &File{Reader: bytes.NewReader(data), release: release}, nil
}

// Close unmaps the file. Calling Close again does nothing.
func (f *File) Close() error {
	if f.release == nil {
		return nil
	}
	err := f.release()
	f.release = nil
	f.Reader = bytes.NewReader(nil)
	return err
}

func readAll(f *os.File) ([]byte, error) {
	defer f.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(f)
	return buf.Bytes(), err
}
