//go:build !unix && !windows

package ioadapter

import (
	"fmt"
	"os"
)

// mmapSource on platforms without a native mapping falls back to reading
// the whole file into memory once.
type mmapSource struct {
	data []byte
}

// OpenMmap reads the whole file when mmap is not available on this platform.
func OpenMmap(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &mmapSource{data: data}, nil
}

func (s *mmapSource) ReadAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset+int64(n) > int64(len(s.data)) {
		return nil, fmt.Errorf("ioadapter: read [%d:%d) exceeds length %d", offset, offset+int64(n), len(s.data))
	}
	return s.data[offset : offset+int64(n)], nil
}

func (s *mmapSource) Size() int64 { return int64(len(s.data)) }

func (s *mmapSource) Close() error { return nil }
