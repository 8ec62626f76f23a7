//go:build unix

package ioadapter

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mmapSource is a Source backed by a read-only shared mapping of the whole
// file. ReadAt slices the mapping directly; callers must not retain
// returned slices past Close.
type mmapSource struct {
	data []byte
}

// OpenMmap maps path read-only into memory.
func OpenMmap(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &mmapSource{data: []byte{}}, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("ioadapter: file too large to map (%d bytes)", size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &mmapSource{data: data}, nil
}

func (s *mmapSource) ReadAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset+int64(n) > int64(len(s.data)) {
		return nil, fmt.Errorf("ioadapter: read [%d:%d) exceeds mapped length %d", offset, offset+int64(n), len(s.data))
	}
	return s.data[offset : offset+int64(n)], nil
}

func (s *mmapSource) Size() int64 { return int64(len(s.data)) }

func (s *mmapSource) Close() error {
	if len(s.data) == 0 {
		return nil
	}
	return unix.Munmap(s.data)
}
