//go:build windows

package ioadapter

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmapSource is a Source backed by a read-only file mapping, mirroring the
// unix variant's slice-over-mapping behavior.
type mmapSource struct {
	data    []byte
	addr    uintptr
	mapping windows.Handle
}

// OpenMmap maps path read-only into memory using CreateFileMapping/MapViewOfFile.
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

	h := windows.Handle(f.Fd())
	mapping, err := windows.CreateFileMapping(h, nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapping)
		return nil, err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	return &mmapSource{data: data, addr: addr, mapping: mapping}, nil
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
	if err := windows.UnmapViewOfFile(s.addr); err != nil {
		return err
	}
	return windows.CloseHandle(s.mapping)
}
