// Package ioadapter supplies the byte-I/O backends the pager reads through.
// The core depends only on the small Source interface; any file-backed
// implementation satisfying it works.
package ioadapter

import "os"

// Source is the abstract byte-I/O backend the pager consumes: a simple
// read_at(offset, len) -> bytes contract. Any implementation satisfying it
// can back a Handle.
type Source interface {
	// ReadAt returns exactly n bytes starting at offset, or an error if the
	// backing store is shorter than offset+n.
	ReadAt(offset int64, n int) ([]byte, error)
	// Size returns the backing store's total byte length.
	Size() int64
	// Close releases any resources held by the backend.
	Close() error
}

// fileSource reads via os.File.ReadAt, copying into a freshly allocated
// buffer per call.
type fileSource struct {
	f    *os.File
	size int64
}

// OpenFile opens path and returns a Source backed by ordinary file reads.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileSource{f: f, size: info.Size()}, nil
}

func (s *fileSource) ReadAt(offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := s.f.ReadAt(buf, offset)
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

func (s *fileSource) Size() int64 { return s.size }

func (s *fileSource) Close() error { return s.f.Close() }
