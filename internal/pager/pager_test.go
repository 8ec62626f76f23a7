package pager

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esekit/esekit/internal/eseformat"
)

// memSource is an ioadapter.Source backed by an in-memory buffer, used to
// synthesize fixtures without touching the filesystem.
type memSource struct{ data []byte }

func (m *memSource) ReadAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset+int64(n) > int64(len(m.data)) {
		return nil, ErrIO
	}
	return m.data[offset : offset+int64(n)], nil
}
func (m *memSource) Size() int64  { return int64(len(m.data)) }
func (m *memSource) Close() error { return nil }

func buildHeader(buf []byte, pageSize uint32, valid bool) {
	binary.LittleEndian.PutUint32(buf[eseformat.HeaderSignatureOffset:], eseformat.Signature)
	binary.LittleEndian.PutUint32(buf[eseformat.HeaderFormatVersionOffset:], eseformat.FormatVersion0x620)
	binary.LittleEndian.PutUint32(buf[eseformat.HeaderPageSizeOffset:], pageSize)
	if valid {
		binary.LittleEndian.PutUint32(buf[eseformat.HeaderCheckSumOffset:], eseformat.HeaderChecksum(buf))
	} else {
		binary.LittleEndian.PutUint32(buf[eseformat.HeaderCheckSumOffset:], 0xdeadbeef)
	}
}

func TestOpen_PrimaryValid(t *testing.T) {
	pageSize := uint32(4096)
	data := make([]byte, 2*int64(pageSize))
	buildHeader(data[:eseformat.HeaderProbeSize], pageSize, true)
	buildHeader(data[pageSize:pageSize+eseformat.HeaderProbeSize], pageSize, false)

	p, err := Open(&memSource{data: data})
	require.NoError(t, err)
	require.Equal(t, pageSize, p.Header().PageSize)
}

func TestOpen_ShadowFallback(t *testing.T) {
	pageSize := uint32(8192)
	data := make([]byte, 2*int64(pageSize))
	// Primary header has a valid signature and page size (so the real
	// shadow offset can be computed) but a corrupted checksum.
	buildHeader(data[:eseformat.HeaderProbeSize], pageSize, false)
	buildHeader(data[pageSize:pageSize+eseformat.HeaderProbeSize], pageSize, true)

	p, err := Open(&memSource{data: data})
	require.NoError(t, err)
	require.Equal(t, pageSize, p.Header().PageSize)
}

func TestOpen_BothCorrupt(t *testing.T) {
	data := make([]byte, 2*4096)
	_, err := Open(&memSource{data: data})
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestReadPage_BeyondEOF(t *testing.T) {
	pageSize := uint32(4096)
	data := make([]byte, 2*int64(pageSize))
	buildHeader(data[:eseformat.HeaderProbeSize], pageSize, true)

	p, err := Open(&memSource{data: data})
	require.NoError(t, err)

	_, err = p.ReadPage(1)
	require.ErrorIs(t, err, ErrIO)
}
