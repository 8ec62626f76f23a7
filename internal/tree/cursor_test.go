package tree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esekit/esekit/internal/eseformat"
	"github.com/esekit/esekit/internal/pager"
)

// memSource is an ioadapter.Source backed by an in-memory buffer, used to
// synthesize fixtures without touching the filesystem.
type memSource struct{ data []byte }

func (m *memSource) ReadAt(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset+int64(n) > int64(len(m.data)) {
		return nil, pager.ErrIO
	}
	return m.data[offset : offset+int64(n)], nil
}
func (m *memSource) Size() int64  { return int64(len(m.data)) }
func (m *memSource) Close() error { return nil }

// buildLeafPage writes a single-entry legacy leaf page: tag 0 is the empty
// key prefix, tag 1 is a one-byte-key/one-byte-value data cell.
func buildLeafPage(page []byte, selfNumber, nextPage uint32, root bool, key, value byte) {
	flags := uint32(eseformat.PageFlagLeaf)
	if root {
		flags |= eseformat.PageFlagRoot
	}
	binary.LittleEndian.PutUint32(page[eseformat.PageFlagsOffset:], flags)
	binary.LittleEndian.PutUint32(page[eseformat.PagePageNumberOffset:], selfNumber)
	binary.LittleEndian.PutUint32(page[eseformat.PageNextNumberOffset:], nextPage)
	binary.LittleEndian.PutUint16(page[eseformat.PageFirstAvailTagOffset:], 2)

	// tag 1 data cell: keySize(1) + key + value, placed at body offset 0.
	cell := []byte{0x01, 0x00, key, value}
	copy(page[eseformat.PageHeaderLegacySize:], cell)

	// Tag table grows down from the top of the page.
	binary.LittleEndian.PutUint16(page[len(page)-2:], 0) // tag 0 size
	binary.LittleEndian.PutUint16(page[len(page)-4:], 0) // tag 0 offset
	binary.LittleEndian.PutUint16(page[len(page)-6:], uint16(len(cell))) // tag 1 size
	binary.LittleEndian.PutUint16(page[len(page)-8:], 0)                // tag 1 offset

	binary.LittleEndian.PutUint32(page[eseformat.PageXorChecksumOffset:], eseformat.PageChecksum(page, eseformat.PageHeaderLegacySize))
}

func buildCyclicFixture(t *testing.T) *pager.Pager {
	t.Helper()
	pageSize := uint32(4096)
	totalPages := int64(11)
	data := make([]byte, 2*int64(pageSize)+totalPages*int64(pageSize))

	binary.LittleEndian.PutUint32(data[eseformat.HeaderSignatureOffset:], eseformat.Signature)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderFormatVersionOffset:], eseformat.FormatVersion0x620)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderPageSizeOffset:], pageSize)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderCheckSumOffset:], eseformat.HeaderChecksum(data[:eseformat.HeaderProbeSize]))

	page10Offset := 2*int64(pageSize) + 9*int64(pageSize)
	page11Offset := 2*int64(pageSize) + 10*int64(pageSize)
	page10 := data[page10Offset : page10Offset+int64(pageSize)]
	page11 := data[page11Offset : page11Offset+int64(pageSize)]

	buildLeafPage(page10, 10, 11, true, 0x10, 0xAA)
	buildLeafPage(page11, 11, 10, false, 0x11, 0xBB)

	pg, err := pager.Open(&memSource{data: data})
	require.NoError(t, err)
	return pg
}

// TestCursor_CycleDetection builds leaf page 10's next_page pointing at 11
// and page 11's next_page pointing back at 10; a full scan must emit each
// page's record exactly once and then abort with ErrTreeCycle.
func TestCursor_CycleDetection(t *testing.T) {
	pg := buildCyclicFixture(t)

	c := New(pg)
	require.NoError(t, c.SeekFirst(10))

	require.True(t, c.Valid())
	kv, err := c.KeyValue()
	require.NoError(t, err)
	require.Equal(t, []byte{0x10}, kv.Key)
	require.Equal(t, []byte{0xAA}, kv.Value)

	require.NoError(t, c.Next())
	require.True(t, c.Valid())
	kv, err = c.KeyValue()
	require.NoError(t, err)
	require.Equal(t, []byte{0x11}, kv.Key)
	require.Equal(t, []byte{0xBB}, kv.Value)

	err = c.Next()
	require.ErrorIs(t, err, ErrTreeCycle)
	require.False(t, c.Valid())
	require.ErrorIs(t, c.Err(), ErrTreeCycle)
}
