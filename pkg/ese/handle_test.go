package ese

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esekit/esekit/internal/eseformat"
)

func writeMinimalFixture(t *testing.T, pageSize uint32, pages int) string {
	t.Helper()
	total := 2*int64(pageSize) + int64(pages)*int64(pageSize)
	data := make([]byte, total)

	binary.LittleEndian.PutUint32(data[eseformat.HeaderSignatureOffset:], eseformat.Signature)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderFormatVersionOffset:], eseformat.FormatVersion0x620)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderPageSizeOffset:], pageSize)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderCheckSumOffset:], eseformat.HeaderChecksum(data[:eseformat.HeaderProbeSize]))

	// Page 4 (catalog root): an empty leaf+root page with one tag (the
	// empty key prefix, tag 0), no data rows.
	page4Offset := 2*int64(pageSize) + 3*int64(pageSize)
	page4 := data[page4Offset : page4Offset+int64(pageSize)]
	binary.LittleEndian.PutUint32(page4[eseformat.PageFlagsOffset:], eseformat.PageFlagRoot|eseformat.PageFlagLeaf|eseformat.PageFlagEmpty)
	binary.LittleEndian.PutUint32(page4[eseformat.PagePageNumberOffset:], 4)
	binary.LittleEndian.PutUint16(page4[eseformat.PageFirstAvailTagOffset:], 1)
	// tag 0: offset 0, size 0 (empty key prefix), in the tag table at the
	// very top of the page.
	binary.LittleEndian.PutUint16(page4[len(page4)-2:], 0) // size
	binary.LittleEndian.PutUint16(page4[len(page4)-4:], 0) // offset
	binary.LittleEndian.PutUint32(page4[eseformat.PageXorChecksumOffset:], eseformat.PageChecksum(page4, eseformat.PageHeaderLegacySize))

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.ese")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpen_EmptyCatalog(t *testing.T) {
	path := writeMinimalFixture(t, 4096, 4)

	h, err := Open(path, OpenOptions{})
	require.NoError(t, err)
	defer h.Close()

	tables, err := h.Tables()
	require.NoError(t, err)
	require.Empty(t, tables)
}

func TestOpen_ClosedHandleReturnsClosedError(t *testing.T) {
	path := writeMinimalFixture(t, 4096, 4)

	h, err := Open(path, OpenOptions{})
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = h.Tables()
	require.Error(t, err)
	eseErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrKindClosed, eseErr.Kind)
}
