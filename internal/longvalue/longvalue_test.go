package longvalue

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

// buildLongValuePage lays cells (each already a full legacy (keySize, key,
// value) tuple) sequentially on a single ROOT+LEAF page, keyed in the order
// given; callers are responsible for supplying them in ascending key order,
// since the cursor does not sort.
func buildLongValuePage(page []byte, cells [][]byte) {
	binary.LittleEndian.PutUint32(page[eseformat.PageFlagsOffset:], eseformat.PageFlagRoot|eseformat.PageFlagLeaf)
	binary.LittleEndian.PutUint32(page[eseformat.PageExtSelfNumberOffset:], 1)
	binary.LittleEndian.PutUint16(page[eseformat.PageFirstAvailTagOffset:], uint16(1+len(cells)))

	// tag 0: empty key prefix.
	binary.LittleEndian.PutUint16(page[len(page)-2:], 0)
	binary.LittleEndian.PutUint16(page[len(page)-4:], 0)

	bodyOff := eseformat.PageHeaderExtendedSize
	for i, cell := range cells {
		copy(page[bodyOff:], cell)
		tagIdx := i + 1
		tagOff := len(page) - (tagIdx+1)*4
		binary.LittleEndian.PutUint16(page[tagOff:], uint16(bodyOff-eseformat.PageHeaderExtendedSize))
		binary.LittleEndian.PutUint16(page[tagOff+2:], uint16(len(cell)))
		bodyOff += len(cell)
	}

	binary.LittleEndian.PutUint32(page[eseformat.PageXorChecksumOffset:], eseformat.PageChecksum(page, eseformat.PageHeaderExtendedSize))
}

// legacyCell packs a (key, value) pair the way AssembleKey's legacy layout
// expects: a two-byte key-size index prefix ahead of the raw key and value.
func legacyCell(key, value []byte) []byte {
	cell := make([]byte, 2+len(key)+len(value))
	binary.LittleEndian.PutUint16(cell[0:], uint16(len(key)))
	copy(cell[2:], key)
	copy(cell[2+len(key):], value)
	return cell
}

func openLongValueFixture(t *testing.T, cells [][]byte) *pager.Pager {
	t.Helper()
	pageSize := uint32(32768) // >=16384 forces the extended page header.
	data := make([]byte, 2*int64(pageSize)+int64(pageSize))

	binary.LittleEndian.PutUint32(data[eseformat.HeaderSignatureOffset:], eseformat.Signature)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderFormatVersionOffset:], eseformat.FormatVersion0x620)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderPageSizeOffset:], pageSize)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderCheckSumOffset:], eseformat.HeaderChecksum(data[:eseformat.HeaderProbeSize]))

	page := data[2*int64(pageSize) : 3*int64(pageSize)]
	buildLongValuePage(page, cells)

	pg, err := pager.Open(&memSource{data: data})
	require.NoError(t, err)
	return pg
}

func segment(b byte) []byte {
	out := make([]byte, 4096)
	for i := range out {
		out[i] = b
	}
	return out
}

// TestReassemble_ThreeSegments matches the long-value seed scenario: a 12
// KiB value split into three 4 KiB segments at offsets 0, 4096, and 8192
// under long_value_id 0x0000002A.
func TestReassemble_ThreeSegments(t *testing.T) {
	const id = 0x0000002A
	declared := make([]byte, 4)
	binary.LittleEndian.PutUint32(declared, 12288)

	meta := legacyCell(idKey(id), declared)
	seg0 := legacyCell(segmentKey(id, 0), segment(0x01))
	seg1 := legacyCell(segmentKey(id, 4096), segment(0x02))
	seg2 := legacyCell(segmentKey(id, 8192), segment(0x03))

	pg := openLongValueFixture(t, [][]byte{meta, seg0, seg1, seg2})

	out, err := Reassemble(pg, 1, id)
	require.NoError(t, err)
	require.Len(t, out, 12288)
	require.Equal(t, segment(0x01), out[0:4096])
	require.Equal(t, segment(0x02), out[4096:8192])
	require.Equal(t, segment(0x03), out[8192:12288])
}

// TestReassemble_MissingSegment confirms that removing the (0x2A, 8192)
// segment surfaces as a length-mismatch error: the metadata cell still
// resolves, but the concatenated segments fall short of the declared size.
func TestReassemble_MissingSegment(t *testing.T) {
	const id = 0x0000002A
	declared := make([]byte, 4)
	binary.LittleEndian.PutUint32(declared, 12288)

	meta := legacyCell(idKey(id), declared)
	seg0 := legacyCell(segmentKey(id, 0), segment(0x01))
	seg1 := legacyCell(segmentKey(id, 4096), segment(0x02))

	pg := openLongValueFixture(t, [][]byte{meta, seg0, seg1})

	_, err := Reassemble(pg, 1, id)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

// TestReassemble_UnknownID confirms a long value id entirely absent from the
// tree surfaces as ErrMissing, distinct from a present-but-short value.
func TestReassemble_UnknownID(t *testing.T) {
	const id = 0x0000002A
	declared := make([]byte, 4)
	binary.LittleEndian.PutUint32(declared, 4096)
	meta := legacyCell(idKey(id), declared)
	seg0 := legacyCell(segmentKey(id, 0), segment(0x01))

	pg := openLongValueFixture(t, [][]byte{meta, seg0})

	_, err := Reassemble(pg, 1, 0x99)
	require.ErrorIs(t, err, ErrMissing)
}
