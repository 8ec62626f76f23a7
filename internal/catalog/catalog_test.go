package catalog

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

func utf16leBytes(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		out = append(out, s[i], 0)
	}
	return out
}

// encodeCatalogRow builds the raw record bytes for a single bootstrapSchema
// row: header, the nine fixed fields in id order, a two-byte null bitmap
// (no nulls), the one-entry variable-offset table, and the Name data.
func encodeCatalogRow(objidTable uint32, typ uint16, id, coltypOrFDP, spaceUsage, flags, codepage, lvRoot, templateID uint32, name string) []byte {
	nameBytes := utf16leBytes(name)
	const fixedLen = 4 + 2 + 4 + 4 + 4 + 4 + 4 + 4 + 4 // 9 fixed columns
	const nullBitmapLen = 2                            // ceil(9/8)
	varTableOffset := eseformat.RecordHeaderSize + fixedLen + nullBitmapLen

	out := make([]byte, varTableOffset+2+len(nameBytes))
	out[eseformat.RecordLastFixedColumnIDOffset] = 9
	out[eseformat.RecordLastVariableColumnIDOffset] = 128
	binary.LittleEndian.PutUint16(out[eseformat.RecordVariableOffsetTableOffset:], uint16(varTableOffset))

	off := eseformat.RecordHeaderSize
	binary.LittleEndian.PutUint32(out[off:], objidTable)
	off += 4
	binary.LittleEndian.PutUint16(out[off:], typ)
	off += 2
	binary.LittleEndian.PutUint32(out[off:], id)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], coltypOrFDP)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], spaceUsage)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], flags)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], codepage)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], lvRoot)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], templateID)
	off += 4
	// null bitmap: two zero bytes, already zero-valued.

	binary.LittleEndian.PutUint16(out[varTableOffset:], uint16(len(nameBytes)))
	copy(out[varTableOffset+2:], nameBytes)
	return out
}

// buildCatalogPage lays rows out as sequential leaf cells on the catalog
// root page (page 4), each keyed by a one-byte key, in the order given.
func buildCatalogPage(page []byte, keys []byte, rows [][]byte) {
	binary.LittleEndian.PutUint32(page[eseformat.PageFlagsOffset:], eseformat.PageFlagRoot|eseformat.PageFlagLeaf)
	binary.LittleEndian.PutUint32(page[eseformat.PagePageNumberOffset:], eseformat.CatalogRootPage)
	binary.LittleEndian.PutUint16(page[eseformat.PageFirstAvailTagOffset:], uint16(1+len(rows)))

	// tag 0: empty key prefix.
	binary.LittleEndian.PutUint16(page[len(page)-2:], 0)
	binary.LittleEndian.PutUint16(page[len(page)-4:], 0)

	bodyOff := eseformat.PageHeaderLegacySize
	for i, row := range rows {
		cell := make([]byte, 2+1+len(row))
		binary.LittleEndian.PutUint16(cell[0:], 1)
		cell[2] = keys[i]
		copy(cell[3:], row)

		copy(page[bodyOff:], cell)
		tagIdx := i + 1
		tagOff := len(page) - (tagIdx+1)*4
		binary.LittleEndian.PutUint16(page[tagOff:], uint16(bodyOff-eseformat.PageHeaderLegacySize))
		binary.LittleEndian.PutUint16(page[tagOff+2:], uint16(len(cell)))
		bodyOff += len(cell)
	}

	binary.LittleEndian.PutUint32(page[eseformat.PageXorChecksumOffset:], eseformat.PageChecksum(page, eseformat.PageHeaderLegacySize))
}

func openCatalogFixture(t *testing.T, rows [][]byte, keys []byte) *pager.Pager {
	t.Helper()
	pageSize := uint32(4096)
	data := make([]byte, 2*int64(pageSize)+4*int64(pageSize))

	binary.LittleEndian.PutUint32(data[eseformat.HeaderSignatureOffset:], eseformat.Signature)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderFormatVersionOffset:], eseformat.FormatVersion0x620)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderPageSizeOffset:], pageSize)
	binary.LittleEndian.PutUint32(data[eseformat.HeaderCheckSumOffset:], eseformat.HeaderChecksum(data[:eseformat.HeaderProbeSize]))

	page4Offset := 2*int64(pageSize) + 3*int64(pageSize)
	page4 := data[page4Offset : page4Offset+int64(pageSize)]
	buildCatalogPage(page4, keys, rows)

	pg, err := pager.Open(&memSource{data: data})
	require.NoError(t, err)
	return pg
}

// TestResolve_TableEnumeration matches the catalog-enumeration seed scenario:
// two TABLE rows, MSysObjects (id=2) and People (id=7).
func TestResolve_TableEnumeration(t *testing.T) {
	row1 := encodeCatalogRow(0, eseformat.CatalogTypeTable, 2, 50, 0, 0, 0, 0, 0, "MSysObjects")
	row2 := encodeCatalogRow(0, eseformat.CatalogTypeTable, 7, 60, 0, 0, 0, 0, 0, "People")
	pg := openCatalogFixture(t, [][]byte{row1, row2}, []byte{0x02, 0x07})

	tables, err := Resolve(pg)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	names := map[string]bool{}
	for _, tbl := range tables {
		names[tbl.Name] = true
	}
	require.True(t, names["MSysObjects"])
	require.True(t, names["People"])

	people, ok := tables[7]
	require.True(t, ok)
	require.Equal(t, "People", people.Name)
	require.Equal(t, uint32(7), people.ID)
}

// TestResolve_TemplateInheritance confirms a template table's columns are
// prepended, additively, ahead of a referencing table's own columns.
func TestResolve_TemplateInheritance(t *testing.T) {
	base := encodeCatalogRow(0, eseformat.CatalogTypeTable, 20, 100, 0, 0, 0, 0, 0, "Base")
	baseCol := encodeCatalogRow(20, eseformat.CatalogTypeColumn, 1, uint32(eseformat.ColumnTypeLong), 0, 0, 0, 0, 0, "TemplateCol")
	child := encodeCatalogRow(0, eseformat.CatalogTypeTable, 21, 200, 0, 0, 0, 0, 20, "Child")
	childCol := encodeCatalogRow(21, eseformat.CatalogTypeColumn, 2, uint32(eseformat.ColumnTypeLong), 0, 0, 0, 0, 0, "ChildCol")

	rows := [][]byte{base, baseCol, child, childCol}
	keys := []byte{0x01, 0x02, 0x03, 0x04}
	pg := openCatalogFixture(t, rows, keys)

	tables, err := Resolve(pg)
	require.NoError(t, err)

	childTbl, ok := tables[21]
	require.True(t, ok)
	require.Len(t, childTbl.Fixed, 2)
	require.Equal(t, "TemplateCol", childTbl.Fixed[0].Name)
	require.Equal(t, "ChildCol", childTbl.Fixed[1].Name)

	baseTbl, ok := tables[20]
	require.True(t, ok)
	require.Len(t, baseTbl.Fixed, 1)
	require.Equal(t, "TemplateCol", baseTbl.Fixed[0].Name)
}
