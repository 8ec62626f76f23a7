package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esekit/esekit/internal/eseformat"
)

func peopleSchema() Schema {
	return Schema{
		Fixed: []Column{
			{ID: 1, Name: "id", Type: eseformat.ColumnTypeLong, FixedSize: 4, Kind: KindFixed},
			{ID: 2, Name: "age", Type: eseformat.ColumnTypeUnsignedByte, FixedSize: 1, Kind: KindFixed},
		},
		Variable: []Column{
			{ID: 3, Name: "name", Type: eseformat.ColumnTypeText, Codepage: eseformat.CodepageUTF16LE, Kind: KindVariable},
		},
	}
}

func TestDecode_FixedAndVariable(t *testing.T) {
	data := []byte{
		2, 3, // lastFixedID, lastVarID
		10, 0, // varTableOffset = 10
		0x04, 0x03, 0x02, 0x01, // id = 0x01020304 LE
		0x2A,       // age = 42
		0x00,       // null bitmap, no nulls
		0x06, 0x00, // variable offset table: name ends at 6
		0x42, 0x00, 0x6F, 0x00, 0x62, 0x00, // "Bob" UTF-16LE
	}

	rec, err := Decode(data, peopleSchema(), false, nil)
	require.NoError(t, err)

	id, ok := rec.Value(1)
	require.True(t, ok)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, id.Raw)

	age, ok := rec.Value(2)
	require.True(t, ok)
	require.Equal(t, []byte{0x2A}, age.Raw)

	name, ok := rec.Value(3)
	require.True(t, ok)
	require.Equal(t, []byte{0x42, 0x00, 0x6F, 0x00, 0x62, 0x00}, name.Raw)
}

func TestDecode_TaggedOnly(t *testing.T) {
	data := []byte{
		0, 0, // no fixed, no variable
		4, 0, // varTableOffset = 4 (no null bitmap bytes, no variable entries)
		// tagged region starts immediately:
		0x05, 0x00, 0x04, 0x00, // entry: column 5, offset 4 (end of index)
		0xAA, 0xBB, // value bytes
	}
	schema := Schema{Tagged: []Column{{ID: 5, Name: "note", Type: eseformat.ColumnTypeBinary, Kind: KindTagged}}}

	rec, err := Decode(data, schema, false, nil)
	require.NoError(t, err)
	v, ok := rec.Value(5)
	require.True(t, ok)
	require.Equal(t, []byte{0xAA, 0xBB}, v.Raw)
}

func TestExpand7BitASCII(t *testing.T) {
	// "AB" packed at 7 bits/char: A=0x41=1000001, B=0x42=1000010
	packed := []byte{0x41, 0x21}
	got := expand7BitASCII(packed)
	require.Equal(t, []byte{'A', 'B'}, got[:2])
}
