// Package record decodes a leaf-cell payload from a data page-tree into a
// column-indexed view, given a table's schema: fixed columns, variable
// columns, and tagged columns, resolving long-value references and
// multi-value/compressed encodings along the way.
package record

import "github.com/esekit/esekit/internal/eseformat"

// Column describes one column of a table, as produced by the catalog
// resolver.
type Column struct {
	ID       uint32
	Name     string
	Type     eseformat.ColumnType
	Codepage uint32
	// Flags is the catalog COLUMN row's own flags field, carried through
	// unchanged; higher layers use it to select a column-type sub-tag (for
	// example DATE_TIME's FILETIME vs. OLE Automation Date encoding).
	Flags uint32
	// FixedSize is the column's on-disk width when Kind == KindFixed; it is
	// derived from Type for every fixed-width type.
	FixedSize int
	Kind      ColumnKind
}

// ColumnKind classifies a column by which record region holds its data.
type ColumnKind uint8

const (
	KindFixed ColumnKind = iota
	KindVariable
	KindTagged
)

// FixedWidth returns the on-disk byte width of a fixed-size column type, or
// 0 if t is not a fixed-width type.
func FixedWidth(t eseformat.ColumnType) int {
	switch t {
	case eseformat.ColumnTypeBit, eseformat.ColumnTypeUnsignedByte:
		return 1
	case eseformat.ColumnTypeShort, eseformat.ColumnTypeUnsignedShort:
		return 2
	case eseformat.ColumnTypeLong, eseformat.ColumnTypeUnsignedLong, eseformat.ColumnTypeIEEESingle:
		return 4
	case eseformat.ColumnTypeCurrency, eseformat.ColumnTypeIEEEDouble, eseformat.ColumnTypeDateTime, eseformat.ColumnTypeLongLong:
		return 8
	case eseformat.ColumnTypeGUID:
		return 16
	default:
		return 0
	}
}

// Schema is a table's fully resolved column list, as the catalog resolver
// produces it: fixed and variable columns sorted by column id, tagged
// columns in catalog order.
type Schema struct {
	Fixed    []Column // sorted by ID
	Variable []Column // sorted by ID
	Tagged   []Column
}

// ColumnByID returns the column with the given id across all three
// regions, or false if no such column exists in the schema.
func (s Schema) ColumnByID(id uint32) (Column, bool) {
	for _, c := range s.Fixed {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range s.Variable {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range s.Tagged {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}
