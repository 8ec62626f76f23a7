// Package catalog enumerates every table, column, and index in the
// database by walking the reserved page-tree rooted at page 4. It is a
// specialization of the B⁺-tree cursor: the catalog's own row shape is
// fixed, so this package decodes it directly rather than taking a
// caller-supplied schema.
package catalog

import (
	"github.com/esekit/esekit/internal/eseformat"
	"github.com/esekit/esekit/internal/pager"
	"github.com/esekit/esekit/internal/record"
	"github.com/esekit/esekit/internal/tree"
)

// Bootstrap fixed-column ids for a catalog row. The catalog's own schema
// is not stored in the catalog (it would be circular); it is the one
// schema this library hard-codes.
const (
	colObjidTable      = 1 // table/object id this row belongs under
	colType            = 2 // CatalogType* tag
	colID              = 3 // the row's own id (table, column, or index id)
	colColtypOrPgnoFDP = 4 // COLUMN: column type. TABLE: data page-tree root. INDEX: index root.
	colSpaceUsage      = 5
	colFlags           = 6
	colCodepage        = 7
	colLongValueRoot   = 8 // TABLE rows only: long-value page-tree root
	colTemplateTableID = 9 // TABLE rows only: 0 if no template
	colName            = 128
)

func bootstrapSchema() record.Schema {
	u32 := func(id uint32, name string) record.Column {
		return record.Column{ID: id, Name: name, Type: eseformat.ColumnTypeLong, FixedSize: 4, Kind: record.KindFixed}
	}
	u16 := func(id uint32, name string) record.Column {
		return record.Column{ID: id, Name: name, Type: eseformat.ColumnTypeShort, FixedSize: 2, Kind: record.KindFixed}
	}
	return record.Schema{
		Fixed: []record.Column{
			u32(colObjidTable, "ObjidTable"),
			u16(colType, "Type"),
			u32(colID, "Id"),
			u32(colColtypOrPgnoFDP, "ColtypOrPgnoFDP"),
			u32(colSpaceUsage, "SpaceUsage"),
			u32(colFlags, "Flags"),
			u32(colCodepage, "Codepage"),
			u32(colLongValueRoot, "LongValueRoot"),
			u32(colTemplateTableID, "TemplateTableId"),
		},
		Variable: []record.Column{
			{ID: colName, Name: "Name", Type: eseformat.ColumnTypeText, Codepage: eseformat.CodepageUTF16LE, Kind: record.KindVariable},
		},
	}
}

// Column is one resolved column definition belonging to a table.
type Column struct {
	ID       uint32
	Name     string
	Type     eseformat.ColumnType
	Codepage uint32
	Flags    uint32
	Kind     record.ColumnKind
}

// Index is one resolved (name, root page) pair belonging to a table.
type Index struct {
	Name string
	Root uint32
}

// Table is a table's fully resolved schema.
type Table struct {
	ID             uint32
	Name           string
	DataRoot       uint32
	LongValueRoot  uint32
	TemplateTableID uint32

	Fixed    []Column
	Variable []Column
	Tagged   []Column
	Indexes  []Index
}

// RecordSchema converts a Table's resolved columns into the shape the
// record decoder consumes.
func (t Table) RecordSchema() record.Schema {
	conv := func(cols []Column) []record.Column {
		out := make([]record.Column, len(cols))
		for i, c := range cols {
			out[i] = record.Column{ID: c.ID, Name: c.Name, Type: c.Type, Codepage: c.Codepage, Flags: c.Flags, FixedSize: record.FixedWidth(c.Type), Kind: c.Kind}
		}
		return out
	}
	return record.Schema{Fixed: conv(t.Fixed), Variable: conv(t.Variable), Tagged: conv(t.Tagged)}
}

// rawRow is one decoded catalog leaf record, before grouping by table.
type rawRow struct {
	objidTable uint32
	typ        uint16
	id         uint32
	coltypOrFDP uint32
	spaceUsage uint32
	flags      uint32
	codepage   uint32
	lvRoot     uint32
	templateID uint32
	name       string
}

// Resolve walks the catalog page-tree and returns every table's fully
// resolved schema, including template-table column inheritance.
func Resolve(pg *pager.Pager) (map[uint32]*Table, error) {
	rows, err := scanRows(pg)
	if err != nil {
		return nil, err
	}

	tables := map[uint32]*Table{}
	for _, r := range rows {
		if r.typ == eseformat.CatalogTypeTable {
			tables[r.id] = &Table{
				ID:              r.id,
				Name:            r.name,
				DataRoot:        r.coltypOrFDP,
				LongValueRoot:   r.lvRoot,
				TemplateTableID: r.templateID,
			}
		}
	}

	for _, r := range rows {
		tbl, ok := tables[r.objidTable]
		if !ok {
			continue
		}
		switch r.typ {
		case eseformat.CatalogTypeColumn:
			if hasColumnID(tbl, r.id) {
				return nil, ErrDuplicateColumnID
			}
			col := Column{ID: r.id, Name: r.name, Type: eseformat.ColumnType(r.coltypOrFDP), Codepage: r.codepage, Flags: r.flags}
			switch classifyColumn(col.Type) {
			case record.KindFixed:
				col.Kind = record.KindFixed
				tbl.Fixed = append(tbl.Fixed, col)
			case record.KindVariable:
				col.Kind = record.KindVariable
				tbl.Variable = append(tbl.Variable, col)
			default:
				col.Kind = record.KindTagged
				tbl.Tagged = append(tbl.Tagged, col)
			}
		case eseformat.CatalogTypeIndex:
			tbl.Indexes = append(tbl.Indexes, Index{Name: r.name, Root: r.coltypOrFDP})
		}
	}

	if err := resolveTemplates(tables); err != nil {
		return nil, err
	}

	for _, t := range tables {
		sortByID(t.Fixed)
		sortByID(t.Variable)
	}

	return tables, nil
}

func hasColumnID(t *Table, id uint32) bool {
	for _, c := range t.Fixed {
		if c.ID == id {
			return true
		}
	}
	for _, c := range t.Variable {
		if c.ID == id {
			return true
		}
	}
	for _, c := range t.Tagged {
		if c.ID == id {
			return true
		}
	}
	return false
}

func classifyColumn(t eseformat.ColumnType) record.ColumnKind {
	switch t {
	case eseformat.ColumnTypeLongBinary, eseformat.ColumnTypeLongText, eseformat.ColumnTypeSuperLongValue:
		return record.KindTagged
	case eseformat.ColumnTypeBinary, eseformat.ColumnTypeText:
		return record.KindVariable
	default:
		if record.FixedWidth(t) > 0 {
			return record.KindFixed
		}
		return record.KindTagged
	}
}

func sortByID(cols []Column) {
	for i := 1; i < len(cols); i++ {
		for j := i; j > 0 && cols[j].ID < cols[j-1].ID; j-- {
			cols[j], cols[j-1] = cols[j-1], cols[j]
		}
	}
}

// resolveTemplates prepends a template table's columns ahead of each
// referencing table's own columns. Columns are additive, never
// overridden; a cycle among template references is an error.
func resolveTemplates(tables map[uint32]*Table) error {
	resolved := map[uint32]bool{}
	var visit func(id uint32, stack map[uint32]bool) error
	visit = func(id uint32, stack map[uint32]bool) error {
		if resolved[id] {
			return nil
		}
		t, ok := tables[id]
		if !ok || t.TemplateTableID == 0 {
			resolved[id] = true
			return nil
		}
		if stack[id] {
			return ErrTemplateCycle
		}
		stack[id] = true
		if err := visit(t.TemplateTableID, stack); err != nil {
			return err
		}
		tmpl, ok := tables[t.TemplateTableID]
		if ok {
			t.Fixed = append(append([]Column{}, tmpl.Fixed...), t.Fixed...)
			t.Variable = append(append([]Column{}, tmpl.Variable...), t.Variable...)
			t.Tagged = append(append([]Column{}, tmpl.Tagged...), t.Tagged...)
		}
		resolved[id] = true
		return nil
	}
	for id := range tables {
		if err := visit(id, map[uint32]bool{}); err != nil {
			return err
		}
	}
	return nil
}

func scanRows(pg *pager.Pager) ([]rawRow, error) {
	c := tree.New(pg)
	if err := c.SeekFirst(eseformat.CatalogRootPage); err != nil {
		return nil, err
	}
	schema := bootstrapSchema()
	newRecordFormat := eseformat.UsesNewRecordFormat(pg.Header().FormatRevision)

	var rows []rawRow
	for c.Valid() {
		kv, err := c.KeyValue()
		if err != nil {
			return nil, err
		}
		rec, err := record.Decode(kv.Value, schema, newRecordFormat, nil)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rowFrom(rec))
		if err := c.Next(); err != nil {
			return nil, err
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func rowFrom(rec record.Record) rawRow {
	get := func(id uint32) []byte {
		v, ok := rec.Value(id)
		if !ok || v.Null {
			return nil
		}
		return v.Raw
	}
	u32 := func(b []byte) uint32 {
		if len(b) < 4 {
			return 0
		}
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	u16 := func(b []byte) uint16 {
		if len(b) < 2 {
			return 0
		}
		return uint16(b[0]) | uint16(b[1])<<8
	}
	return rawRow{
		objidTable:  u32(get(colObjidTable)),
		typ:         u16(get(colType)),
		id:          u32(get(colID)),
		coltypOrFDP: u32(get(colColtypOrPgnoFDP)),
		spaceUsage:  u32(get(colSpaceUsage)),
		flags:       u32(get(colFlags)),
		codepage:    u32(get(colCodepage)),
		lvRoot:      u32(get(colLongValueRoot)),
		templateID:  u32(get(colTemplateTableID)),
		name:        decodeUTF16Name(get(colName)),
	}
}
