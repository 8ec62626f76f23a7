// Package ese is the public API: open an ESE database file and enumerate
// its tables, columns, records, and long values.
package ese

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"

	"github.com/esekit/esekit/internal/cache"
	"github.com/esekit/esekit/internal/catalog"
	"github.com/esekit/esekit/internal/diag"
	"github.com/esekit/esekit/internal/eseformat"
	"github.com/esekit/esekit/internal/ioadapter"
	"github.com/esekit/esekit/internal/longvalue"
	"github.com/esekit/esekit/internal/pager"
	"github.com/esekit/esekit/internal/record"
	"github.com/esekit/esekit/internal/tree"
)

// OpenOptions configures a Handle at open time.
type OpenOptions struct {
	// MaxPageSize caps the page size this library will accept as a sanity
	// limit, independent of the format's own supported set. Zero disables
	// the extra cap.
	MaxPageSize uint32
	// Tolerant relaxes long-value reassembly: a length mismatch yields the
	// partial bytes read instead of LongValueLengthMismatch.
	Tolerant bool
	// CollectDiagnostics enables the per-handle diagnostics sink.
	CollectDiagnostics bool
	// UseMmap backs the handle with a memory-mapped file instead of
	// ordinary reads.
	UseMmap bool
}

// ReadOptions holds options for a single long-value read. No function of
// this package takes a ReadOptions: LongValueReader has no options
// parameter, so ForceCopy has no effect.
type ReadOptions struct {
	// ForceCopy requests a private copy of returned bytes instead of a
	// view over the cache's buffer.
	ForceCopy bool
}

// Handle is an open ESE database. A Handle owns its pager, its catalog,
// and every cursor rooted in it; concurrent mutation through one handle is
// undefined, but independent Handles on the same file are safe in
// parallel (§5).
type Handle struct {
	src     ioadapter.Source
	pg      *pager.Pager
	tables  map[uint32]*catalog.Table
	byName  map[string]*catalog.Table
	opts    OpenOptions
	sink    *diag.Sink
	records *cache.Cache
	closed  bool
}

// Open opens path and resolves its catalog.
func Open(path string, opts OpenOptions) (*Handle, error) {
	var src ioadapter.Source
	var err error
	if opts.UseMmap {
		src, err = ioadapter.OpenMmap(path)
	} else {
		src, err = ioadapter.OpenFile(path)
	}
	if err != nil {
		return nil, newErr(ErrKindIO, "open backing store", errors.Wrap(err, "ese"))
	}

	pg, err := pager.Open(src)
	if err != nil {
		src.Close()
		return nil, wrapPagerErr(err)
	}

	if opts.MaxPageSize != 0 && pg.Header().PageSize > opts.MaxPageSize {
		src.Close()
		return nil, newErr(ErrKindUnsupportedFormat, "page size exceeds configured maximum", nil)
	}

	var sink *diag.Sink
	if opts.CollectDiagnostics {
		sink = diag.NewSink(nil)
	}

	tables, err := catalog.Resolve(pg)
	if err != nil {
		src.Close()
		return nil, wrapCatalogErr(err)
	}

	h := &Handle{src: src, pg: pg, tables: tables, byName: map[string]*catalog.Table{}, opts: opts, sink: sink, records: cache.New(4096)}
	for _, t := range tables {
		h.byName[t.Name] = t
	}
	return h, nil
}

// Close releases the handle's backing store. Further calls return
// ErrKindClosed.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.pg.Close()
}

func (h *Handle) checkOpen() error {
	if h.closed {
		return newErr(ErrKindClosed, "handle closed", nil)
	}
	return nil
}

// Tables returns every table in catalog order, which for TABLE rows is
// ascending table id.
func (h *Handle) Tables() ([]*Table, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]*Table, 0, len(h.tables))
	for _, t := range h.tables {
		out = append(out, &Table{h: h, t: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].t.ID < out[j].t.ID })
	return out, nil
}

// TableByName returns the named table, or ErrKindNotFound.
func (h *Handle) TableByName(name string) (*Table, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	t, ok := h.byName[name]
	if !ok {
		return nil, newErr(ErrKindNotFound, "table not found: "+name, nil)
	}
	return &Table{h: h, t: t}, nil
}

// Diagnose reads every page independent of normal traversal and returns
// one entry for each page that fails to read or validate. Catalog entries
// are not checked, and the handle's own diagnostics sink is not used.
func (h *Handle) Diagnose() []diag.Entry {
	sink := diag.NewSink(nil)
	for n := uint32(1); ; n++ {
		if int64(n) > h.pg.PageCount() {
			break
		}
		if _, err := h.pg.ReadPage(n); err != nil {
			sink.Record(n, 0, "page", err)
		}
	}
	return sink.Entries()
}

// Table is a resolved table's schema plus the handle needed to decode its
// records.
type Table struct {
	h *Handle
	t *catalog.Table
}

// Name, ID, TemplateTableID expose the table's catalog-level identity.
func (t *Table) Name() string            { return t.t.Name }
func (t *Table) ID() uint32              { return t.t.ID }
func (t *Table) TemplateTableID() uint32 { return t.t.TemplateTableID }

// Columns returns every column of the table (fixed, variable, then
// tagged), in catalog-resolved order.
func (t *Table) Columns() []Column {
	var out []Column
	for _, c := range t.t.Fixed {
		out = append(out, Column{Name: c.Name, ID: c.ID, Type: c.Type, Codepage: c.Codepage, Flags: c.Flags})
	}
	for _, c := range t.t.Variable {
		out = append(out, Column{Name: c.Name, ID: c.ID, Type: c.Type, Codepage: c.Codepage, Flags: c.Flags})
	}
	for _, c := range t.t.Tagged {
		out = append(out, Column{Name: c.Name, ID: c.ID, Type: c.Type, Codepage: c.Codepage, Flags: c.Flags})
	}
	return out
}

// ColumnCount returns the total number of columns across all three
// regions.
func (t *Table) ColumnCount() int {
	return len(t.t.Fixed) + len(t.t.Variable) + len(t.t.Tagged)
}

// Indexes returns the table's (name, root) index pairs.
func (t *Table) Indexes() []catalog.Index { return t.t.Indexes }

// Column is a table column's public identity.
type Column struct {
	Name     string
	ID       uint32
	Type     eseformat.ColumnType
	Codepage uint32
	Flags    uint32
}

// Record is a decoded row, still backed by its page's live buffer; it
// must not outlive the handle it came from unless its values are copied.
type Record struct {
	h      *Handle
	table  *Table
	Key    []byte
	inner  record.Record
}

// Value carries a column's type tag and raw byte payload.
type Value struct {
	Column Column
	Raw    []byte
	Null   bool
}

// Records returns an iterator-style callback over every record in the
// table's data page-tree, in key order. Returning a non-nil error from fn
// stops iteration and the error propagates.
func (t *Table) Records(fn func(Record) error) error {
	if err := t.h.checkOpen(); err != nil {
		return err
	}
	c := tree.New(t.h.pg)
	if err := c.SeekFirst(t.t.DataRoot); err != nil {
		return wrapTreeErr(err, t.t.ID)
	}
	schema := t.t.RecordSchema()
	newRecordFormat := eseformat.UsesNewRecordFormat(t.h.pg.Header().FormatRevision)
	resolver := func(id uint32) ([]byte, error) {
		v, err := longvalue.Reassemble(t.h.pg, t.t.LongValueRoot, id)
		if err != nil {
			if t.h.opts.Tolerant {
				return v, nil
			}
			return nil, err
		}
		return v, nil
	}

	for c.Valid() {
		kv, err := c.KeyValue()
		if err != nil {
			return wrapTreeErr(err, t.t.ID)
		}
		cached, err := t.h.records.GetOrLoad(cache.Key{TableID: t.t.ID, Record: string(kv.Key)}, func() (interface{}, error) {
			return record.Decode(kv.Value, schema, newRecordFormat, resolver)
		})
		if err != nil {
			return wrapRecordErr(err, t.t.ID)
		}
		if err := fn(Record{h: t.h, table: t, Key: kv.Key, inner: cached.(record.Record)}); err != nil {
			return err
		}
		if err := c.Next(); err != nil {
			return wrapTreeErr(err, t.t.ID)
		}
	}
	return wrapTreeErr(c.Err(), t.t.ID)
}

// RecordsByIndex returns an iterator-style callback over every record
// reachable through the named index's page-tree, in index-key order (§6).
// An INDEX LEAF entry's assembled value is the primary-tree key of the
// record it references (§4.2); each one is resolved back into a full
// decoded record via the table's data page-tree.
func (t *Table) RecordsByIndex(indexName string, fn func(Record) error) error {
	if err := t.h.checkOpen(); err != nil {
		return err
	}
	var root uint32
	found := false
	for _, idx := range t.t.Indexes {
		if idx.Name == indexName {
			root = idx.Root
			found = true
			break
		}
	}
	if !found {
		return newErr(ErrKindNotFound, "index not found: "+indexName, nil)
	}

	ic := tree.New(t.h.pg)
	if err := ic.SeekFirst(root); err != nil {
		return wrapTreeErr(err, t.t.ID)
	}

	dc := tree.New(t.h.pg)
	schema := t.t.RecordSchema()
	newRecordFormat := eseformat.UsesNewRecordFormat(t.h.pg.Header().FormatRevision)
	resolver := func(id uint32) ([]byte, error) {
		v, err := longvalue.Reassemble(t.h.pg, t.t.LongValueRoot, id)
		if err != nil {
			if t.h.opts.Tolerant {
				return v, nil
			}
			return nil, err
		}
		return v, nil
	}

	for ic.Valid() {
		if !ic.Page().Header.IsIndex() {
			return wrapTreeErr(tree.ErrPageTypeMismatch, t.t.ID)
		}
		ikv, err := ic.KeyValue()
		if err != nil {
			return wrapTreeErr(err, t.t.ID)
		}

		if err := dc.SeekKey(t.t.DataRoot, ikv.Value); err != nil {
			return wrapTreeErr(err, t.t.ID)
		}
		if dc.Valid() {
			dkv, err := dc.KeyValue()
			if err != nil {
				return wrapTreeErr(err, t.t.ID)
			}
			if bytes.Equal(dkv.Key, ikv.Value) {
				cached, err := t.h.records.GetOrLoad(cache.Key{TableID: t.t.ID, Record: string(dkv.Key)}, func() (interface{}, error) {
					return record.Decode(dkv.Value, schema, newRecordFormat, resolver)
				})
				if err != nil {
					return wrapRecordErr(err, t.t.ID)
				}
				if err := fn(Record{h: t.h, table: t, Key: dkv.Key, inner: cached.(record.Record)}); err != nil {
					return err
				}
			}
		}

		if err := ic.Next(); err != nil {
			return wrapTreeErr(err, t.t.ID)
		}
	}
	return wrapTreeErr(ic.Err(), t.t.ID)
}

// RecordCount counts every record in the table's data page-tree.
func (t *Table) RecordCount() (int, error) {
	n := 0
	err := t.Records(func(Record) error { n++; return nil })
	return n, err
}

// Value returns the decoded value for the column with the given id.
func (r Record) Value(columnID uint32) (Value, bool) {
	v, ok := r.inner.Value(columnID)
	if !ok {
		return Value{}, false
	}
	col, _ := r.table.t.RecordSchema().ColumnByID(columnID)
	return Value{Column: Column{Name: col.Name, ID: col.ID, Type: col.Type, Codepage: col.Codepage, Flags: col.Flags}, Raw: v.Raw, Null: v.Null}, true
}

// LongValueReader opens a block-oriented reader over a TEXT/BINARY
// column's long value without reassembling it entirely in memory (§6).
func (t *Table) LongValueReader(longValueID uint32) (*longvalue.Reader, error) {
	r, err := longvalue.NewReader(t.h.pg, t.t.LongValueRoot, longValueID)
	if err != nil {
		return nil, wrapLongValueErr(err, t.t.ID)
	}
	return r, nil
}
