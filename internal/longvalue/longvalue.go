// Package longvalue reassembles values too large to fit in a single leaf
// cell from a table's long-value page-tree: segments keyed by
// (long_value_id, segment_offset) are concatenated in offset order.
package longvalue

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/esekit/esekit/internal/pager"
	"github.com/esekit/esekit/internal/tree"
)

var (
	// ErrMissing indicates a long value id did not resolve in the table's
	// long-value tree at all.
	ErrMissing = errors.New("longvalue: missing")
	// ErrLengthMismatch indicates the concatenation of segments did not
	// equal the metadata cell's declared size.
	ErrLengthMismatch = errors.New("longvalue: length mismatch")
)

func idKey(id uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, id)
	return k
}

func segmentKey(id, offset uint32) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint32(k[0:4], id)
	binary.BigEndian.PutUint32(k[4:8], offset)
	return k
}

// Reassemble reads the metadata cell for id, then every data segment in
// ascending offset order, and returns the concatenated value. The result's
// length must equal the metadata cell's declared size; when it does not,
// the bytes read are returned together with ErrLengthMismatch.
func Reassemble(pg *pager.Pager, root uint32, id uint32) ([]byte, error) {
	c := tree.New(pg)
	if err := c.SeekKey(root, idKey(id)); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, ErrMissing
	}
	kv, err := c.KeyValue()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(kv.Key, idKey(id)) {
		return nil, ErrMissing
	}
	declaredSize := len(kv.Value)
	if declaredSize == 4 {
		declaredSize = int(binary.LittleEndian.Uint32(kv.Value))
	}

	out := make([]byte, 0, declaredSize)
	for {
		if err := c.Next(); err != nil {
			return nil, err
		}
		if !c.Valid() {
			break
		}
		kv, err := c.KeyValue()
		if err != nil {
			return nil, err
		}
		if len(kv.Key) < 4 || !bytes.Equal(kv.Key[:4], idKey(id)) {
			break
		}
		out = append(out, kv.Value...)
	}

	if len(out) != declaredSize {
		return out, ErrLengthMismatch
	}
	return out, nil
}

// Reader streams a long value's segments on demand without reassembling
// the whole value in memory, for TEXT/BINARY columns over a size
// threshold (§6).
type Reader struct {
	pg   *pager.Pager
	root uint32
	id   uint32

	cursor   *tree.Cursor
	buf      []byte
	declared int
	read     int
	started  bool
}

// NewReader returns a streaming reader over the long value identified by
// id in the table's long-value page-tree rooted at root.
func NewReader(pg *pager.Pager, root uint32, id uint32) (*Reader, error) {
	c := tree.New(pg)
	if err := c.SeekKey(root, idKey(id)); err != nil {
		return nil, err
	}
	if !c.Valid() {
		return nil, ErrMissing
	}
	kv, err := c.KeyValue()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(kv.Key, idKey(id)) {
		return nil, ErrMissing
	}
	declared := len(kv.Value)
	if declared == 4 {
		declared = int(binary.LittleEndian.Uint32(kv.Value))
	}
	return &Reader{pg: pg, root: root, id: id, cursor: c, declared: declared}, nil
}

// Read implements io.Reader, pulling additional segments from the
// long-value page-tree as needed.
func (r *Reader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if err := r.cursor.Next(); err != nil {
			return 0, err
		}
		if !r.cursor.Valid() {
			if r.read != r.declared {
				return 0, ErrLengthMismatch
			}
			return 0, io.EOF
		}
		kv, err := r.cursor.KeyValue()
		if err != nil {
			return 0, err
		}
		if len(kv.Key) < 4 || !bytes.Equal(kv.Key[:4], idKey(r.id)) {
			if r.read != r.declared {
				return 0, ErrLengthMismatch
			}
			return 0, io.EOF
		}
		r.buf = kv.Value
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	r.read += n
	return n, nil
}

var _ io.Reader = (*Reader)(nil)
