// Package tree implements the B⁺-tree cursor: ordered traversal of a
// page-tree given its root page number. A cursor is a stack of
// (page_number, tag_index) frames; cursors are independent of one another.
package tree

import (
	"bytes"

	"github.com/esekit/esekit/internal/eseformat"
	"github.com/esekit/esekit/internal/pager"
)

// frame is one level of the descent: the page currently positioned on,
// its assembled key prefix (tag 0's key), and the tag index within it.
type frame struct {
	page     pager.Page
	prefix   []byte
	tagIndex int
	tags     []eseformat.Tag
}

// Cursor walks a single page-tree in key order.
type Cursor struct {
	pg   *pager.Pager
	newRecordFormat bool

	stack []frame
	seen  *visited // sibling pages already visited at the current level
	done  bool
	err   error
}

// New returns a cursor over pg's page-tree, not yet positioned.
func New(pg *pager.Pager) *Cursor {
	return &Cursor{
		pg:              pg,
		newRecordFormat: eseformat.UsesNewRecordFormat(pg.Header().FormatRevision),
		seen:            newVisited(),
	}
}

// Err returns the error that made the cursor terminal, if any.
func (c *Cursor) Err() error { return c.err }

func (c *Cursor) fail(err error) error {
	c.err = err
	c.done = true
	return err
}

func (c *Cursor) loadPage(n uint32, parentPrefix []byte) (frame, error) {
	pg, err := c.pg.ReadPage(n)
	if err != nil {
		return frame{}, err
	}
	count := int(pg.Header.FirstAvailTag)
	tags, err := eseformat.ParseTagTable(pg.Raw, count, c.newRecordFormat)
	if err != nil {
		return frame{}, err
	}

	prefix := parentPrefix
	if len(tags) > 0 {
		t0, ok := tags[0].Bytes(pg.Body)
		if !ok {
			return frame{}, eseformat.ErrTagOutOfBounds
		}
		prefix = t0
	}

	return frame{page: pg, prefix: prefix, tagIndex: 1, tags: tags}, nil
}

// SeekFirst descends the leftmost path from root to a leaf page and
// positions the cursor at its first data tag (tag 1; tag 0 is the key
// prefix).
func (c *Cursor) SeekFirst(root uint32) error {
	c.stack = c.stack[:0]
	c.seen = newVisited()
	c.done = false
	c.err = nil

	n := root
	var prefix []byte
	for {
		fr, err := c.loadPage(n, prefix)
		if err != nil {
			return c.fail(err)
		}
		c.stack = append(c.stack, fr)
		if fr.page.Header.IsLeaf() {
			if len(fr.tags) <= 1 {
				c.done = true
			}
			return nil
		}
		if len(fr.tags) <= 1 {
			return c.fail(ErrPageTypeMismatch)
		}
		kv, err := eseformat.AssembleKey(mustBytes(fr.tags[1], fr.page.Body), c.newRecordFormat, fr.prefix)
		if err != nil {
			return c.fail(err)
		}
		child, err := eseformat.ChildPageNumber(kv.Value)
		if err != nil {
			return c.fail(err)
		}
		prefix = kv.Key
		n = child
	}
}

func mustBytes(t eseformat.Tag, body []byte) []byte {
	b, _ := t.Bytes(body)
	return b
}

// SeekKey descends to the leaf holding the first key that equals or
// exceeds key, and positions the cursor there. Each level is searched by
// a linear scan over the page's tags (which also checks their order), not
// by binary search.
func (c *Cursor) SeekKey(root uint32, key []byte) error {
	c.stack = c.stack[:0]
	c.seen = newVisited()
	c.done = false
	c.err = nil

	n := root
	var prefix []byte
	for {
		fr, err := c.loadPage(n, prefix)
		if err != nil {
			return c.fail(err)
		}
		c.stack = append(c.stack, fr)

		if fr.page.Header.IsLeaf() {
			idx, err := c.leafSearch(&c.stack[len(c.stack)-1], key)
			if err != nil {
				return c.fail(err)
			}
			c.stack[len(c.stack)-1].tagIndex = idx
			if idx >= len(fr.tags) {
				// Every key on this leaf is below key, so the first key
				// that is not starts the next sibling leaf.
				if next := fr.page.Header.NextPageNumber; next != 0 {
					sib, err := c.loadPage(next, nil)
					if err != nil {
						return c.fail(err)
					}
					c.seen.set(fr.page.Number)
					c.stack[len(c.stack)-1] = sib
					if len(sib.tags) > 1 {
						return nil
					}
				}
				c.done = true
			}
			return nil
		}

		idx, err := c.branchSearch(&fr, key)
		if err != nil {
			return c.fail(err)
		}
		kv, err := eseformat.AssembleKey(mustBytes(fr.tags[idx], fr.page.Body), c.newRecordFormat, fr.prefix)
		if err != nil {
			return c.fail(err)
		}
		child, err := eseformat.ChildPageNumber(kv.Value)
		if err != nil {
			return c.fail(err)
		}
		prefix = kv.Key
		n = child
	}
}

// branchSearch returns the tag index of the lexicographically largest key
// that is <= key, among tags[1:].
func (c *Cursor) branchSearch(fr *frame, key []byte) (int, error) {
	best := 1
	if len(fr.tags) <= 1 {
		return 0, ErrPageTypeMismatch
	}
	var prevKey []byte
	for i := 1; i < len(fr.tags); i++ {
		kv, err := eseformat.AssembleKey(mustBytes(fr.tags[i], fr.page.Body), c.newRecordFormat, fr.prefix)
		if err != nil {
			return 0, err
		}
		if prevKey != nil && bytes.Compare(kv.Key, prevKey) < 0 {
			return 0, ErrKeyOrderViolation
		}
		prevKey = kv.Key
		if bytes.Compare(kv.Key, key) <= 0 {
			best = i
		} else {
			break
		}
	}
	return best, nil
}

// leafSearch returns the tag index (among tags[1:]) whose key equals or
// first exceeds key, or len(tags) if none does.
func (c *Cursor) leafSearch(fr *frame, key []byte) (int, error) {
	var prevKey []byte
	for i := 1; i < len(fr.tags); i++ {
		kv, err := eseformat.AssembleKey(mustBytes(fr.tags[i], fr.page.Body), c.newRecordFormat, fr.prefix)
		if err != nil {
			return 0, err
		}
		if prevKey != nil && bytes.Compare(kv.Key, prevKey) < 0 {
			return 0, ErrKeyOrderViolation
		}
		prevKey = kv.Key
		if bytes.Compare(kv.Key, key) >= 0 {
			return i, nil
		}
	}
	return len(fr.tags), nil
}

// Valid reports whether the cursor is positioned on a data tag.
func (c *Cursor) Valid() bool {
	if c.done || len(c.stack) == 0 {
		return false
	}
	top := &c.stack[len(c.stack)-1]
	return top.tagIndex < len(top.tags)
}

// KeyValue returns the (key, value) pair at the cursor's current position.
// For a branch page this is never called directly by table scans; data
// page-trees and catalog scans always terminate on leaves.
func (c *Cursor) KeyValue() (eseformat.CellKeyValue, error) {
	top := &c.stack[len(c.stack)-1]
	if top.tagIndex >= len(top.tags) {
		return eseformat.CellKeyValue{}, ErrPageTypeMismatch
	}
	return eseformat.AssembleKey(mustBytes(top.tags[top.tagIndex], top.page.Body), c.newRecordFormat, top.prefix)
}

// Page returns the page the cursor is currently positioned on.
func (c *Cursor) Page() pager.Page {
	return c.stack[len(c.stack)-1].page
}

// Next advances to the next tag within the current leaf; if exhausted, it
// follows the next_page sibling link, detecting cycles, and if no sibling
// exists, ascends to re-descend the leftmost path under the next branch
// tag.
func (c *Cursor) Next() error {
	if c.done {
		return nil
	}
	top := &c.stack[len(c.stack)-1]
	top.tagIndex++
	if top.tagIndex < len(top.tags) {
		return nil
	}

	next := top.page.Header.NextPageNumber
	if next != 0 {
		if c.seen.isSet(next) {
			return c.fail(ErrTreeCycle)
		}
		c.seen.set(top.page.Number)
		fr, err := c.loadPage(next, nil)
		if err != nil {
			return c.fail(err)
		}
		fr.tagIndex = 1
		c.stack[len(c.stack)-1] = fr
		if len(fr.tags) <= 1 {
			c.done = true
		}
		return nil
	}

	// No sibling: ascend.
	c.stack = c.stack[:len(c.stack)-1]
	for len(c.stack) > 0 {
		parent := &c.stack[len(c.stack)-1]
		parent.tagIndex++
		if parent.tagIndex >= len(parent.tags) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		kv, err := eseformat.AssembleKey(mustBytes(parent.tags[parent.tagIndex], parent.page.Body), c.newRecordFormat, parent.prefix)
		if err != nil {
			return c.fail(err)
		}
		child, err := eseformat.ChildPageNumber(kv.Value)
		if err != nil {
			return c.fail(err)
		}
		return c.descendLeftmost(child, kv.Key)
	}
	c.done = true
	return nil
}

func (c *Cursor) descendLeftmost(n uint32, prefix []byte) error {
	for {
		fr, err := c.loadPage(n, prefix)
		if err != nil {
			return c.fail(err)
		}
		c.stack = append(c.stack, fr)
		if fr.page.Header.IsLeaf() {
			if len(fr.tags) <= 1 {
				c.done = true
			}
			return nil
		}
		if len(fr.tags) <= 1 {
			return c.fail(ErrPageTypeMismatch)
		}
		kv, err := eseformat.AssembleKey(mustBytes(fr.tags[1], fr.page.Body), c.newRecordFormat, fr.prefix)
		if err != nil {
			return c.fail(err)
		}
		child, err := eseformat.ChildPageNumber(kv.Value)
		if err != nil {
			return c.fail(err)
		}
		prefix = kv.Key
		n = child
	}
}
