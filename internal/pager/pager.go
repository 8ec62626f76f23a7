// Package pager maps logical page numbers to validated page buffers. It
// owns the backing store, verifies per-page checksums and self-reference,
// and enforces the primary/shadow header policy.
package pager

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/esekit/esekit/internal/eseformat"
	"github.com/esekit/esekit/internal/ioadapter"
)

// state is the pager's lifecycle, mirroring the OPEN -> READY -> FAILED
// state machine: READY is terminal for this read-only library, and any
// I/O error moves the pager to FAILED, after which every call returns
// ErrClosed.
type state uint8

const (
	stateOpen state = iota
	stateReady
	stateFailed
)

// Pager translates page numbers into validated page buffers, backed by a
// single ioadapter.Source. One Pager is owned by exactly one Handle.
type Pager struct {
	src    ioadapter.Source
	header eseformat.Header

	mu    sync.Mutex
	state state

	group singleflight.Group

	cacheMu sync.Mutex
	cache   map[uint32]*cacheEntry
	lru     []uint32 // recency order, most-recent last
	maxPins int
}

// cacheEntry is one memoized page, reference-counted so that pinned pages
// survive eviction (§5 "Pinning").
type cacheEntry struct {
	page   Page
	pinned int
}

// Page is a validated page buffer together with its parsed header.
type Page struct {
	Number uint32
	Header eseformat.PageHeader
	Body   []byte // page bytes excluding the fixed header
	Raw    []byte // full page bytes, including the fixed header

	// ECCCorrected and ECCBitPosition report a single-bit ECC correction
	// detected on this page (§4.1); the bit is never applied to Raw/Body,
	// only reported. Both are zero-valued when uses_ecc_checksum is false
	// or no correction was detected.
	ECCCorrected  bool
	ECCBitPosition uint32
}

// Open reads the primary and shadow headers, validates whichever passes,
// and returns a ready Pager. See spec §4.1 "Open" for the exact algorithm.
func Open(src ioadapter.Source) (*Pager, error) {
	probe := make([]byte, eseformat.HeaderProbeSize)
	b, err := src.ReadAt(0, eseformat.HeaderProbeSize)
	if err != nil {
		return nil, fmt.Errorf("pager: read primary header: %w", ErrIO)
	}
	copy(probe, b)

	primary, primaryErr := eseformat.ParseHeader(probe)
	primaryOK := primaryErr == nil && eseformat.ChecksumOK(probe)

	header := primary
	if !primaryOK {
		// A failed checksum does not stop the primary's signature and
		// page-size field from parsing; when they parse, the page size
		// locates the shadow copy, otherwise it is read at HeaderProbeSize.
		shadowOffset := int64(eseformat.HeaderProbeSize)
		if primaryErr == nil && primary.PageSize > 0 {
			shadowOffset = int64(primary.PageSize)
		}
		sb, serr := src.ReadAt(shadowOffset, eseformat.HeaderProbeSize)
		if serr != nil {
			return nil, ErrCorruptHeader
		}
		shadow, shadowErr := eseformat.ParseHeader(sb)
		if shadowErr != nil || !eseformat.ChecksumOK(sb) {
			return nil, ErrCorruptHeader
		}
		header = shadow
	}

	if !eseformat.SupportedPageSize(header.PageSize) {
		return nil, ErrUnsupportedFormat
	}
	if header.FormatVersion != eseformat.FormatVersion0x620 {
		return nil, ErrUnsupportedFormat
	}

	p := &Pager{
		src:    src,
		header: header,
		state:  stateReady,
		cache:  make(map[uint32]*cacheEntry),
	}
	return p, nil
}

// Header returns the validated file header (primary, or shadow if the
// primary failed checksum validation).
func (p *Pager) Header() eseformat.Header { return p.header }

// PageCount returns the informational total page count derivable from the
// backing store's size.
func (p *Pager) PageCount() int64 {
	size := p.src.Size()
	body := size - 2*int64(p.header.PageSize)
	if body <= 0 {
		return 0
	}
	return body / int64(p.header.PageSize)
}

// ReadPage returns the validated page buffer for logical page number n
// (1-based). Concurrent calls for the same n collapse into a single
// physical read and validation (§5 "At-most-one decode"), via
// singleflight.
func (p *Pager) ReadPage(n uint32) (Page, error) {
	p.mu.Lock()
	st := p.state
	p.mu.Unlock()
	if st == stateFailed {
		return Page{}, ErrClosed
	}
	if n == 0 {
		return Page{}, fmt.Errorf("pager: page 0 is not addressable: %w", ErrIO)
	}

	if pg, ok := p.lookupCache(n); ok {
		return pg, nil
	}

	v, err, _ := p.group.Do(fmt.Sprintf("%d", n), func() (interface{}, error) {
		if pg, ok := p.lookupCache(n); ok {
			return pg, nil
		}
		pg, err := p.readPageUncached(n)
		if err != nil {
			return Page{}, err
		}
		p.storeCache(n, pg)
		return pg, nil
	})
	if err != nil {
		if errors.Is(err, ErrIO) {
			p.fail()
		}
		return Page{}, err
	}
	return v.(Page), nil
}

func (p *Pager) readPageUncached(n uint32) (Page, error) {
	offset := int64(2)*int64(p.header.PageSize) + int64(n-1)*int64(p.header.PageSize)
	if n < 1 || offset+int64(p.header.PageSize) > p.src.Size() {
		return Page{}, ErrIO
	}
	raw, err := p.src.ReadAt(offset, int(p.header.PageSize))
	if err != nil {
		return Page{}, fmt.Errorf("pager: read page %d: %w", n, ErrIO)
	}

	extended := eseformat.UsesExtendedPageHeader(p.header.PageSize, p.header.FormatRevision)
	hdr, err := eseformat.ParsePageHeader(raw, extended)
	if err != nil {
		return Page{}, ErrPageCorrupt
	}

	if hdr.Checksum != eseformat.PageChecksum(raw, hdr.HeaderSize) {
		return Page{}, ErrPageCorrupt
	}
	if hdr.SelfPageNumber != n {
		return Page{}, ErrPageCorrupt
	}

	pg := Page{
		Number: n,
		Header: hdr,
		Body:   raw[hdr.HeaderSize:],
		Raw:    raw,
	}

	if p.header.UsesECCChecksum {
		if len(raw) < eseformat.PageECCRangeStart {
			return Page{}, ErrPageCorrupt
		}
		result := eseformat.CheckECC(raw, eseformat.PageECCRangeStart, eseformat.Signature, eseformat.PageStoredECC(raw))
		switch {
		case result.OK:
		case result.Correctable:
			pg.ECCCorrected = true
			pg.ECCBitPosition = result.BitPosition
		default:
			return Page{}, ErrECCUncorrectable
		}
	}

	return pg, nil
}

// Pin marks the page's cache entry as in-use, preventing eviction. Unpin
// releases it. ReadPage takes no pin itself: a page stored on a cache miss
// starts with a pin count of zero, and only an explicit Pin raises it. The
// tree cursor does not call Pin.
func (p *Pager) Pin(n uint32) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if e, ok := p.cache[n]; ok {
		e.pinned++
	}
}

// Unpin releases one reference taken by Pin.
func (p *Pager) Unpin(n uint32) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if e, ok := p.cache[n]; ok && e.pinned > 0 {
		e.pinned--
	}
}

func (p *Pager) lookupCache(n uint32) (Page, bool) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	e, ok := p.cache[n]
	if !ok {
		return Page{}, false
	}
	p.touch(n)
	return e.page, true
}

func (p *Pager) storeCache(n uint32, pg Page) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache[n] = &cacheEntry{page: pg}
	p.touch(n)
	p.evictIfNeeded()
}

func (p *Pager) touch(n uint32) {
	for i, v := range p.lru {
		if v == n {
			p.lru = append(p.lru[:i], p.lru[i+1:]...)
			break
		}
	}
	p.lru = append(p.lru, n)
}

// maxCachedPages bounds the page cache; LRU-class eviction (§5) reclaims
// the least-recently-used page whose reference count is zero once the
// cache exceeds this size.
const maxCachedPages = 4096

func (p *Pager) evictIfNeeded() {
	for len(p.cache) > maxCachedPages {
		evicted := false
		for i, n := range p.lru {
			e := p.cache[n]
			if e == nil || e.pinned > 0 {
				continue
			}
			delete(p.cache, n)
			p.lru = append(p.lru[:i], p.lru[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			// every cached page is pinned; stop trying rather than spin.
			return
		}
	}
}

func (p *Pager) fail() {
	p.mu.Lock()
	p.state = stateFailed
	p.mu.Unlock()
}

// Close releases the backing store.
func (p *Pager) Close() error {
	p.mu.Lock()
	p.state = stateFailed
	p.mu.Unlock()
	return p.src.Close()
}
