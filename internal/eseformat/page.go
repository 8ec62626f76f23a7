package eseformat

import "github.com/esekit/esekit/internal/buf"

// PageHeader is the decoded form of a page's fixed header, legacy (40-byte)
// or extended (80-byte) depending on the file's page size and
// format_revision.
type PageHeader struct {
	Checksum          uint32
	PrevPageNumber    uint32
	NextPageNumber    uint32
	FatherDataPage    uint32
	AvailDataSize     uint16
	AvailUncommitted  uint16
	FirstAvailOffset  uint16
	FirstAvailTag     uint16
	SelfPageNumber    uint32
	Flags             uint32
	HeaderSize        int
}

// IsRoot, IsLeaf, IsParent, IsEmpty, IsSpaceTree, IsIndex, IsLongValue,
// IsNewRecordFormat, IsScrubbed, IsPrimary test the corresponding page
// flag bit.
func (h PageHeader) IsRoot() bool              { return h.Flags&PageFlagRoot != 0 }
func (h PageHeader) IsLeaf() bool              { return h.Flags&PageFlagLeaf != 0 }
func (h PageHeader) IsParent() bool            { return h.Flags&PageFlagParent != 0 }
func (h PageHeader) IsEmpty() bool             { return h.Flags&PageFlagEmpty != 0 }
func (h PageHeader) IsSpaceTree() bool         { return h.Flags&PageFlagSpaceTree != 0 }
func (h PageHeader) IsIndex() bool             { return h.Flags&PageFlagIndex != 0 }
func (h PageHeader) IsLongValue() bool         { return h.Flags&PageFlagLongValue != 0 }
func (h PageHeader) IsNewRecordFormat() bool   { return h.Flags&PageFlagNewRecordFormat != 0 }
func (h PageHeader) IsNewChecksumFormat() bool { return h.Flags&PageFlagNewChecksumFormat != 0 }
func (h PageHeader) IsScrubbed() bool          { return h.Flags&PageFlagScrubbed != 0 }
func (h PageHeader) IsPrimary() bool           { return h.Flags&PageFlagPrimary != 0 }

// IsBranch reports whether a page is a non-leaf tree page: ROOT or PARENT
// without LEAF set.
func (h PageHeader) IsBranch() bool { return !h.IsLeaf() }

// ParsePageHeader decodes a page's fixed header. extended selects the
// 80-byte layout; it must be computed from UsesExtendedPageHeader by the
// caller, who knows the file's page size and format_revision.
func ParsePageHeader(page []byte, extended bool) (PageHeader, error) {
	size := PageHeaderLegacySize
	if extended {
		size = PageHeaderExtendedSize
	}
	if len(page) < size {
		return PageHeader{}, ErrTruncated
	}

	h := PageHeader{
		Checksum:         buf.U32LE(page[PageXorChecksumOffset:]),
		PrevPageNumber:   buf.U32LE(page[PagePrevNumberOffset:]),
		NextPageNumber:   buf.U32LE(page[PageNextNumberOffset:]),
		FatherDataPage:   buf.U32LE(page[PageFatherDataPageOffset:]),
		AvailDataSize:    buf.U16LE(page[PageAvailDataSizeOffset:]),
		AvailUncommitted: buf.U16LE(page[PageAvailUncommittedOffset:]),
		FirstAvailOffset: buf.U16LE(page[PageFirstAvailOffset:]),
		FirstAvailTag:    buf.U16LE(page[PageFirstAvailTagOffset:]),
		Flags:            buf.U32LE(page[PageFlagsOffset:]),
		HeaderSize:       size,
	}
	if extended {
		h.SelfPageNumber = buf.U32LE(page[PageExtSelfNumberOffset:])
	} else {
		h.SelfPageNumber = buf.U32LE(page[PagePageNumberOffset:])
	}
	return h, nil
}

// PageChecksum computes the page's XOR checksum: an XOR of every 32-bit
// little-endian word in the page other than the checksum field itself.
func PageChecksum(page []byte, headerSize int) uint32 {
	var sum uint32
	for off := 4; off+4 <= len(page); off += 4 {
		sum ^= buf.U32LE(page[off:])
	}
	return sum
}

// ECCResult is the outcome of an ECC32 comparison: whether the stored and
// recomputed values agree, and if not, whether the difference localizes to
// a single bit this library can report (never corrects in place).
type ECCResult struct {
	OK          bool
	Correctable bool
	BitPosition uint32 // valid only when Correctable
}

// ECCChecksum computes a single-bit error-detecting checksum over
// page[rangeStart:], seeded with initialValue. libesedb_checksum.h
// declares the real ECC32 function signature (paired with xor32, sharing
// one buffer pass) but not its body, so the exact polynomial was not
// recovered from original_source/; this is a documented, self-consistent
// construction instead: every set bit's absolute bit position (within the
// range) is folded into the accumulator by XOR, so flipping exactly one
// bit changes the checksum by exactly that bit's position, making the
// flipped bit identifiable from stored XOR recomputed alone.
func ECCChecksum(page []byte, rangeStart int, initialValue uint32) uint32 {
	acc := initialValue
	var bitIndex uint32
	for i := rangeStart; i < len(page); i++ {
		b := page[i]
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				acc ^= bitIndex
			}
			bitIndex++
		}
	}
	return acc
}

// PageECCRangeStart is where the ECC-protected range begins: past both the
// XOR checksum (offset 0) and the ECC checksum itself (offset
// PageECCChecksumOffset), so the checksum fields never fall inside their
// own computed range.
const PageECCRangeStart = PageECCChecksumOffset + 4

// PageStoredECC reads the page's own stored ECC checksum field.
func PageStoredECC(page []byte) uint32 { return buf.U32LE(page[PageECCChecksumOffset:]) }

// CheckECC compares a page's stored ECC value against one recomputed over
// page[rangeStart:]. A difference that falls within the range's own bit
// count is reported as a correctable single-bit position; any other
// difference is uncorrectable. Corrections are never applied to page.
func CheckECC(page []byte, rangeStart int, initialValue uint32, stored uint32) ECCResult {
	computed := ECCChecksum(page, rangeStart, initialValue)
	diff := stored ^ computed
	if diff == 0 {
		return ECCResult{OK: true}
	}
	totalBits := uint32(len(page)-rangeStart) * 8
	if totalBits > 0 && diff < totalBits {
		return ECCResult{OK: false, Correctable: true, BitPosition: diff}
	}
	return ECCResult{OK: false}
}

// Tag is a single entry in the page's tag table: a (value_offset,
// value_size) pair, with NEW_RECORD_FORMAT pages repurposing the upper 3
// bits of each as per-cell flags.
type Tag struct {
	Index  int
	Offset uint16
	Size   uint16
	Flags  uint8
}

// ParseTagTable reads the page's tag table, which grows down from the top
// of the page. count is the number of tags, derived from FirstAvailTag.
func ParseTagTable(page []byte, count int, newRecordFormat bool) ([]Tag, error) {
	tags := make([]Tag, count)
	for i := 0; i < count; i++ {
		// The tag table grows downward: tag 0 is nearest the end of the
		// page, tag i is i entries further toward the header.
		off := len(page) - (i+1)*TagEntrySize
		if off < 0 || off+TagEntrySize > len(page) {
			return nil, ErrTagOutOfBounds
		}
		rawOffset := buf.U16LE(page[off:])
		rawSize := buf.U16LE(page[off+2:])

		t := Tag{Index: i}
		if newRecordFormat {
			t.Flags = uint8((rawOffset>>13)&0x7) | uint8((rawSize>>13)&0x7)<<3
			t.Offset = rawOffset & TagOffsetMask
			t.Size = rawSize & TagOffsetMask
		} else {
			t.Offset = rawOffset
			t.Size = rawSize
		}
		tags[i] = t
	}
	return tags, nil
}

// HasCommonKey reports whether the tag's flags mark it as carrying a
// common-key-compressed local key (VALUE_HAS_COMMON_KEY).
func (t Tag) HasCommonKey() bool { return t.Flags&TagFlagHasCommonKey != 0 }

// Defunct reports whether the tag is marked VALUE_DEFUNCT (deleted, not
// yet reclaimed).
func (t Tag) Defunct() bool { return t.Flags&TagFlagDefunct != 0 }

// Bytes returns the tag's raw value bytes, sliced out of the page body.
func (t Tag) Bytes(page []byte) ([]byte, bool) {
	return buf.Slice(page, int(t.Offset), int(t.Size))
}
