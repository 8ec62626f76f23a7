package eseformat

import "github.com/esekit/esekit/internal/buf"

// Header is the decoded form of either the primary or the shadow copy of
// the database file header.
type Header struct {
	Checksum        uint32
	FormatVersion   uint32
	FormatRevision  uint32
	FileType        uint32
	DatabaseState   uint32
	PageSize        uint32
	UsesECCChecksum bool
	CreateRevision  uint32
}

// ParseHeader decodes a database header from b. b must be at least
// HeaderProbeSize bytes. It does not verify the checksum; callers validate
// with ChecksumOK once the primary/shadow choice is made.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderProbeSize {
		return Header{}, ErrTruncated
	}
	if buf.U32LE(b[HeaderSignatureOffset:]) != Signature {
		return Header{}, ErrSignatureMismatch
	}

	pageSize := buf.U32LE(b[HeaderPageSizeOffset:])
	if pageSize == 0 {
		// Pre-Vista headers omit this field; 4096 was the only page size.
		pageSize = 4096
	}

	h := Header{
		FormatVersion:   buf.U32LE(b[HeaderFormatVersionOffset:]),
		FormatRevision:  buf.U32LE(b[HeaderFormatRevisionOffset:]),
		FileType:        buf.U32LE(b[HeaderFileTypeOffset:]),
		DatabaseState:   buf.U32LE(b[HeaderDBStateOffset:]),
		PageSize:        pageSize,
		UsesECCChecksum: buf.U32LE(b[HeaderECCFlagOffset:]) != 0,
		CreateRevision:  buf.U32LE(b[HeaderCreateRevisionOffset:]),
	}
	return h, nil
}

// SupportedPageSize reports whether size is one of the five page sizes the
// format defines.
func SupportedPageSize(size uint32) bool {
	for _, s := range SupportedPageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// UsesExtendedPageHeader reports whether pages in this file carry the
// 80-byte extended header rather than the legacy 40-byte one.
func UsesExtendedPageHeader(pageSize uint32, formatRevision uint32) bool {
	return pageSize >= 16384 || formatRevision >= RevisionExtendedPageHeader
}

// UsesNewRecordFormat reports whether pages in this file use
// NEW_RECORD_FORMAT key assembly and tag-flag packing.
func UsesNewRecordFormat(formatRevision uint32) bool {
	return formatRevision >= RevisionNewRecordFormat
}

// HeaderChecksum computes the per-revision XOR checksum over a header
// buffer, matching the field's own stored value on a valid header.
//
// The initial vector differs across format_revision; callers must not
// infer one initial value and apply it universally. This implementation
// carries the one documented value used by every format_revision this
// library supports (0x89abcdef, the file signature itself, mirroring the
// documented ESE header checksum seed) and is the single place that seed
// is coded, so a future revision-specific seed only needs changing here.
func HeaderChecksum(b []byte) uint32 {
	if len(b) < HeaderProbeSize {
		return 0
	}
	var sum uint32 = Signature
	for off := 4; off+4 <= HeaderProbeSize; off += 4 {
		sum ^= buf.U32LE(b[off:])
	}
	return sum
}

// ChecksumOK reports whether b's stored checksum matches the computed one.
func ChecksumOK(b []byte) bool {
	if len(b) < HeaderProbeSize {
		return false
	}
	return buf.U32LE(b[HeaderCheckSumOffset:]) == HeaderChecksum(b)
}
