package eseformat

import "errors"

var (
	// ErrSignatureMismatch indicates a header lacked the ESE magic.
	ErrSignatureMismatch = errors.New("eseformat: signature mismatch")
	// ErrTruncated indicates a buffer lacked the bytes a structure requires.
	ErrTruncated = errors.New("eseformat: truncated buffer")
	// ErrUnsupportedPageSize indicates a page size outside the supported set.
	ErrUnsupportedPageSize = errors.New("eseformat: unsupported page size")
	// ErrUnsupportedVersion indicates a format version/revision outside the
	// supported set.
	ErrUnsupportedVersion = errors.New("eseformat: unsupported format version")
	// ErrChecksumMismatch indicates a header or page XOR/ECC checksum failed.
	ErrChecksumMismatch = errors.New("eseformat: checksum mismatch")
	// ErrSelfReferenceMismatch indicates a page's embedded page number did
	// not match the number it was addressed by.
	ErrSelfReferenceMismatch = errors.New("eseformat: page self-reference mismatch")
	// ErrTagOutOfBounds indicates a tag table entry pointed outside the page.
	ErrTagOutOfBounds = errors.New("eseformat: tag out of bounds")
	// ErrMalformedKey indicates a key could not be assembled from its tag.
	ErrMalformedKey = errors.New("eseformat: malformed key")
	// ErrUnsupportedPageLayout indicates a page combination of flags this
	// decoder does not understand.
	ErrUnsupportedPageLayout = errors.New("eseformat: unsupported page layout")
)
