package pager

import "errors"

var (
	// ErrIO indicates the backing read failed or the file is too short.
	ErrIO = errors.New("pager: io failure")
	// ErrUnsupportedFormat indicates a signature, version, or page size
	// outside the supported set.
	ErrUnsupportedFormat = errors.New("pager: unsupported format")
	// ErrCorruptHeader indicates both the primary and shadow header failed
	// checksum validation.
	ErrCorruptHeader = errors.New("pager: corrupt header")
	// ErrPageCorrupt indicates a page's checksum or self-reference did not
	// validate.
	ErrPageCorrupt = errors.New("pager: page corrupt")
	// ErrECCUncorrectable indicates a page's ECC checksum disagreed with the
	// recomputed value in a way that does not localize to a single bit.
	ErrECCUncorrectable = errors.New("pager: ecc checksum uncorrectable")
	// ErrClosed indicates an operation was attempted on a pager past its
	// terminal (failed) state.
	ErrClosed = errors.New("pager: closed")
)
