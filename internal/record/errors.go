package record

import "errors"

var (
	// ErrTruncated indicates the record buffer lacked the bytes a field
	// requires.
	ErrTruncated = errors.New("record: truncated")
	// ErrLongValueMissing indicates a referenced long value id did not
	// resolve in the table's long-value tree.
	ErrLongValueMissing = errors.New("record: long value missing")
	// ErrLongValueLengthMismatch indicates a reassembled long value's
	// length did not match its declared metadata size.
	ErrLongValueLengthMismatch = errors.New("record: long value length mismatch")
	// ErrUnsupportedCompression indicates a tagged value's compression tag
	// was not one this decoder understands.
	ErrUnsupportedCompression = errors.New("record: unsupported compression")
	// ErrColumnIDUnknown indicates a tagged or variable entry referenced a
	// column id absent from the schema.
	ErrColumnIDUnknown = errors.New("record: unknown column id")
	// ErrAmbiguousTaggedFlags indicates a tagged entry's flag bits included
	// one this decoder does not recognize under the page's record format;
	// per §9 this is rejected rather than guessed at.
	ErrAmbiguousTaggedFlags = errors.New("record: ambiguous tagged column flags")
)
