package eseformat

import "github.com/esekit/esekit/internal/buf"

// CellKeyValue is one tag decoded into its full on-disk key and its
// remaining value bytes (the leaf payload, or the branch child-page
// reference).
type CellKeyValue struct {
	Key   []byte
	Value []byte
}

// AssembleKey reproduces a tag's full key and its remaining value, per
// §4.2's key-assembly rules. tagBytes is the tag's raw value slice (from
// Tag.Bytes). parentPrefix is the page's key prefix; the tree cursor
// passes the bytes of the page's own tag 0, without any ancestor branch
// page's key folded in.
//
// Tag index 0 always yields the page's own key prefix and has no
// associated value: callers must special-case it before calling
// AssembleKey for index >= 1.
func AssembleKey(tagBytes []byte, newRecordFormat bool, parentPrefix []byte) (CellKeyValue, error) {
	if newRecordFormat {
		if len(tagBytes) < 4 {
			return CellKeyValue{}, ErrTruncated
		}
		commonKeySize := int(buf.U16LE(tagBytes[0:]))
		localKeySize := int(buf.U16LE(tagBytes[2:]))
		if commonKeySize > len(parentPrefix) {
			return CellKeyValue{}, ErrMalformedKey
		}
		rest := tagBytes[4:]
		if localKeySize > len(rest) {
			return CellKeyValue{}, ErrTruncated
		}
		key := make([]byte, 0, commonKeySize+localKeySize)
		key = append(key, parentPrefix[:commonKeySize]...)
		key = append(key, rest[:localKeySize]...)
		return CellKeyValue{Key: key, Value: rest[localKeySize:]}, nil
	}

	if len(tagBytes) < 2 {
		return CellKeyValue{}, ErrTruncated
	}
	keySize := int(buf.U16LE(tagBytes[0:]))
	if 2+keySize > len(tagBytes) {
		return CellKeyValue{}, ErrTruncated
	}
	key := tagBytes[2 : 2+keySize]
	value := tagBytes[2+keySize:]
	return CellKeyValue{Key: key, Value: value}, nil
}

// ChildPageNumber extracts a branch cell's child page number: the first 4
// bytes of the cell's value.
func ChildPageNumber(value []byte) (uint32, error) {
	if len(value) < 4 {
		return 0, ErrTruncated
	}
	return buf.U32LE(value), nil
}
