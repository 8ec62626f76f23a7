package ese

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/esekit/esekit/internal/buf"
	"github.com/esekit/esekit/internal/eseformat"
)

// fileTimeEpoch is FILETIME's zero point, 1601-01-01T00:00:00Z.
var fileTimeEpoch = time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)

// oleAutomationEpoch is the OLE Automation Date zero point, 1899-12-30.
var oleAutomationEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Text decodes a TEXT/LONG_TEXT value's raw bytes into a Go string,
// honoring the column's codepage: 1200 (or 0, unset) is UTF-16LE, 1252 is
// Windows-1252, and anything else falls back to Windows-1252 as the most
// common single-byte codepage in practice.
func (v Value) Text() (string, error) {
	if v.Null {
		return "", nil
	}
	if v.Column.Type != eseformat.ColumnTypeText && v.Column.Type != eseformat.ColumnTypeLongText {
		return "", newErr(ErrKindColumnIDUnknown, "Text called on a non-text column", nil)
	}
	switch v.Column.Codepage {
	case eseformat.CodepageUTF16LE, 0:
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		out, err := dec.Bytes(v.Raw)
		if err != nil {
			return "", newErr(ErrKindRecordTruncated, "decode utf-16le text column", err)
		}
		return string(out), nil
	default:
		out, err := charmap.Windows1252.NewDecoder().Bytes(v.Raw)
		if err != nil {
			return "", newErr(ErrKindRecordTruncated, "decode codepage text column", err)
		}
		return string(out), nil
	}
}

// GUID decodes a GUID column's 16 raw bytes. ESE stores GUIDs in the
// mixed-endian layout used throughout Win32 (the first three fields
// little-endian, the last two big-endian), the same layout
// github.com/google/uuid parses via FromBytes on a byte-swapped copy.
func (v Value) GUID() (uuid.UUID, error) {
	if v.Null {
		return uuid.Nil, nil
	}
	if len(v.Raw) != 16 {
		return uuid.Nil, newErr(ErrKindRecordTruncated, "guid column is not 16 bytes", nil)
	}
	var b [16]byte
	b[0], b[1], b[2], b[3] = v.Raw[3], v.Raw[2], v.Raw[1], v.Raw[0]
	b[4], b[5] = v.Raw[5], v.Raw[4]
	b[6], b[7] = v.Raw[7], v.Raw[6]
	copy(b[8:], v.Raw[8:])
	return uuid.FromBytes(b[:])
}

// Int16, Int32, Int64, UInt16, UInt32, UInt64 decode fixed-width integer
// columns. They return 0 for a NULL value or a short buffer; callers that
// must distinguish NULL from zero should check Value.Null first.
func (v Value) Int16() int16   { return buf.I16LE(v.Raw) }
func (v Value) Int32() int32   { return buf.I32LE(v.Raw) }
func (v Value) UInt16() uint16 { return buf.U16LE(v.Raw) }
func (v Value) UInt32() uint32 { return buf.U32LE(v.Raw) }
func (v Value) UInt64() uint64 { return buf.U64LE(v.Raw) }
func (v Value) Int64() int64   { return int64(buf.U64LE(v.Raw)) }

// Float32 and Float64 decode IEEE_SINGLE/IEEE_DOUBLE columns.
func (v Value) Float32() float32 {
	if len(v.Raw) < 4 {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v.Raw))
}

func (v Value) Float64() float64 {
	if len(v.Raw) < 8 {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.Raw))
}

// Bool decodes a single-byte BOOLEAN column: ESE stores true as 0xFF.
func (v Value) Bool() bool {
	return len(v.Raw) > 0 && v.Raw[0] != 0
}

// DateTime decodes a DATE_TIME column's 8 raw bytes. Two sub-tags exist
// (§3): FILETIME, 100-nanosecond ticks since 1601-01-01, selected by
// Column.Flags carrying ColumnFlagDateTimeIsFileTime; otherwise the OLE
// Automation Date convention, a float64 count of days since 1899-12-30.
func (v Value) DateTime() (time.Time, error) {
	if v.Null {
		return time.Time{}, nil
	}
	if v.Column.Type != eseformat.ColumnTypeDateTime {
		return time.Time{}, newErr(ErrKindColumnIDUnknown, "DateTime called on a non-date-time column", nil)
	}
	if len(v.Raw) < 8 {
		return time.Time{}, newErr(ErrKindRecordTruncated, "date_time column is not 8 bytes", nil)
	}
	if v.Column.Flags&eseformat.ColumnFlagDateTimeIsFileTime != 0 {
		ticks := buf.U64LE(v.Raw)
		days := int(ticks / (10000000 * 86400))
		secOfDay := int64((ticks / 10000000) % 86400)
		nanos := int64(ticks%10000000) * 100
		return fileTimeEpoch.AddDate(0, 0, days).Add(time.Duration(secOfDay)*time.Second + time.Duration(nanos)), nil
	}

	days := math.Float64frombits(binary.LittleEndian.Uint64(v.Raw))
	whole := math.Floor(days)
	frac := days - whole
	return oleAutomationEpoch.AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(24*time.Hour))), nil
}
