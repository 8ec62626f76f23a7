package ese

import (
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/esekit/esekit/internal/catalog"
	"github.com/esekit/esekit/internal/longvalue"
	"github.com/esekit/esekit/internal/pager"
	"github.com/esekit/esekit/internal/record"
	"github.com/esekit/esekit/internal/tree"
)

func wrapPagerErr(err error) error {
	switch {
	case errors.Is(err, pager.ErrIO):
		return newErr(ErrKindIO, "pager io failure", pkgerrors.WithStack(err))
	case errors.Is(err, pager.ErrCorruptHeader):
		return newErr(ErrKindCorruptHeader, "both primary and shadow headers failed validation", pkgerrors.WithStack(err))
	case errors.Is(err, pager.ErrUnsupportedFormat):
		return newErr(ErrKindUnsupportedFormat, "unsupported page size or format version", pkgerrors.WithStack(err))
	case errors.Is(err, pager.ErrPageCorrupt):
		return newErr(ErrKindPageCorrupt, "page checksum or self-reference mismatch", pkgerrors.WithStack(err))
	case errors.Is(err, pager.ErrClosed):
		return newErr(ErrKindClosed, "pager closed", pkgerrors.WithStack(err))
	default:
		return newErr(ErrKindIO, "pager error", pkgerrors.WithStack(err))
	}
}

func wrapTreeErr(err error, table uint32) error {
	if err == nil {
		return nil
	}
	var kind ErrKind
	switch {
	case errors.Is(err, tree.ErrTreeCycle):
		kind = ErrKindTreeCycle
	case errors.Is(err, tree.ErrKeyOrderViolation):
		kind = ErrKindKeyOrderViolation
	case errors.Is(err, tree.ErrPageTypeMismatch):
		kind = ErrKindPageTypeMismatch
	default:
		if e, ok := wrapPagerErr(err).(*Error); ok {
			e.Table = table
			return e
		}
		kind = ErrKindIO
	}
	e := newErr(kind, "tree traversal error", pkgerrors.WithStack(err))
	e.Table = table
	return e
}

func wrapCatalogErr(err error) error {
	switch {
	case errors.Is(err, catalog.ErrCatalogMissing):
		return newErr(ErrKindCatalogMissing, "catalog root page unavailable", pkgerrors.WithStack(err))
	case errors.Is(err, catalog.ErrTemplateCycle):
		return newErr(ErrKindTemplateCycle, "template table reference cycle", pkgerrors.WithStack(err))
	case errors.Is(err, catalog.ErrDuplicateColumnID):
		return newErr(ErrKindDuplicateColumnID, "duplicate column id in catalog", pkgerrors.WithStack(err))
	default:
		return wrapTreeErr(err, 0)
	}
}

func wrapRecordErr(err error, table uint32) error {
	var kind ErrKind
	switch {
	case errors.Is(err, record.ErrTruncated):
		kind = ErrKindRecordTruncated
	case errors.Is(err, record.ErrLongValueMissing), errors.Is(err, longvalue.ErrMissing):
		kind = ErrKindLongValueMissing
	case errors.Is(err, record.ErrLongValueLengthMismatch), errors.Is(err, longvalue.ErrLengthMismatch):
		kind = ErrKindLongValueLengthMismatch
	case errors.Is(err, record.ErrUnsupportedCompression):
		kind = ErrKindUnsupportedCompression
	case errors.Is(err, record.ErrColumnIDUnknown):
		kind = ErrKindColumnIDUnknown
	default:
		e := wrapTreeErr(err, table)
		if e2, ok := e.(*Error); ok {
			return e2
		}
		kind = ErrKindRecordTruncated
	}
	e := newErr(kind, "record decode error", pkgerrors.WithStack(err))
	e.Table = table
	return e
}

func wrapLongValueErr(err error, table uint32) error {
	var kind ErrKind
	switch {
	case errors.Is(err, longvalue.ErrMissing):
		kind = ErrKindLongValueMissing
	case errors.Is(err, longvalue.ErrLengthMismatch):
		kind = ErrKindLongValueLengthMismatch
	default:
		e := wrapTreeErr(err, table)
		if e2, ok := e.(*Error); ok {
			return e2
		}
		kind = ErrKindLongValueMissing
	}
	e := newErr(kind, "long value reassembly error", pkgerrors.WithStack(err))
	e.Table = table
	return e
}
