package catalog

import "errors"

var (
	// ErrCatalogMissing indicates the reserved catalog page-tree at page 4
	// could not be opened.
	ErrCatalogMissing = errors.New("catalog: missing")
	// ErrTemplateCycle indicates a chain of template-table references
	// formed a cycle.
	ErrTemplateCycle = errors.New("catalog: template table cycle")
	// ErrDuplicateColumnID indicates two catalog rows declared the same
	// column id under the same table.
	ErrDuplicateColumnID = errors.New("catalog: duplicate column id")
)
