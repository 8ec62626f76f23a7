package ese

import (
	"golang.org/x/sync/errgroup"
)

// TableSummary is one table's record count, gathered concurrently with its
// siblings by AllTableSummaries.
type TableSummary struct {
	Name  string
	ID    uint32
	Count int
	Err   error
}

// AllTableSummaries counts every table's records concurrently: each table
// owns an independent tree.Cursor, and the shared Pager's page cache
// already serializes physical reads (§5), so concurrent per-table scans
// are safe and share warmed pages for free.
func (h *Handle) AllTableSummaries() ([]TableSummary, error) {
	tables, err := h.Tables()
	if err != nil {
		return nil, err
	}

	out := make([]TableSummary, len(tables))
	var g errgroup.Group
	for i, t := range tables {
		i, t := i, t
		g.Go(func() error {
			n, err := t.RecordCount()
			out[i] = TableSummary{Name: t.Name(), ID: t.ID(), Count: n, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
