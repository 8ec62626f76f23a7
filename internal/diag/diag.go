// Package diag provides the per-handle diagnostics sink: a passive,
// zero-cost-when-disabled collector of page/table-scoped errors, plus a
// report type for an exhaustive on-demand scan.
package diag

import "github.com/sirupsen/logrus"

// Entry is one recorded diagnostic event.
type Entry struct {
	Page  uint32
	Table uint32
	Kind  string
	Err   error
}

// Sink collects diagnostics for one handle. A nil *Sink is valid and a
// no-op, so recording is zero-cost when diagnostics are disabled.
type Sink struct {
	log     *logrus.Logger
	entries []Entry
}

// NewSink returns an enabled sink, logging through log (or a default
// logrus.Logger if log is nil).
func NewSink(log *logrus.Logger) *Sink {
	if log == nil {
		log = logrus.New()
	}
	return &Sink{log: log}
}

// Record appends an entry and emits a structured warning log line. Safe to
// call on a nil *Sink.
func (s *Sink) Record(page uint32, table uint32, kind string, err error) {
	if s == nil {
		return
	}
	s.entries = append(s.entries, Entry{Page: page, Table: table, Kind: kind, Err: err})
	s.log.WithFields(logrus.Fields{
		"page":  page,
		"table": table,
		"kind":  kind,
	}).Warn(err)
}

// Entries returns every diagnostic recorded so far. Safe to call on a nil
// *Sink, returning nil.
func (s *Sink) Entries() []Entry {
	if s == nil {
		return nil
	}
	return s.entries
}
