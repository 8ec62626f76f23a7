// Package dump renders a table's resolved schema and records as text or
// JSON, the way hivekit's printer package renders a registry subtree.
package dump

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/esekit/esekit/pkg/ese"
)

// Options controls how much of a table Text and JSON render.
type Options struct {
	MaxRecords    int // 0 means unlimited
	MaxValueBytes int // 0 means unlimited; applies to BINARY/unknown columns in Text only, JSON writes full values
	ShowColumns   bool
}

// Text writes a "record <key>" line per record followed by one
// "Name = value" line per column, in the style of hivekit's
// printKeyText/printValueText.
func Text(w io.Writer, t *ese.Table, opts Options) error {
	cols := t.Columns()
	if opts.ShowColumns {
		fmt.Fprintf(w, "table %s (%d columns)\n", t.Name(), len(cols))
		for _, c := range cols {
			fmt.Fprintf(w, "  %s\n", c.Name)
		}
	}

	n := 0
	err := t.Records(func(r ese.Record) error {
		if opts.MaxRecords > 0 && n >= opts.MaxRecords {
			return io.EOF
		}
		n++
		fmt.Fprintf(w, "record %x\n", r.Key)
		for _, c := range cols {
			v, ok := r.Value(c.ID)
			if !ok || v.Null {
				fmt.Fprintf(w, "  %q = <null>\n", c.Name)
				continue
			}
			fmt.Fprintf(w, "  %q = %s\n", c.Name, formatText(v, opts))
		}
		return nil
	})
	if err == io.EOF {
		return nil
	}
	return err
}

func formatText(v ese.Value, opts Options) string {
	switch {
	case v.Column.Type.IsText():
		s, err := v.Text()
		if err != nil {
			return fmt.Sprintf("<undecodable: %v>", err)
		}
		return fmt.Sprintf("%q", s)
	default:
		data := v.Raw
		max := opts.MaxValueBytes
		if max == 0 || max > len(data) {
			max = len(data)
		}
		suffix := ""
		if max < len(data) {
			suffix = fmt.Sprintf(" (truncated, %d total bytes)", len(data))
		}
		return hex.EncodeToString(data[:max]) + suffix
	}
}

// jsonRecord is one record's JSON projection: column name to either a
// decoded string or a hex-encoded byte string.
type jsonRecord map[string]any

// JSON writes the table's records as a JSON array, one object per record.
func JSON(w io.Writer, t *ese.Table, opts Options) error {
	cols := t.Columns()
	enc := json.NewEncoder(w)

	fmt.Fprint(w, "[\n")
	first := true
	n := 0
	err := t.Records(func(r ese.Record) error {
		if opts.MaxRecords > 0 && n >= opts.MaxRecords {
			return io.EOF
		}
		n++
		rec := jsonRecord{}
		for _, c := range cols {
			v, ok := r.Value(c.ID)
			if !ok || v.Null {
				rec[c.Name] = nil
				continue
			}
			if v.Column.Type.IsText() {
				s, err := v.Text()
				if err == nil {
					rec[c.Name] = s
					continue
				}
			}
			rec[c.Name] = hex.EncodeToString(v.Raw)
		}
		if !first {
			fmt.Fprint(w, ",\n")
		}
		first = false
		return enc.Encode(rec)
	})
	fmt.Fprint(w, "]\n")
	if err == io.EOF {
		return nil
	}
	return err
}
