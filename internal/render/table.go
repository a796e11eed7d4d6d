// Package render formats an aggregated record table as aligned text.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"xthi/internal/model"
)

// Widths returns, per column, the longest value found in that column across
// all records. Hidden columns are never printed and stay at zero. A record
// with more fields than the schema has columns fails with model.ErrArity.
func Widths(table []byte, headers model.Headers) ([]int, error) {
	widths := make([]int, len(headers))
	for row := 0; row < model.SlotCount(table); row++ {
		fields := model.Fields(model.SlotAt(table, row))
		if len(fields) > len(headers) {
			return nil, fmt.Errorf("%w: row %d has %d fields, schema has %d",
				model.ErrArity, row, len(fields), len(headers))
		}
		for col, value := range fields {
			if headers.Displayed(col) && len(value) > widths[col] {
				widths[col] = len(value)
			}
		}
	}
	return widths, nil
}

// Table writes one line per record, in table order. Each displayed column is
// printed as "Label=value" with the value right-justified to the column
// width; displayed columns are separated by a single space and hidden columns
// produce no output at all. Fields missing from a truncated record print as
// empty values. Nothing is written if the table violates the schema.
func Table(w io.Writer, table []byte, headers model.Headers) error {
	widths, err := Widths(table, headers)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for row := 0; row < model.SlotCount(table); row++ {
		fields := model.Fields(model.SlotAt(table, row))
		first := true
		for col, label := range headers {
			if label == "" {
				continue
			}
			var value string
			if col < len(fields) {
				value = fields[col]
			}
			if !first {
				bw.WriteByte(' ')
			}
			first = false
			bw.WriteString(label)
			bw.WriteByte('=')
			bw.WriteString(strings.Repeat(" ", widths[col]-len(value)))
			bw.WriteString(value)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
