package query

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Text рендерит результат выровненной таблицей; maxRows <= 0: без ограничения.
func (r Result) Text(maxRows int) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))

	rows := r.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()

	if len(rows) < len(r.Rows) {
		fmt.Fprintf(&b, "... (%d rows total)\n", len(r.Rows))
	}
	return b.String()
}
