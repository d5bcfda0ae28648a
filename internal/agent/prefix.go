package agent

import (
	"fmt"
	"strings"

	"sheet-agent/internal/query"
	"sheet-agent/internal/table"
)

const previewRows = 5

// Prefix перечисляет таблицы как dfN с именами листов.
func Prefix(sheets []string) string {
	parts := make([]string, len(sheets))
	for i, name := range sheets {
		parts[i] = fmt.Sprintf("df%d from sheet '%s'", i, name)
	}
	return "You have access to the following dataframes from Excel sheets: " +
		strings.Join(parts, ", ") +
		"\nUse them appropriately in your code based on the query."
}

// Describe: колонки, число строк и первые строки каждой таблицы.
func Describe(tables []table.Table) string {
	var b strings.Builder
	for i, t := range tables {
		fmt.Fprintf(&b, "df%d (sheet '%s'): %d rows\n", i, t.Name, t.Len())
		if t.Width() == 0 {
			b.WriteString("(no columns)\n\n")
			continue
		}
		rows := t.Rows
		if len(rows) > previewRows {
			rows = rows[:previewRows]
		}
		b.WriteString(query.Result{Columns: t.Columns, Rows: rows}.Text(0))
		b.WriteString("\n")
	}
	return b.String()
}
