package fileio

import (
	"fmt"
	"io"

	excelize "github.com/xuri/excelize/v2"

	"sheet-agent/internal/table"
)

func readXLSX(r io.Reader) ([]table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	out := make([]table.Table, 0, len(sheets))
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		out = append(out, toTable(name, rows))
	}
	return out, nil
}
