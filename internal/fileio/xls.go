// Парсер .xls: ширину листа считаем сами и читаем все ячейки до неё.
package fileio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	xls "github.com/extrame/xls"

	"sheet-agent/internal/table"
)

// xlsCharsets: порядок перебора кодировок. .xls из 1С чаще всего cp1251, но иногда UTF-8/KOI8-R.
var xlsCharsets = []string{"windows-1251", "utf-8", "koi8-r"}

// openXLS подменяется в тестах.
var openXLS = xls.OpenReader

// computeMaxCols: "реальная" ширина листа: пробегаем разумное число колонок и ищем непустые.
func computeMaxCols(sheet *xls.WorkSheet) int {
	const probeMax = 512
	maxCols := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheet.Row(i)
		if r == nil {
			continue
		}
		for j := maxCols; j < probeMax; j++ {
			if normalizeCell(r.Col(j)) != "" {
				maxCols = j + 1
			}
		}
	}
	return maxCols
}

func readXLS(r io.Reader) (tables []table.Table, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// extrame/xls паникует на битых файлах
	defer func() {
		if rec := recover(); rec != nil {
			tables, err = nil, fmt.Errorf("xls: malformed workbook: %v", rec)
		}
	}()

	var wb *xls.WorkBook
	var lastErr error
	for _, ch := range xlsCharsets {
		wb, err = openXLS(bytes.NewReader(b), ch)
		if err == nil && wb != nil {
			break
		}
		lastErr = err
	}
	if wb == nil {
		if lastErr == nil {
			lastErr = errors.New("xls: failed to open workbook")
		}
		return nil, lastErr
	}

	for s := 0; s < wb.NumSheets(); s++ {
		sheet := wb.GetSheet(s)
		if sheet == nil {
			continue
		}
		// НЕ полагаемся на Row.LastCol()
		maxCols := computeMaxCols(sheet)
		rows := make([][]string, 0, int(sheet.MaxRow)+1)
		for i := 0; i <= int(sheet.MaxRow); i++ {
			row := sheet.Row(i)
			cols := make([]string, maxCols)
			if row != nil {
				for j := 0; j < maxCols; j++ {
					cols[j] = row.Col(j)
				}
			}
			rows = append(rows, cols)
		}
		tables = append(tables, toTable(sheet.Name, rows))
	}
	return tables, nil
}
