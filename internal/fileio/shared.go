package fileio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"sheet-agent/internal/table"
)

var ErrUnsupported = errors.New("unsupported file")

// ReadWorkbook — выберет парсер по расширению и вернёт все листы книги по порядку.
// CSV считается книгой из одного листа с именем файла.
func ReadWorkbook(r io.Reader, filename string) ([]table.Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	case ".xls":
		return readXLS(r)
	case ".csv":
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		t, err := readCSV(r, name)
		if err != nil {
			return nil, err
		}
		return []table.Table{t}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
}

// toTable: первая непустая строка становится заголовком, пустые заголовки
// получают имя "Unnamed: N", полностью пустые строки отбрасываются.
func toTable(name string, rows [][]string) table.Table {
	t := table.Table{Name: name}

	hdr := -1
	width := 0
	for i, r := range rows {
		if hdr < 0 && !isEmptyRow(r) {
			hdr = i
		}
		if hdr >= 0 && len(r) > width {
			width = len(r)
		}
	}
	if hdr < 0 {
		return t
	}
	// хвостовые пустые ячейки не расширяют таблицу
	for width > 0 && columnEmpty(rows[hdr:], width-1) {
		width--
	}

	t.Columns = make([]string, width)
	for c := 0; c < width; c++ {
		v := ""
		if c < len(rows[hdr]) {
			v = normalizeCell(rows[hdr][c])
		}
		if v == "" {
			v = fmt.Sprintf("Unnamed: %d", c)
		}
		t.Columns[c] = v
	}

	for _, r := range rows[hdr+1:] {
		if isEmptyRow(r) {
			continue
		}
		rec := make([]string, width)
		for c := 0; c < width && c < len(r); c++ {
			rec[c] = normalizeCell(r[c])
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

var cellRepl = strings.NewReplacer("\u00A0", " ", "\u202F", " ")

// normalizeCell: NBSP/NNBSP -> пробел, обрезка краёв.
func normalizeCell(s string) string {
	s = cellRepl.Replace(s)
	return strings.TrimSpace(s)
}

func isEmptyRow(r []string) bool {
	for _, v := range r {
		if normalizeCell(v) != "" {
			return false
		}
	}
	return true
}

func columnEmpty(rows [][]string, c int) bool {
	for _, r := range rows {
		if c < len(r) && normalizeCell(r[c]) != "" {
			return false
		}
	}
	return true
}
