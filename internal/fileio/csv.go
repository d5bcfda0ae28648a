package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"sheet-agent/internal/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV читает CSV, определяя кодировку и приводя к UTF-8.
// Из коробки: UTF-8 (с BOM и без), Windows-1251, KOI8-R.
func readCSV(r io.Reader, name string) (table.Table, error) {
	br := bufio.NewReader(r)

	// кусочка хватает, чтобы угадать кодировку
	peek, _ := br.Peek(4096)
	cs := "utf-8"
	if bytes.HasPrefix(peek, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	} else if len(peek) > 0 {
		if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
			cs = strings.ToLower(det.Charset)
		}
	}

	var dec io.Reader = br
	switch cs {
	case "windows-1251", "cp1251":
		dec = transform.NewReader(br, charmap.Windows1251.NewDecoder())
	case "koi8-r":
		dec = transform.NewReader(br, charmap.KOI8R.NewDecoder())
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, err
		}
		rows = append(rows, rec)
	}
	return toTable(name, rows), nil
}
