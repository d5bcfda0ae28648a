package table

// Table: один лист книги: упорядоченные заголовки + строки значений.
type Table struct {
	Name    string     `json:"name"`    // имя листа
	Columns []string   `json:"columns"` // заголовки в исходном порядке
	Rows    [][]string `json:"rows"`
}

func (t Table) Width() int { return len(t.Columns) }
func (t Table) Len() int   { return len(t.Rows) }

// Cell возвращает значение ячейки; за пределами строки: "".
func (t Table) Cell(r, c int) string {
	if r < 0 || r >= len(t.Rows) || c < 0 || c >= len(t.Rows[r]) {
		return ""
	}
	return t.Rows[r][c]
}

// Index: позиция первой колонки с таким заголовком, -1 если нет.
func (t Table) Index(col string) int {
	for i, h := range t.Columns {
		if h == col {
			return i
		}
	}
	return -1
}

// Clone делает глубокую копию, чтобы переименование не задевало исходник.
func (t Table) Clone() Table {
	out := Table{Name: t.Name}
	if t.Columns != nil {
		out.Columns = append([]string(nil), t.Columns...)
	}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}
