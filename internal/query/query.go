// Package query исполняет структурированные запросы агента по таблицам книги:
// фильтр -> группировка -> агрегат -> сортировка -> лимит.
package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sheet-agent/internal/table"
	"sheet-agent/internal/utils"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrBadQuery      = errors.New("bad query")
)

type Filter struct {
	Column string `json:"column" jsonschema_description:"Column header of the table"`
	Op     string `json:"op" jsonschema:"enum=eq,enum=ne,enum=contains,enum=gt,enum=ge,enum=lt,enum=le"`
	Value  string `json:"value" jsonschema_description:"Value to compare with; numbers as plain digits"`
}

type Query struct {
	Table     int      `json:"table" jsonschema_description:"Table index N of dfN"`
	Select    []string `json:"select" jsonschema_description:"Columns to return when not aggregating; empty = all"`
	Filters   []Filter `json:"filters" jsonschema_description:"AND-combined row filters"`
	GroupBy   []string `json:"group_by" jsonschema_description:"Columns to group by"`
	Aggregate string   `json:"aggregate" jsonschema:"enum=none,enum=count,enum=sum,enum=avg,enum=min,enum=max"`
	Measure   string   `json:"measure" jsonschema_description:"Numeric column for sum/avg/min/max"`
	SortBy    string   `json:"sort_by" jsonschema_description:"Output column to sort by; empty = keep order"`
	Desc      bool     `json:"desc"`
	Limit     int      `json:"limit" jsonschema_description:"Max rows, 0 = all"`
}

type Result struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Execute выполняет запрос над tables[q.Table].
func Execute(tables []table.Table, q Query) (Result, error) {
	if q.Table < 0 || q.Table >= len(tables) {
		return Result{}, fmt.Errorf("%w: df%d (have %d)", ErrUnknownTable, q.Table, len(tables))
	}
	t := tables[q.Table]

	rows, err := applyFilters(t, q.Filters)
	if err != nil {
		return Result{}, err
	}

	var res Result
	agg := strings.ToLower(strings.TrimSpace(q.Aggregate))
	if agg == "" {
		agg = "none"
	}
	if agg == "none" && len(q.GroupBy) > 0 {
		agg = "count"
	}

	if agg == "none" {
		res, err = project(t, rows, q.Select)
	} else {
		res, err = aggregate(t, rows, q.GroupBy, agg, q.Measure)
	}
	if err != nil {
		return Result{}, err
	}

	if q.SortBy != "" {
		if err := sortRows(&res, q.SortBy, q.Desc); err != nil {
			return Result{}, err
		}
	}
	if q.Limit > 0 && len(res.Rows) > q.Limit {
		res.Rows = res.Rows[:q.Limit]
	}
	return res, nil
}

// resolve: точное совпадение заголовка, затем без учёта регистра.
func resolve(t table.Table, col string) (int, error) {
	if i := t.Index(col); i >= 0 {
		return i, nil
	}
	want := strings.ToLower(strings.TrimSpace(col))
	for i, h := range t.Columns {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in %s (columns: %s)", ErrUnknownColumn, col, t.Name, strings.Join(t.Columns, ", "))
}

func applyFilters(t table.Table, filters []Filter) ([]int, error) {
	type compiled struct {
		col int
		f   Filter
		num float64
		isN bool
	}
	cs := make([]compiled, 0, len(filters))
	for _, f := range filters {
		ci, err := resolve(t, f.Column)
		if err != nil {
			return nil, err
		}
		f.Op = strings.ToLower(strings.TrimSpace(f.Op))
		switch f.Op {
		case "eq", "ne", "contains", "gt", "ge", "lt", "le":
		default:
			return nil, fmt.Errorf("%w: unknown filter op %q", ErrBadQuery, f.Op)
		}
		n, ok := utils.ParseNumber(f.Value)
		cs = append(cs, compiled{col: ci, f: f, num: n, isN: ok})
	}

	out := make([]int, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		pass := true
		for _, c := range cs {
			if !match(t.Cell(r, c.col), c.f, c.num, c.isN) {
				pass = false
				break
			}
		}
		if pass {
			out = append(out, r)
		}
	}
	return out, nil
}

func match(cell string, f Filter, num float64, isNum bool) bool {
	v, vOK := utils.ParseNumber(cell)
	numeric := isNum && vOK
	switch f.Op {
	case "eq":
		if numeric {
			return v == num
		}
		return strings.EqualFold(strings.TrimSpace(cell), strings.TrimSpace(f.Value))
	case "ne":
		if numeric {
			return v != num
		}
		return !strings.EqualFold(strings.TrimSpace(cell), strings.TrimSpace(f.Value))
	case "contains":
		return strings.Contains(strings.ToLower(cell), strings.ToLower(f.Value))
	}
	// сравнения: числа, иначе строки (даты ISO сравниваются корректно)
	if isNum && !vOK {
		return false
	}
	var c int
	if numeric {
		switch {
		case v < num:
			c = -1
		case v > num:
			c = 1
		}
	} else {
		c = strings.Compare(cell, f.Value)
	}
	switch f.Op {
	case "gt":
		return c > 0
	case "ge":
		return c >= 0
	case "lt":
		return c < 0
	default: // le
		return c <= 0
	}
}

func project(t table.Table, rows []int, sel []string) (Result, error) {
	idx := make([]int, 0, len(sel))
	cols := make([]string, 0, len(sel))
	if len(sel) == 0 {
		for i, h := range t.Columns {
			idx = append(idx, i)
			cols = append(cols, h)
		}
	}
	for _, s := range sel {
		ci, err := resolve(t, s)
		if err != nil {
			return Result{}, err
		}
		idx = append(idx, ci)
		cols = append(cols, t.Columns[ci])
	}

	res := Result{Columns: cols, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		rec := make([]string, len(idx))
		for j, ci := range idx {
			rec[j] = t.Cell(r, ci)
		}
		res.Rows = append(res.Rows, rec)
	}
	return res, nil
}

func sortRows(res *Result, by string, desc bool) error {
	ci := -1
	for i, c := range res.Columns {
		if strings.EqualFold(c, by) {
			ci = i
			break
		}
	}
	if ci < 0 {
		return fmt.Errorf("%w: sort by %q (output columns: %s)", ErrUnknownColumn, by, strings.Join(res.Columns, ", "))
	}
	sort.SliceStable(res.Rows, func(i, j int) bool {
		a, b := res.Rows[i][ci], res.Rows[j][ci]
		if desc {
			return lessValue(b, a)
		}
		return lessValue(a, b)
	})
	return nil
}

func lessValue(a, b string) bool {
	x, xOK := utils.ParseNumber(a)
	y, yOK := utils.ParseNumber(b)
	if xOK && yOK {
		return x < y
	}
	return a < b
}
