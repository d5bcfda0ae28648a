package query

import (
	"fmt"
	"strings"

	"sheet-agent/internal/table"
	"sheet-agent/internal/utils"
)

type group struct {
	key  []string
	rows []int
}

// aggregate группирует строки (порядок групп: порядок первого появления)
// и считает агрегат по measure. Нечисловые ячейки в measure пропускаются.
func aggregate(t table.Table, rows []int, groupBy []string, agg, measure string) (Result, error) {
	switch agg {
	case "count", "sum", "avg", "min", "max":
	default:
		return Result{}, fmt.Errorf("%w: unknown aggregate %q", ErrBadQuery, agg)
	}

	gIdx := make([]int, 0, len(groupBy))
	cols := make([]string, 0, len(groupBy)+1)
	for _, g := range groupBy {
		ci, err := resolve(t, g)
		if err != nil {
			return Result{}, err
		}
		gIdx = append(gIdx, ci)
		cols = append(cols, t.Columns[ci])
	}

	mIdx := -1
	label := "count"
	if agg != "count" {
		if strings.TrimSpace(measure) == "" {
			return Result{}, fmt.Errorf("%w: aggregate %s needs a measure column", ErrBadQuery, agg)
		}
		ci, err := resolve(t, measure)
		if err != nil {
			return Result{}, err
		}
		mIdx = ci
		label = agg + "(" + t.Columns[ci] + ")"
	}
	cols = append(cols, label)

	groups := groupRows(t, rows, gIdx)
	res := Result{Columns: cols, Rows: make([][]string, 0, len(groups))}
	for _, g := range groups {
		rec := append(append([]string(nil), g.key...), reduce(t, g.rows, agg, mIdx))
		res.Rows = append(res.Rows, rec)
	}
	return res, nil
}

func groupRows(t table.Table, rows []int, gIdx []int) []group {
	if len(gIdx) == 0 {
		return []group{{rows: rows}}
	}
	pos := make(map[string]int)
	var out []group
	for _, r := range rows {
		key := make([]string, len(gIdx))
		for j, ci := range gIdx {
			key[j] = t.Cell(r, ci)
		}
		k := strings.Join(key, "\x1f")
		i, ok := pos[k]
		if !ok {
			i = len(out)
			pos[k] = i
			out = append(out, group{key: key})
		}
		out[i].rows = append(out[i].rows, r)
	}
	return out
}

func reduce(t table.Table, rows []int, agg string, mIdx int) string {
	if agg == "count" {
		return utils.FormatNumber(float64(len(rows)))
	}
	var (
		n      int
		sum    float64
		lo, hi float64
	)
	for _, r := range rows {
		v, ok := utils.ParseNumber(t.Cell(r, mIdx))
		if !ok {
			continue
		}
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		sum += v
		n++
	}
	switch agg {
	case "sum":
		return utils.FormatNumber(sum)
	case "avg":
		if n == 0 {
			return ""
		}
		return utils.FormatNumber(sum / float64(n))
	case "min":
		if n == 0 {
			return ""
		}
		return utils.FormatNumber(lo)
	default: // max
		if n == 0 {
			return ""
		}
		return utils.FormatNumber(hi)
	}
}
