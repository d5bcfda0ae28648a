// Package standardize переименовывает произвольные заголовки листа
// в канонические поля реестра по нечёткому совпадению с синонимами.
package standardize

import (
	"sort"
	"strings"

	"sheet-agent/internal/table"
)

// Candidate: лучшая оценка пары (колонка, поле), прошедшая порог.
type Candidate struct {
	Column int    `json:"column"`
	Header string `json:"header"`
	Field  string `json:"field"`
	Score  int    `json:"score"`

	fieldPos int
}

// Rename: одно применённое переименование.
type Rename struct {
	Column int    `json:"column"`
	From   string `json:"from"`
	To     string `json:"to"`
	Score  int    `json:"score"`
}

// Mapping: частичная инъекция "колонка -> поле", отсортирована по номеру колонки.
type Mapping []Rename

// Lookup: каноническое имя для колонки, если она переименована.
func (m Mapping) Lookup(col int) (string, bool) {
	for _, r := range m {
		if r.Column == col {
			return r.To, true
		}
	}
	return "", false
}

// AsMap: "исходный заголовок -> поле" (для логов и ответа API).
func (m Mapping) AsMap() map[string]string {
	out := make(map[string]string, len(m))
	for _, r := range m {
		out[r.From] = r.To
	}
	return out
}

type compiledField struct {
	name     string
	synonyms []string // уже в нижнем регистре
}

type Standardizer struct {
	fields    []compiledField
	threshold int
	score     Scorer
}

// New компилирует реестр. Реестр не меняется и может разделяться между горутинами.
func New(reg Registry) *Standardizer {
	s := &Standardizer{
		fields:    make([]compiledField, 0, len(reg.Fields)),
		threshold: reg.Threshold,
		score:     reg.Scorer,
	}
	if s.score == nil {
		s.score = Ratio
	}
	for _, f := range reg.Fields {
		cf := compiledField{name: f.Name, synonyms: make([]string, len(f.Synonyms))}
		for i, syn := range f.Synonyms {
			cf.synonyms[i] = strings.ToLower(syn)
		}
		s.fields = append(s.fields, cf)
	}
	return s
}

// Match считает кандидатов: для каждой пары (колонка, поле) берётся максимум
// по синонимам; остаются пары строго выше порога. Сортировка: по убыванию
// score, при равенстве раньше идёт левая колонка, затем поле, объявленное раньше.
func (s *Standardizer) Match(headers []string) []Candidate {
	var out []Candidate
	for ci, h := range headers {
		lh := strings.ToLower(h)
		for fi, f := range s.fields {
			if len(f.synonyms) == 0 {
				continue
			}
			best := 0
			for _, syn := range f.synonyms {
				if v := s.score(syn, lh); v > best {
					best = v
				}
			}
			if best > s.threshold {
				out = append(out, Candidate{Column: ci, Header: h, Field: f.name, Score: best, fieldPos: fi})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.fieldPos < b.fieldPos
	})
	return out
}

// Plan: жадный проход по кандидатам без возвратов. Проверяется только
// занятость поля: если колонка уже получила поле, более поздний кандидат
// перезаписывает его, а прежнее поле остаётся израсходованным.
func (s *Standardizer) Plan(headers []string) Mapping {
	cands := s.Match(headers)
	used := make(map[string]bool, len(s.fields))
	byCol := make(map[int]Rename, len(headers))

	for _, c := range cands {
		if used[c.Field] {
			continue
		}
		used[c.Field] = true
		byCol[c.Column] = Rename{Column: c.Column, From: c.Header, To: c.Field, Score: c.Score}
	}

	var m Mapping
	for _, r := range byCol {
		m = append(m, r)
	}
	sort.Slice(m, func(i, j int) bool { return m[i].Column < m[j].Column })
	return m
}

// Standardize возвращает новую таблицу с переименованными заголовками.
// Строки, порядок колонок и значения не меняются; исходная таблица не трогается.
// Непереименованные заголовки остаются как есть, дубли не устраняются.
func (s *Standardizer) Standardize(t table.Table) (table.Table, Mapping) {
	out := t.Clone()
	m := s.Plan(t.Columns)
	for _, r := range m {
		out.Columns[r.Column] = r.To
	}
	return out, m
}
