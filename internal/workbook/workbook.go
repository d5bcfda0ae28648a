// Package workbook загружает книгу: парсинг листов, стандартизация колонок,
// префикс для агента, хранение в сессии и ответы на вопросы.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"sheet-agent/internal/agent"
	"sheet-agent/internal/fileio"
	"sheet-agent/internal/session"
	"sheet-agent/internal/standardize"
	"sheet-agent/internal/table"
)

var (
	ErrNotFound      = errors.New("workbook not found")
	ErrAgentDisabled = errors.New("agent is not configured")
)

type Sheet struct {
	Index   int                 `json:"index"`
	Name    string              `json:"name"`
	Table   table.Table         `json:"-"`
	Mapping standardize.Mapping `json:"renames"`
}

type Workbook struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Prefix   string  `json:"prefix"`
	Sheets   []Sheet `json:"sheets"`
}

// Tables: стандартизованные таблицы в порядке листов (df0, df1, ...).
func (w Workbook) Tables() []table.Table {
	out := make([]table.Table, len(w.Sheets))
	for i, s := range w.Sheets {
		out[i] = s.Table
	}
	return out
}

type Service struct {
	std   *standardize.Standardizer
	store *session.Store[Workbook]
	agent *agent.Agent // nil: агент не настроен
	log   zerolog.Logger
}

func NewService(std *standardize.Standardizer, store *session.Store[Workbook], ag *agent.Agent, log zerolog.Logger) *Service {
	return &Service{std: std, store: store, agent: ag, log: log}
}

// Load читает книгу, стандартизует каждый лист и кладёт результат в сессию.
func (s *Service) Load(r io.Reader, filename string) (Workbook, error) {
	tables, err := fileio.ReadWorkbook(r, filename)
	if err != nil {
		return Workbook{}, err
	}

	wb := Workbook{Filename: filename, Sheets: make([]Sheet, 0, len(tables))}
	names := make([]string, 0, len(tables))
	for i, t := range tables {
		st, m := s.std.Standardize(t)
		wb.Sheets = append(wb.Sheets, Sheet{Index: i, Name: t.Name, Table: st, Mapping: m})
		names = append(names, t.Name)

		s.log.Debug().
			Str("file", filename).
			Str("sheet", t.Name).
			Int("columns", t.Width()).
			Int("rows", t.Len()).
			Interface("renames", m.AsMap()).
			Msg("sheet standardized")
	}
	wb.Prefix = agent.Prefix(names)
	// id хранится ключом сессии, в саму запись не пишется
	wb.ID = s.store.Put(wb)

	s.log.Info().Str("id", wb.ID).Str("file", filename).Int("sheets", len(wb.Sheets)).Msg("workbook loaded")
	return wb, nil
}

func (s *Service) Get(id string) (Workbook, error) {
	wb, ok := s.store.Get(id)
	if !ok {
		return Workbook{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	wb.ID = id
	return wb, nil
}

func (s *Service) Delete(id string) { s.store.Delete(id) }

// Ask отвечает на вопрос по таблицам книги.
func (s *Service) Ask(ctx context.Context, id, question string) (agent.Answer, error) {
	if s.agent == nil {
		return agent.Answer{}, ErrAgentDisabled
	}
	wb, err := s.Get(id)
	if err != nil {
		return agent.Answer{}, err
	}
	s.store.Touch(id)
	return s.agent.Run(ctx, wb.Tables(), wb.Prefix, question)
}
