// Package agent отвечает на вопросы по таблицам книги: планировщик (LLM) выдаёт
// шаги-запросы, движок query их исполняет, наблюдения возвращаются планировщику.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"sheet-agent/internal/query"
	"sheet-agent/internal/table"
)

var (
	ErrEmptyQuestion = errors.New("empty question")
	ErrStepLimit     = errors.New("agent step limit reached")
)

const (
	ActionQuery  = "query"
	ActionAnswer = "answer"

	DefaultMaxSteps = 6
	observationRows = 50
)

// Step: один ответ планировщика.
type Step struct {
	Thought string      `json:"thought" jsonschema_description:"Short reasoning for this step"`
	Action  string      `json:"action" jsonschema:"enum=query,enum=answer"`
	Query   query.Query `json:"query" jsonschema_description:"Query to run when action=query"`
	Answer  string      `json:"answer" jsonschema_description:"Final answer when action=answer"`
}

// Trace: выполненный шаг и его наблюдение.
type Trace struct {
	Thought     string       `json:"thought"`
	Query       *query.Query `json:"query,omitempty"`
	Observation string       `json:"observation"`
}

// Transcript: всё, что видит планировщик на очередном шаге.
type Transcript struct {
	Context  string
	Question string
	Steps    []Trace
}

type Planner interface {
	Next(ctx context.Context, tr Transcript) (Step, error)
}

type Answer struct {
	Text  string  `json:"answer"`
	Steps []Trace `json:"steps"`
}

type Agent struct {
	planner  Planner
	maxSteps int
	log      zerolog.Logger
}

func New(p Planner, maxSteps int, log zerolog.Logger) *Agent {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Agent{planner: p, maxSteps: maxSteps, log: log}
}

// Run гоняет цикл "шаг -> запрос -> наблюдение" до ответа или исчерпания шагов.
// Ошибки запросов не прерывают цикл: они уходят планировщику как наблюдение.
func (a *Agent) Run(ctx context.Context, tables []table.Table, prefix, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}

	tr := Transcript{
		Context:  prefix + "\n\n" + Describe(tables),
		Question: question,
	}
	for i := 0; i < a.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return Answer{Steps: tr.Steps}, err
		}
		step, err := a.planner.Next(ctx, tr)
		if err != nil {
			return Answer{Steps: tr.Steps}, fmt.Errorf("planner step %d: %w", i+1, err)
		}

		switch step.Action {
		case ActionAnswer:
			a.log.Debug().Int("steps", len(tr.Steps)).Msg("agent answered")
			return Answer{Text: step.Answer, Steps: tr.Steps}, nil
		case ActionQuery:
			q := step.Query
			obs := ""
			if res, err := query.Execute(tables, q); err != nil {
				obs = "Error: " + err.Error()
			} else {
				obs = res.Text(observationRows)
			}
			a.log.Debug().
				Int("step", i+1).
				Interface("query", q).
				Int("obs_len", len(obs)).
				Msg("agent query")
			tr.Steps = append(tr.Steps, Trace{Thought: step.Thought, Query: &q, Observation: obs})
		default:
			tr.Steps = append(tr.Steps, Trace{
				Thought:     step.Thought,
				Observation: fmt.Sprintf("Error: unknown action %q, use %q or %q", step.Action, ActionQuery, ActionAnswer),
			})
		}
	}
	return Answer{Steps: tr.Steps}, ErrStepLimit
}
