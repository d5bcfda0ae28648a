package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const systemPrompt = `You answer questions about spreadsheet tables by querying them.
Each turn return ONE JSON step:
- action "query": fill "query" (table index N of dfN, filters, group_by, aggregate, measure, sort_by, desc, limit, select); leave "answer" empty.
- action "answer": put the final answer for the user in "answer".
Column names must be taken from the table descriptions exactly. Aggregate "none" returns rows.
After each query you get an Observation with the result or an error; fix the query on errors.
Answer as soon as the observations are enough.`

func generateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var stepSchema = openai.ResponseFormatJSONSchemaJSONSchemaParam{
	Name:        "agent_step",
	Description: openai.String("Next agent step: run a table query or give the final answer"),
	Schema:      generateSchema[Step](),
	Strict:      openai.Bool(true),
}

// OpenAIPlanner: планировщик на chat completions со строгой JSON-схемой ответа.
type OpenAIPlanner struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIPlanner; extra: дополнительные опции клиента (например, base URL).
func NewOpenAIPlanner(apiKey, model string, extra ...option.RequestOption) *OpenAIPlanner {
	opts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, extra...)
	cl := openai.NewClient(opts...)
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &OpenAIPlanner{client: &cl, model: model, timeout: 60 * time.Second}
}

func (p *OpenAIPlanner) Next(ctx context.Context, tr Transcript) (Step, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msgs, err := messages(tr)
	if err != nil {
		return Step{}, err
	}

	chat, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: stepSchema},
		},
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return Step{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Step{}, errors.New("openai: empty choices")
	}

	var step Step
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &step); err != nil {
		return Step{}, fmt.Errorf("unmarshal model output: %w", err)
	}
	return step, nil
}

// messages: system (инструкции + описание таблиц), вопрос,
// затем пары "шаг ассистента / наблюдение".
func messages(tr Transcript) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt + "\n\n" + tr.Context),
		openai.UserMessage(tr.Question),
	}
	for _, s := range tr.Steps {
		step := Step{Thought: s.Thought, Action: ActionQuery}
		if s.Query != nil {
			step.Query = *s.Query
		}
		b, err := json.Marshal(step)
		if err != nil {
			return nil, err
		}
		out = append(out,
			openai.AssistantMessage(string(b)),
			openai.UserMessage("Observation:\n"+s.Observation),
		)
	}
	return out, nil
}
