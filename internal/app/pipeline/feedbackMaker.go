package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/welltold/storygo/internal/pkg/cmdapp"
	"github.com/welltold/storygo/internal/pkg/record"
)

// Prompts provides the analysis prompt by key
type Prompts interface {
	Get(name string) (string, error)
}

// ClaudeFeedbackMaker builds the feedback using the Anthropic API
type ClaudeFeedbackMaker struct {
	apiKey  string
	model   anthropic.Model
	prompts Prompts
}

//NewClaudeFeedbackMaker creates feedback maker from config
func NewClaudeFeedbackMaker(prompts Prompts) (*ClaudeFeedbackMaker, error) {
	key := cmdapp.Config.GetString("anthropic.key")
	if key == "" {
		return nil, errors.New("No anthropic.key setting provided")
	}
	if prompts == nil {
		return nil, errors.New("No prompts provided")
	}
	model := anthropic.Model(cmdapp.Config.GetString("anthropic.model"))
	if model == "" {
		model = anthropic.Model("claude-sonnet-4-5-20250929")
	}
	return &ClaudeFeedbackMaker{apiKey: key, model: model, prompts: prompts}, nil
}

type feedbackToolInput struct {
	Structure string `json:"structure"`
	Creative  string `json:"creative"`
}

const feedbackToolName = "save_feedback"

func feedbackTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        feedbackToolName,
		Description: anthropic.String("Save the storytelling feedback"),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type: "object",
			Properties: map[string]interface{}{
				"structure": map[string]interface{}{
					"type":        "string",
					"description": "Feedback on the structure of the story",
				},
				"creative": map[string]interface{}{
					"type":        "string",
					"description": "Creative suggestions to make the story land better",
				},
			},
			Required: []string{"structure", "creative"},
		},
	}
}

// Make asks the model for structured feedback on the transcript
func (m *ClaudeFeedbackMaker) Make(ctx context.Context, rec *record.Record) (*record.Feedback, error) {
	prompt, err := m.prompts.Get("feedback")
	if err != nil {
		return nil, errors.Wrap(err, "Can't get feedback prompt")
	}

	client := anthropic.NewClient(option.WithAPIKey(m.apiKey))
	toolDef := feedbackTool()
	tool := anthropic.ToolUnionParamOfTool(toolDef.InputSchema, toolDef.Name)
	tool.OfTool.Description = toolDef.Description

	params := anthropic.MessageNewParams{
		Model:     m.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: prompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(storyText(rec))),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: anthropic.ToolChoiceParamOfTool(feedbackToolName),
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "Can't get feedback")
	}
	if len(resp.Content) == 0 {
		return nil, errors.New("Empty feedback response")
	}
	input, err := parseFeedbackToolUse(resp.Content)
	if err != nil {
		return nil, err
	}
	return &record.Feedback{Structure: input.Structure, Creative: input.Creative}, nil
}

func parseFeedbackToolUse(content []anthropic.ContentBlockUnion) (*feedbackToolInput, error) {
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			var input feedbackToolInput
			inputBytes, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, errors.Wrap(err, "Can't marshal tool input")
			}
			if err := json.Unmarshal(inputBytes, &input); err != nil {
				return nil, errors.Wrap(err, "Can't parse tool input")
			}
			return &input, nil
		}
	}
	return nil, errors.New("No tool use in feedback response")
}

func storyText(rec *record.Record) string {
	res := ""
	if rec.Title != "" {
		res += "Title: " + rec.Title + "\n"
	}
	if rec.ContextBox != "" {
		res += "Background: " + rec.ContextBox + "\n"
	}
	return res + "Transcript:\n" + rec.Transcript.Text
}

// FakeFeedbackMaker returns canned feedback after a delay.
// Used for local runs without API keys
type FakeFeedbackMaker struct {
	Delay time.Duration
}

// Make fakes the work
func (m *FakeFeedbackMaker) Make(ctx context.Context, rec *record.Record) (*record.Feedback, error) {
	cmdapp.Log.Infof("Faking feedback for %s", rec.ID)
	select {
	case <-time.After(m.Delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &record.Feedback{Structure: "A clear beginning would help the listener settle in.",
		Creative: "Try slowing down at the turning point of the story."}, nil
}
