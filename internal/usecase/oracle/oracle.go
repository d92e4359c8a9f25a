package oracle

import (
	"context"
	"fmt"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
	"browserx/internal/infrastructure/prompts"
)

var _ output.Oracle = (*Oracle)(nil)

// Oracle asks the vision model for the next browser action.
type Oracle struct {
	llm         output.LLMPort
	system      string
	temperature float32
	logger      output.LoggerPort
}

func NewOracle(llm output.LLMPort, registry output.ActionRegistry, temperature float32, logger output.LoggerPort) (*Oracle, error) {
	system, err := prompts.GenerateSystemPrompt(prompts.SystemPrompt, registry)
	if err != nil {
		return nil, fmt.Errorf("failed to render system prompt: %w", err)
	}
	return &Oracle{llm: llm, system: system, temperature: temperature, logger: logger}, nil
}

func (o *Oracle) Decide(ctx context.Context, in output.DecisionInput) (string, error) {
	user, err := prompts.Render("decision", prompts.DecisionPrompt, in)
	if err != nil {
		return "", fmt.Errorf("failed to render decision prompt: %w", err)
	}

	var images []entity.Image
	if shot := in.Screenshot; shot != nil && len(shot.Data) > 0 {
		img := entity.Image{Data: shot.Data}
		if shot.Format != "" {
			img.MimeType = "image/" + shot.Format
		}
		images = append(images, img)
	}

	resp, err := o.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			entity.SystemMessage(o.system),
			entity.UserMessage(user, images...),
		},
		Temperature: o.temperature,
		JSONMode:    true,
	})
	if err != nil {
		return "", err
	}

	if o.logger != nil {
		o.logger.Debug("Oracle replied", "step", in.Step, "tokens", resp.TotalTokens, "reply", resp.Message.Content)
	}
	return resp.Message.Content, nil
}
