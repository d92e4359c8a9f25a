package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
	"browserx/internal/infrastructure/prompts"
)

var _ output.TextGenerator = (*TextGenerator)(nil)

const (
	DefaultChunkSize    = 12000
	DefaultChunkOverlap = 200
)

// TextGenerator backs the summarize and compose_text actions. Long inputs are
// summarized chunk by chunk and the partial summaries summarized again.
type TextGenerator struct {
	llm      output.LLMPort
	splitter textsplitter.TextSplitter
	logger   output.LoggerPort
}

func NewTextGenerator(llm output.LLMPort, chunkSize int, logger output.LoggerPort) *TextGenerator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := DefaultChunkOverlap
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &TextGenerator{
		llm: llm,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(overlap),
		),
		logger: logger,
	}
}

func (g *TextGenerator) Summarize(ctx context.Context, goal, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("nothing to summarize")
	}

	chunks, err := g.splitter.SplitText(text)
	if err != nil {
		return "", fmt.Errorf("failed to split text: %w", err)
	}
	if len(chunks) <= 1 {
		return g.summarizeOnce(ctx, goal, text)
	}

	if g.logger != nil {
		g.logger.Debug("Summarizing in chunks", "chunks", len(chunks), "chars", len(text))
	}
	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		s, err := g.summarizeOnce(ctx, goal, chunk)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, s)
	}
	return g.summarizeOnce(ctx, goal, strings.Join(partials, "\n\n"))
}

func (g *TextGenerator) summarizeOnce(ctx context.Context, goal, text string) (string, error) {
	system, err := prompts.Render("summarize", prompts.SummarizePrompt, struct{ Goal string }{goal})
	if err != nil {
		return "", err
	}
	return g.complete(ctx, system, "Summarize this text:\n\n"+text)
}

func (g *TextGenerator) Compose(ctx context.Context, goal, description string) (string, error) {
	system, err := prompts.Render("compose", prompts.ComposePrompt, struct{ Goal string }{goal})
	if err != nil {
		return "", err
	}
	return g.complete(ctx, system, description)
}

func (g *TextGenerator) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := g.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			entity.SystemMessage(system),
			entity.UserMessage(user),
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(resp.Message.Content)
	if out == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return out, nil
}
