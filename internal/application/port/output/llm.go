package output

import (
	"context"

	"browserx/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Temperature float32
	MaxTokens   int
	// JSONMode asks the model for a single JSON object.
	JSONMode bool
}

type ChatResponse struct {
	Message      entity.Message
	FinishReason string
	TotalTokens  int
}
