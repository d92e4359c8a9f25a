package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var _ output.LLMPort = (*OpenRouterAdapter)(nil)

var ErrNoChoices = errors.New("no choices in response")

type OpenRouterAdapter struct {
	client     *openai.Client
	model      string
	logger     output.LoggerPort
	maxRetries int
	retryDelay time.Duration
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// AppName and Referer identify the app to OpenRouter.
	AppName string
	Referer string
	Timeout time.Duration
	// MaxRetries bounds the retries of rate-limited requests.
	MaxRetries     int
	RetryBaseDelay time.Duration
	Logger         output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:         apiKey,
		Model:          model,
		BaseURL:        "https://openrouter.ai/api/v1",
		AppName:        "browserx",
		Timeout:        120 * time.Second,
		MaxRetries:     4,
		RetryBaseDelay: 3 * time.Second,
	}
}

type loggingTransport struct {
	base    http.RoundTripper
	logger  output.LoggerPort
	headers map[string]string
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}

	if t.logger != nil {
		var bodyBytes []byte
		if req.Body != nil {
			bodyBytes, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		var requestData map[string]any
		if len(bodyBytes) > 0 {
			_ = json.Unmarshal(bodyBytes, &requestData)
		}

		t.logger.Debug("HTTP Request",
			"method", req.Method,
			"url", req.URL.String(),
			"model", requestData["model"],
			"bytes", len(bodyBytes),
		)
	}

	resp, err := t.base.RoundTrip(req)

	if t.logger != nil && resp != nil {
		t.logger.Debug("HTTP Response",
			"status", resp.Status,
			"statusCode", resp.StatusCode,
		)
	}

	return resp, err
}

func NewOpenRouterAdapter(cfg Config) *OpenRouterAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	headers := map[string]string{}
	if cfg.AppName != "" {
		headers["X-Title"] = cfg.AppName
	}
	if cfg.Referer != "" {
		headers["HTTP-Referer"] = cfg.Referer
	}
	config.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &loggingTransport{
			base:    http.DefaultTransport,
			logger:  cfg.Logger,
			headers: headers,
		},
	}

	return &OpenRouterAdapter{
		client:     openai.NewClientWithConfig(config),
		model:      cfg.Model,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryBaseDelay,
	}
}

func (a *OpenRouterAdapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	oreq := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		oreq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = a.client.CreateChatCompletion(ctx, oreq)
		if err == nil || !rateLimited(err) || attempt >= a.maxRetries {
			break
		}

		delay := a.retryDelay * time.Duration(1<<attempt)
		if a.logger != nil {
			a.logger.Warn("Rate limited, backing off", "attempt", attempt+1, "delay", delay)
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	return &output.ChatResponse{
		Message:      entity.AssistantMessage(choice.Message.Content),
		FinishReason: string(choice.FinishReason),
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func rateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "429")
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		if len(msg.Images) == 0 {
			result = append(result, openai.ChatCompletionMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
			continue
		}

		parts := []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: msg.Content},
		}
		for _, img := range msg.Images {
			mime := img.MimeType
			if mime == "" {
				mime = "image/jpeg"
			}
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:         string(msg.Role),
			MultiContent: parts,
		})
	}
	return result
}
