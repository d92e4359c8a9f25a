package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
	"browserx/internal/infrastructure/prompts"
)

var _ output.Planner = (*Planner)(nil)

const DefaultPlanAttempts = 2

var errInvalidPlan = errors.New("invalid plan schema: the generated JSON is missing or has invalid 'searchTerm', 'taskSummary', or 'strategy' keys")

// Planner turns a goal into a search keyword, a strategy and an optional list
// of sub-steps. The target URL is always a search for the keyword.
type Planner struct {
	llm      output.LLMPort
	attempts int
	logger   output.LoggerPort
	sink     output.LogSink
}

func NewPlanner(llm output.LLMPort, logger output.LoggerPort) *Planner {
	return &Planner{llm: llm, attempts: DefaultPlanAttempts, logger: logger}
}

// WithSink returns a copy reporting attempts to sink.
func (p *Planner) WithSink(sink output.LogSink) *Planner {
	cp := *p
	cp.sink = sink
	return &cp
}

func (p *Planner) CreatePlan(ctx context.Context, goal string) (*entity.Plan, error) {
	return p.plan(ctx, goal, fmt.Sprintf("Here is my goal: %q. Please create a plan.", goal))
}

func (p *Planner) Replan(ctx context.Context, goal, reason string) (*entity.Plan, error) {
	return p.plan(ctx, goal, fmt.Sprintf("Original goal: %q. Re-plan context: %q", goal, reason))
}

func (p *Planner) plan(ctx context.Context, goal, request string) (*entity.Plan, error) {
	var lastErr error
	for i := 1; i <= p.attempts; i++ {
		p.logf("Attempt %d/%d: Identifying primary search keyword for: %q...", i, p.attempts, goal)

		plan, err := p.attempt(ctx, request, lastErr)
		if err == nil {
			return plan, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		p.logf("Attempt %d failed. Error: %v", i, err)
		if p.logger != nil {
			p.logger.Warn("Plan attempt failed", "attempt", i, "error", err)
		}
	}
	return nil, fmt.Errorf("failed to generate a valid plan after %d attempts. Last error: %w", p.attempts, lastErr)
}

func (p *Planner) attempt(ctx context.Context, request string, lastErr error) (*entity.Plan, error) {
	data := struct{ LastError string }{}
	if lastErr != nil {
		data.LastError = lastErr.Error()
	}
	system, err := prompts.Render("planner", prompts.PlannerPrompt, data)
	if err != nil {
		return nil, err
	}

	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			entity.SystemMessage(system),
			entity.UserMessage(request),
		},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}

	return parsePlan(resp.Message.Content)
}

func parsePlan(reply string) (*entity.Plan, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var plan entity.Plan
	if err := json.Unmarshal([]byte(reply), &plan); err != nil {
		return nil, err
	}
	if !plan.Valid() {
		return nil, errInvalidPlan
	}

	plan.TargetURL = SearchURL(plan.SearchTerm)
	return &plan, nil
}

func SearchURL(term string) string {
	return "https://www.google.com/search?" + url.Values{"q": {term}}.Encode()
}

func (p *Planner) logf(format string, args ...any) {
	if p.sink != nil {
		p.sink.Log(fmt.Sprintf(format, args...))
	}
}
