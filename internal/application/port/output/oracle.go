package output

import (
	"context"

	"browserx/internal/domain/entity"
)

// DecisionInput is everything the oracle sees for one decision.
type DecisionInput struct {
	Goal           string
	Plan           *entity.Plan
	PlanStep       string
	Step           int
	MaxSteps       int
	History        []entity.HistoryEntry
	LastResult     *entity.ActionResult
	URL            string
	Title          string
	Elements       []entity.PageElement
	Screenshot     *entity.Screenshot
	HasCredentials bool
	LoopDetected   bool
	PreviousError  string
}

// Oracle returns the raw reply of the decision model. Decoding and retries
// belong to the caller.
type Oracle interface {
	Decide(ctx context.Context, in DecisionInput) (string, error)
}

type Planner interface {
	CreatePlan(ctx context.Context, goal string) (*entity.Plan, error)
	Replan(ctx context.Context, goal, reason string) (*entity.Plan, error)
}

type TextGenerator interface {
	Summarize(ctx context.Context, goal, text string) (string, error)
	Compose(ctx context.Context, goal, description string) (string, error)
}
