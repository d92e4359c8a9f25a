package action

import (
	"context"
	"fmt"
	"strings"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

type ReplanHandler struct{}

func (ReplanHandler) Kind() entity.ActionKind { return entity.ActionReplan }
func (ReplanHandler) Usage() string {
	return `{"action": "replan", "reason": "..."} - discard the current plan when it cannot work and start over from a new one`
}

func (ReplanHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if env.Planner == nil {
		return entity.ActionResult{}, fmt.Errorf("replan: %w", errNotConfigured)
	}

	env.Printf("Agent requested a re-plan. Reason: %s", cmd.Reason)
	plan, err := env.Planner.Replan(ctx, env.Session.Goal, cmd.Reason)
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("replan: %w", err)
	}
	env.Session.ReplacePlan(plan)
	env.Printf("New plan received! New summary: %q", plan.TaskSummary)

	if plan.TargetURL != "" {
		env.Printf("Navigating to new start URL: %s", plan.TargetURL)
		if err := env.Browser.Navigate(ctx, plan.TargetURL); err != nil {
			return entity.ActionResult{}, fmt.Errorf("navigate to new start URL: %w", err)
		}
	}
	return entity.Success(fmt.Sprintf("Re-planned. New task: %s. Strategy: %s", plan.TaskSummary, plan.Strategy)), nil
}

type FinishStepHandler struct{}

func (FinishStepHandler) Kind() entity.ActionKind { return entity.ActionFinishStep }
func (FinishStepHandler) Usage() string {
	return `{"action": "finish_step", "summary": "..."} - mark the current plan step as done and move to the next one`
}

func (FinishStepHandler) Handle(_ context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	done := env.Session.PlanStep + 1
	env.Session.AdvancePlan()
	env.Printf("Step %d complete. %s", done, cmd.Summary)

	next, ok := env.Session.CurrentStep()
	if !ok {
		return entity.Success(fmt.Sprintf("Step %d complete. All plan steps are complete; finish when the goal is met.", done)), nil
	}
	return entity.Success(fmt.Sprintf("Step %d complete. Next step: %s", done, next)), nil
}

type FinishHandler struct{}

func (FinishHandler) Kind() entity.ActionKind { return entity.ActionFinish }
func (FinishHandler) Usage() string {
	return `{"action": "finish", "summary": "Goal is complete. [your summary]"} - the goal is achieved; the summary is the answer`
}

func (FinishHandler) Handle(_ context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	summary := cmd.Summary
	if strings.TrimSpace(summary) == "" {
		summary = "Goal is complete."
	}
	env.Printf("GOAL ACHIEVED! Summary: %s", summary)
	return entity.Finished(summary), nil
}

type ThinkHandler struct{}

func (ThinkHandler) Kind() entity.ActionKind { return entity.ActionThink }
func (ThinkHandler) Usage() string {
	return `{"action": "think", "thought": "..."} - reason about the page without acting`
}

func (ThinkHandler) Handle(_ context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	env.Printf("Agent is thinking: %s", cmd.Thought)
	return entity.Success("Thought noted. Choose an action next."), nil
}

// Handlers returns one handler for every action kind.
func Handlers() []output.ActionHandler {
	return []output.ActionHandler{
		NavigateHandler{},
		ClickHandler{},
		TypeHandler{},
		PressEnterHandler{},
		PressEscapeHandler{},
		ScrollHandler{},
		ScrapeTextHandler{},
		SummarizeHandler{},
		ComposeTextHandler{},
		RequestCredentialsHandler{},
		RequestHumanHandler{},
		WaitHandler{},
		TavilySearchHandler{},
		FirecrawlScrapeHandler{},
		ReplanHandler{},
		FinishStepHandler{},
		FinishHandler{},
		ThinkHandler{},
	}
}
