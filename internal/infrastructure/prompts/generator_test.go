package prompts

import (
	"context"
	"strings"
	"testing"

	"browserx/internal/adapter/action"
	"browserx/internal/application/port/output"
	"browserx/internal/application/service"
	"browserx/internal/domain/entity"
)

type mockHandler struct {
	kind  entity.ActionKind
	usage string
}

func (m mockHandler) Kind() entity.ActionKind { return m.kind }
func (m mockHandler) Usage() string           { return m.usage }

func (m mockHandler) Handle(context.Context, *output.ActionEnv, entity.Command) (entity.ActionResult, error) {
	return entity.Success(""), nil
}

func TestGenerateSystemPrompt(t *testing.T) {
	registry := service.NewActionRegistry(
		mockHandler{kind: entity.ActionScroll, usage: "scroll usage"},
		mockHandler{kind: entity.ActionClick, usage: "click usage"},
	)

	template := `Test template

{{range .Actions -}}
- {{.Kind}}: {{.Usage}}
{{end}}`

	result, err := GenerateSystemPrompt(template, registry)
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if !strings.Contains(result, "Test template") {
		t.Error("Result should contain base template text")
	}

	click := strings.Index(result, "- click: click usage")
	scroll := strings.Index(result, "- scroll: scroll usage")
	if click < 0 || scroll < 0 {
		t.Fatalf("Result should list both actions, got:\n%s", result)
	}
	if click > scroll {
		t.Error("Actions should be sorted by kind")
	}
}

func TestGenerateSystemPromptInvalidTemplate(t *testing.T) {
	registry := service.NewActionRegistry(mockHandler{kind: entity.ActionClick})

	_, err := GenerateSystemPrompt(`Test {{.InvalidField}}`, registry)
	if err == nil {
		t.Error("Expected error for invalid template, got nil")
	}
}

func TestDefaultSystemPromptListsEveryAction(t *testing.T) {
	handlers := action.Handlers()
	result, err := GenerateSystemPrompt(SystemPrompt, service.NewActionRegistry(handlers...))
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	for _, h := range handlers {
		if !strings.Contains(result, h.Usage()) {
			t.Errorf("System prompt is missing %s", h.Kind())
		}
	}
	if !strings.Contains(result, "{{username}}") {
		t.Error("System prompt should explain the credential placeholders")
	}
}

func TestRenderDecisionPrompt(t *testing.T) {
	data := output.DecisionInput{
		Goal:     "find the contact email",
		Plan:     &entity.Plan{TaskSummary: "open contact page", Strategy: "click Contact"},
		Step:     2,
		MaxSteps: 25,
		URL:      "https://example.com",
		Title:    "Example",
		History: []entity.HistoryEntry{{
			Step:    1,
			Command: entity.Command{Kind: entity.ActionScroll, Direction: "down"},
			Result:  entity.Success("Scrolled down."),
		}},
		Elements:      []entity.PageElement{{BxID: "bx-0", Tag: "a", Role: entity.RoleNotApplicable, Text: "Contact"}},
		LoopDetected:  true,
		PreviousError: "invalid character 'x'",
	}

	result, err := Render("decision", DecisionPrompt, data)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for _, want := range []string{
		`Overall goal: "find the contact email"`,
		`Current strategy: "click Contact"`,
		"Step: 2 of 25",
		"LOOP DETECTED: true",
		"None yet.",
		`1. {"action":"scroll"`,
		`[bx-0] <a> role=n/a`,
		"YOUR PREVIOUS REPLY WAS REJECTED",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Decision prompt should contain %q, got:\n%s", want, result)
		}
	}
}

func TestRenderPlannerPromptSelfCorrection(t *testing.T) {
	first, err := Render("planner", PlannerPrompt, struct{ LastError string }{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(first, "You failed on the last attempt") {
		t.Error("First attempt should not carry a correction")
	}

	retry, err := Render("planner", PlannerPrompt, struct{ LastError string }{LastError: "boom"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(retry, `The error was: "boom"`) {
		t.Errorf("Retry should quote the last error, got:\n%s", retry)
	}
}
