package prompts

import (
	_ "embed"
)

//go:embed system.txt
var SystemPrompt string

//go:embed decision.txt
var DecisionPrompt string

//go:embed planner.txt
var PlannerPrompt string

//go:embed summarize.txt
var SummarizePrompt string

//go:embed compose.txt
var ComposePrompt string
