package entity

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the structured form of a goal produced by the planner.
type Plan struct {
	SearchTerm  string   `json:"searchTerm"`
	TaskSummary string   `json:"taskSummary"`
	Strategy    string   `json:"strategy"`
	TargetURL   string   `json:"targetURL,omitempty"`
	Steps       []string `json:"steps,omitempty"`
}

func (p *Plan) Valid() bool {
	return p != nil && p.SearchTerm != "" && p.TaskSummary != "" && p.Strategy != ""
}

// HistoryEntry records one dispatched command and its outcome.
type HistoryEntry struct {
	Step    int          `json:"step"`
	Command Command      `json:"command"`
	Result  ActionResult `json:"result"`
}

// History keeps the most recent entries, oldest first.
type History struct {
	limit   int
	entries []HistoryEntry
	epoch   int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{limit: limit, entries: make([]HistoryEntry, 0, limit)}
}

func (h *History) Add(e HistoryEntry) {
	if len(h.entries) == h.limit {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.limit-1]
	}
	h.entries = append(h.entries, e)
}

func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Len() int { return len(h.entries) }

func (h *History) Reset() {
	h.entries = h.entries[:0]
	h.epoch++
}

// Epoch changes on every Reset.
func (h *History) Epoch() int { return h.epoch }

// Session is the state of one run. It is owned by the loop controller.
type Session struct {
	ID         string
	Goal       string
	Plan       *Plan
	PlanStep   int
	Step       int
	MaxSteps   int
	History    *History
	LastResult *ActionResult
	Scraped    string
	StartedAt  time.Time
}

func NewSession(goal string, plan *Plan, maxSteps, historyLimit int) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Goal:      goal,
		Plan:      plan,
		MaxSteps:  maxSteps,
		History:   NewHistory(historyLimit),
		StartedAt: time.Now(),
	}
}

// CurrentStep returns the active sub-task of a multi-step plan.
func (s *Session) CurrentStep() (string, bool) {
	if s.Plan == nil || s.PlanStep >= len(s.Plan.Steps) {
		return "", false
	}
	return s.Plan.Steps[s.PlanStep], true
}

// AdvancePlan moves to the next sub-task and clears short-term history.
func (s *Session) AdvancePlan() {
	if s.Plan != nil && s.PlanStep < len(s.Plan.Steps) {
		s.PlanStep++
	}
	s.History.Reset()
}

// ReplacePlan installs a new plan and clears short-term history.
func (s *Session) ReplacePlan(p *Plan) {
	s.Plan = p
	s.PlanStep = 0
	s.History.Reset()
}
