package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type ActionKind string

const (
	ActionNavigate          ActionKind = "navigate"
	ActionClick             ActionKind = "click"
	ActionType              ActionKind = "type"
	ActionPressEnter        ActionKind = "press_enter"
	ActionPressEscape       ActionKind = "press_escape"
	ActionScroll            ActionKind = "scroll"
	ActionScrapeText        ActionKind = "scrape_text"
	ActionSummarize         ActionKind = "summarize"
	ActionComposeText       ActionKind = "compose_text"
	ActionRequestCredential ActionKind = "request_credentials"
	ActionRequestHuman      ActionKind = "request_human_intervention"
	ActionWait              ActionKind = "wait"
	ActionTavilySearch      ActionKind = "tavily_search"
	ActionFirecrawlScrape   ActionKind = "firecrawl_scrape"
	ActionReplan            ActionKind = "replan"
	ActionFinishStep        ActionKind = "finish_step"
	ActionFinish            ActionKind = "finish"
	ActionThink             ActionKind = "think"
)

var knownActions = map[ActionKind]bool{
	ActionNavigate:          true,
	ActionClick:             true,
	ActionType:              true,
	ActionPressEnter:        true,
	ActionPressEscape:       true,
	ActionScroll:            true,
	ActionScrapeText:        true,
	ActionSummarize:         true,
	ActionComposeText:       true,
	ActionRequestCredential: true,
	ActionRequestHuman:      true,
	ActionWait:              true,
	ActionTavilySearch:      true,
	ActionFirecrawlScrape:   true,
	ActionReplan:            true,
	ActionFinishStep:        true,
	ActionFinish:            true,
	ActionThink:             true,
}

func (k ActionKind) String() string {
	return string(k)
}

func (k ActionKind) Known() bool {
	return knownActions[k]
}

// ErrMalformedCommand marks an oracle reply that can be retried with a
// correction hint. Unknown action kinds are not malformed: they are fatal.
var ErrMalformedCommand = errors.New("malformed command")

// Command is one decision of the oracle. Kind selects which of the optional
// fields are meaningful.
type Command struct {
	Kind        ActionKind `json:"action"`
	URL         string     `json:"url,omitempty"`
	ElementID   string     `json:"bx_id,omitempty"`
	Text        string     `json:"text,omitempty"`
	Direction   string     `json:"direction,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Query       string     `json:"query,omitempty"`
	Description string     `json:"description,omitempty"`
	Thought     string     `json:"thought,omitempty"`
	Seconds     float64    `json:"seconds,omitempty"`
	X           *float64   `json:"x,omitempty"`
	Y           *float64   `json:"y,omitempty"`
}

type rawCommand struct {
	Action      string   `json:"action"`
	Command     string   `json:"command"`
	URL         string   `json:"url"`
	BxID        string   `json:"bx_id"`
	ElementID   string   `json:"element_id"`
	Selector    string   `json:"selector"`
	Text        string   `json:"text"`
	Direction   string   `json:"direction"`
	Reason      string   `json:"reason"`
	Summary     string   `json:"summary"`
	Query       string   `json:"query"`
	Description string   `json:"description"`
	Thought     string   `json:"thought"`
	Seconds     float64  `json:"seconds"`
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
}

var selectorIDRe = regexp.MustCompile(`\[data-(?:bx|agent)-id=(?:'|")?(.*?)(?:'|")?\]`)

// NormalizeElementID reduces a selector such as [data-bx-id='bx-3'] to bx-3.
func NormalizeElementID(id string) string {
	id = strings.TrimSpace(id)
	if m := selectorIDRe.FindStringSubmatch(id); len(m) > 1 {
		return m[1]
	}
	return id
}

// ParseCommand decodes an oracle reply. Replies that cannot be decoded or
// lack required fields wrap ErrMalformedCommand; a reply naming an action
// kind that does not exist yields a contract-violation AgentError.
func ParseCommand(reply string) (Command, error) {
	body := strings.TrimSpace(reply)
	body = strings.TrimPrefix(body, "```json")
	body = strings.Trim(body, "`")
	body = strings.TrimSpace(body)
	if body == "" {
		return Command{}, fmt.Errorf("%w: empty reply", ErrMalformedCommand)
	}

	var raw rawCommand
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Command{}, fmt.Errorf("%w: reply is not a valid JSON object: %v", ErrMalformedCommand, err)
	}

	action := raw.Action
	if action == "" {
		action = raw.Command
	}
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return Command{}, fmt.Errorf(`%w: reply is missing the "action" field`, ErrMalformedCommand)
	}

	kind := ActionKind(action)
	if !kind.Known() {
		return Command{}, NewUnknownActionError(action)
	}

	elementID := raw.BxID
	if elementID == "" {
		elementID = raw.ElementID
	}
	if elementID == "" {
		elementID = raw.Selector
	}

	cmd := Command{
		Kind:        kind,
		URL:         strings.TrimSpace(raw.URL),
		ElementID:   NormalizeElementID(elementID),
		Text:        raw.Text,
		Direction:   strings.ToLower(strings.TrimSpace(raw.Direction)),
		Reason:      raw.Reason,
		Summary:     raw.Summary,
		Query:       raw.Query,
		Description: raw.Description,
		Thought:     raw.Thought,
		Seconds:     raw.Seconds,
		X:           raw.X,
		Y:           raw.Y,
	}

	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Validate checks the kind-specific required fields.
func (c Command) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: action %q requires the %q field", ErrMalformedCommand, c.Kind, field)
	}

	switch c.Kind {
	case ActionNavigate, ActionFirecrawlScrape:
		if c.URL == "" {
			return missing("url")
		}
	case ActionClick:
		if c.ElementID == "" && (c.X == nil || c.Y == nil) {
			return missing("bx_id")
		}
	case ActionType:
		if c.ElementID == "" {
			return missing("bx_id")
		}
	case ActionScrapeText:
		if c.ElementID == "" {
			return missing("bx_id")
		}
	case ActionComposeText:
		if c.ElementID == "" {
			return missing("bx_id")
		}
		if c.Description == "" && c.Text == "" {
			return missing("description")
		}
	case ActionScroll:
		if c.Direction != "up" && c.Direction != "down" {
			return fmt.Errorf(`%w: scroll direction must be "up" or "down", got %q`, ErrMalformedCommand, c.Direction)
		}
	case ActionTavilySearch:
		if c.Query == "" {
			return missing("query")
		}
	case ActionWait:
		if c.Seconds < 0 {
			return fmt.Errorf("%w: wait seconds must not be negative", ErrMalformedCommand)
		}
	}
	return nil
}

// Brief renders the command for history and log lines.
func (c Command) Brief() string {
	data, err := json.Marshal(c)
	if err != nil {
		return string(c.Kind)
	}
	return string(data)
}
