package output

import (
	"context"
	"fmt"

	"browserx/internal/domain/entity"
)

// ActionEnv is what a handler may touch while dispatching one command.
type ActionEnv struct {
	Browser BrowserPort
	Session *entity.Session
	Index   *entity.ElementIndex
	Stop    *entity.StopSignal
	Sink    LogSink
	Logger  LoggerPort

	Credentials CredentialStore
	Prompter    CredentialPrompter
	Human       HumanIntervention

	TextGen TextGenerator
	Planner Planner
	Search  WebSearcher
	Scraper PageScraper
}

// Printf writes a progress line to the run's sink.
func (e *ActionEnv) Printf(format string, args ...any) {
	if e.Sink != nil {
		e.Sink.Log(fmt.Sprintf(format, args...))
	}
}

type ActionHandler interface {
	Kind() entity.ActionKind
	// Usage is the line describing the action to the oracle.
	Usage() string
	Handle(ctx context.Context, env *ActionEnv, cmd entity.Command) (entity.ActionResult, error)
}

type ActionRegistry interface {
	Register(h ActionHandler)
	Get(kind entity.ActionKind) (ActionHandler, bool)
	All() []ActionHandler
	Dispatch(ctx context.Context, env *ActionEnv, cmd entity.Command) (entity.ActionResult, error)
}
