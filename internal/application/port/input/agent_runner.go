package input

import (
	"context"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

type RunRequest struct {
	Goal        string
	Plan        *entity.Plan
	Sink        output.LogSink
	Stop        *entity.StopSignal
	Credentials output.CredentialPrompter
	Human       output.HumanIntervention
}

type RunResult struct {
	Summary   string
	SessionID string
	Steps     int
}

// AgentRunner drives one goal to completion. Errors are *entity.AgentError
// for every classified termination.
type AgentRunner interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}
