package output

import (
	"time"

	"browserx/internal/domain/entity"
)

type Metrics interface {
	RunStarted()
	RunFinished(outcome string, d time.Duration)
	StepObserved(elements int)
	ActionDispatched(kind entity.ActionKind, status entity.ResultStatus)
	DecisionAttempt(valid bool)
	LoopDetected()
}
