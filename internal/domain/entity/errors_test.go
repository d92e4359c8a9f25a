package entity

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAgentErrorClassification(t *testing.T) {
	stop := NewUserStopError("during wait")
	if stop.Error() != "Agent stopped by user during wait." {
		t.Errorf("unexpected stop message %q", stop.Error())
	}
	if !IsUserStop(fmt.Errorf("run: %w", stop)) {
		t.Error("wrapped user stop not recognized")
	}

	cancel := NewCancelledError("credential request", "closed dialog")
	if !strings.Contains(cancel.Error(), CancelledMarker) {
		t.Errorf("cancel message %q lacks marker", cancel.Error())
	}
	if !IsCancelled(cancel) || IsUserStop(cancel) {
		t.Error("cancel misclassified")
	}

	if !IsFatal(NewBudgetExhaustedError(25)) {
		t.Error("budget exhaustion must be fatal")
	}
	if IsFatal(NewActionFailedError("click failed", errors.New("boom"))) {
		t.Error("action failure must not be fatal")
	}
	if IsFatal(errors.New("plain")) {
		t.Error("untagged errors are not fatal")
	}

	cv := NewContractViolationError(3, errors.New("missing action"))
	if !strings.Contains(cv.Error(), "after 3 attempts. Last error: missing action") {
		t.Errorf("unexpected contract violation message %q", cv.Error())
	}
	if !errors.Is(cv, cv.Err) {
		t.Error("contract violation must unwrap to the last error")
	}
}

func TestErrorKindString(t *testing.T) {
	if ErrorKindUserStop.String() != "user_stop" {
		t.Errorf("got %s", ErrorKindUserStop)
	}
	if ErrorKind(99).String() != "unknown" {
		t.Errorf("got %s", ErrorKind(99))
	}
}
