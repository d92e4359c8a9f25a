package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browserx/internal/domain/entity"
)

func TestPrometheus_RunLifecycle(t *testing.T) {
	m := New()

	m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsActive))

	m.StepObserved(12)
	m.StepObserved(0)
	m.ActionDispatched(entity.ActionClick, entity.StatusSuccess)
	m.ActionDispatched(entity.ActionClick, entity.StatusError)
	m.ActionDispatched(entity.ActionClick, entity.StatusSuccess)
	m.DecisionAttempt(true)
	m.DecisionAttempt(false)
	m.LoopDetected()
	m.RunFinished("finished", 42*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsFinished.WithLabelValues("finished")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.steps))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("click", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("click", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loopsDetected))
}

func TestPrometheus_Handler(t *testing.T) {
	m := New()
	m.RunStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "browserx_runs_started_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
