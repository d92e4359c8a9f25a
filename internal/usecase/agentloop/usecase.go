package agentloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"browserx/internal/application/port/input"
	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var _ input.AgentRunner = (*UseCase)(nil)

type Config struct {
	MaxSteps            int
	HistoryLimit        int
	MaxDecisionAttempts int
	ResultLimit         int
	StepDelay           time.Duration
	ObserveRetries      int
	ObserveRetryDelay   time.Duration
	DiagnosticPath      string
	DiagnosticTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxSteps:            25,
		HistoryLimit:        10,
		MaxDecisionAttempts: 3,
		ResultLimit:         500,
		StepDelay:           time.Second,
		ObserveRetries:      2,
		ObserveRetryDelay:   500 * time.Millisecond,
		DiagnosticPath:      "error-screenshot.png",
		DiagnosticTimeout:   10 * time.Second,
	}
}

// Deps are the collaborators of the loop. Launcher, Oracle, Actions and
// Logger are required.
type Deps struct {
	Launcher    output.BrowserLauncher
	Annotator   output.Annotator
	Oracle      output.Oracle
	Actions     output.ActionRegistry
	Credentials output.CredentialStore
	TextGen     output.TextGenerator
	Planner     output.Planner
	Search      output.WebSearcher
	Scraper     output.PageScraper
	Metrics     output.Metrics
	Logger      output.LoggerPort
}

type UseCase struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *UseCase {
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &UseCase{cfg: cfg, deps: deps}
}

// Run drives one goal until the oracle finishes it, the step budget runs
// out or the run is stopped. The browser is closed before Run returns.
func (uc *UseCase) Run(ctx context.Context, req input.RunRequest) (result *input.RunResult, err error) {
	stop := req.Stop
	if stop == nil {
		stop = entity.NewStopSignal()
	}
	sink := req.Sink
	if sink == nil {
		sink = output.LogSinkFunc(func(string) {})
	}

	runCtx, cancel := context.WithCancel(ctx)
	var watch sync.WaitGroup
	watch.Add(1)
	go func() {
		defer watch.Done()
		select {
		case <-stop.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()
	defer func() {
		cancel()
		watch.Wait()
	}()

	session := entity.NewSession(req.Goal, req.Plan, uc.cfg.MaxSteps, uc.cfg.HistoryLimit)
	logger := uc.deps.Logger.WithFields(map[string]any{
		"session": session.ID,
		"goal":    req.Goal,
	})

	uc.deps.Metrics.RunStarted()
	defer func() {
		uc.deps.Metrics.RunFinished(outcome(err), time.Since(session.StartedAt))
	}()

	sink.Log(fmt.Sprintf("Launching browser for goal: %q", req.Goal))
	browser, err := uc.deps.Launcher.Launch(runCtx)
	if err != nil {
		logger.Error("Browser launch failed", "error", err)
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	defer func() {
		if err != nil {
			sink.Log(fmt.Sprintf("Agent failure: %v", err))
			uc.saveDiagnostic(ctx, browser, sink, logger)
		}
		sink.Log("Closing browser...")
		if cerr := browser.Close(); cerr != nil {
			logger.Warn("Browser close failed", "error", cerr)
		}
	}()

	if req.Plan != nil && req.Plan.TargetURL != "" {
		sink.Log(fmt.Sprintf("Navigating to start URL: %s", req.Plan.TargetURL))
		if nerr := browser.Navigate(runCtx, req.Plan.TargetURL); nerr != nil {
			logger.Warn("Start navigation failed", "url", req.Plan.TargetURL, "error", nerr)
			sink.Log("...Start page did not load, continuing.")
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if uc.cfg.StepDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(uc.cfg.StepDelay), 1)
	}

	var prevSignature string
	for session.Step < session.MaxSteps {
		if stop.Stopped() {
			return nil, entity.NewUserStopError("")
		}
		session.Step++
		sink.Log(fmt.Sprintf("--- Step %d / %d ---", session.Step, session.MaxSteps))

		if werr := limiter.Wait(runCtx); werr != nil {
			return nil, uc.interrupted(ctx, stop, werr)
		}

		state, oerr := uc.observe(runCtx, browser, sink, logger)
		if oerr != nil {
			return nil, uc.interrupted(ctx, stop, oerr)
		}
		uc.deps.Metrics.StepObserved(state.Index.Len())

		signature := state.Signature()
		loopDetected := prevSignature != "" && signature == prevSignature
		prevSignature = signature
		if loopDetected {
			uc.deps.Metrics.LoopDetected()
			sink.Log("Loop detected: the page did not change after the last action.")
			logger.Info("Loop detected", "step", session.Step, "url", state.URL)
		}

		cmd, derr := uc.decide(runCtx, uc.decisionInput(session, state, loopDetected), sink, logger)
		if derr != nil {
			if stop.Stopped() || runCtx.Err() != nil {
				return nil, uc.interrupted(ctx, stop, derr)
			}
			logger.Error("Decision failed", "step", session.Step, "error", derr)
			return nil, derr
		}
		if cmd.Thought != "" && cmd.Kind != entity.ActionThink {
			sink.Log(fmt.Sprintf("Agent Thought: %s", cmd.Thought))
		}
		if stop.Stopped() {
			return nil, entity.NewUserStopError("")
		}

		env := &output.ActionEnv{
			Browser:     browser,
			Session:     session,
			Index:       state.Index,
			Stop:        stop,
			Sink:        sink,
			Logger:      logger,
			Credentials: uc.deps.Credentials,
			Prompter:    req.Credentials,
			Human:       req.Human,
			TextGen:     uc.deps.TextGen,
			Planner:     uc.deps.Planner,
			Search:      uc.deps.Search,
			Scraper:     uc.deps.Scraper,
		}

		epoch := session.History.Epoch()
		res, aerr := uc.deps.Actions.Dispatch(runCtx, env, cmd)
		if aerr != nil {
			logger.Error("Action aborted the run", "action", cmd.Kind, "error", aerr)
			return nil, aerr
		}
		if stop.Stopped() {
			return nil, entity.NewUserStopError("")
		}
		if cerr := runCtx.Err(); cerr != nil {
			return nil, uc.interrupted(ctx, stop, cerr)
		}
		uc.deps.Metrics.ActionDispatched(cmd.Kind, res.Status)

		if res.Finished {
			logger.Info("Goal finished", "steps", session.Step)
			sink.Log("Agent finished successfully!")
			return &input.RunResult{Summary: res.Message, SessionID: session.ID, Steps: session.Step}, nil
		}

		if res.IsError() {
			sink.Log(fmt.Sprintf("   ... Action failed: %s", entity.Truncate(res.Message, 200)))
		}
		res = res.Truncated(uc.cfg.ResultLimit)
		session.LastResult = &res
		if session.History.Epoch() == epoch {
			session.History.Add(entity.HistoryEntry{Step: session.Step, Command: cmd, Result: res})
		}
	}

	logger.Warn("Step budget exhausted", "maxSteps", session.MaxSteps)
	return nil, entity.NewBudgetExhaustedError(session.MaxSteps)
}

// interrupted classifies an error caused by run context cancellation.
func (uc *UseCase) interrupted(parent context.Context, stop *entity.StopSignal, err error) error {
	if stop.Stopped() {
		return entity.NewUserStopError("")
	}
	if parent.Err() != nil {
		return fmt.Errorf("run aborted: %w", parent.Err())
	}
	return err
}

func (uc *UseCase) observe(ctx context.Context, browser output.BrowserPort, sink output.LogSink, logger output.LoggerPort) (*entity.PageState, error) {
	var idx *entity.ElementIndex
	for attempt := 0; ; attempt++ {
		var err error
		idx, err = browser.ExtractElements(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Element extraction failed", "error", err)
			idx = entity.NewElementIndex(0, nil)
		}
		url := browser.CurrentURL()
		if idx.Len() > 0 || url == "about:blank" || attempt >= uc.cfg.ObserveRetries {
			break
		}

		sink.Log("Page has no labeled elements yet, observing again...")
		t := time.NewTimer(uc.cfg.ObserveRetryDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}

	state := &entity.PageState{
		URL:   browser.CurrentURL(),
		Title: browser.Title(),
		Index: idx,
	}

	shot, err := browser.Screenshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Screenshot failed", "error", err)
		return state, nil
	}
	state.Screenshot = shot
	if uc.deps.Annotator != nil && idx.Len() > 0 {
		annotated, aerr := uc.deps.Annotator.Annotate(shot, idx.Elements)
		if aerr != nil {
			logger.Warn("Screenshot annotation failed", "error", aerr)
		} else {
			state.Screenshot = annotated
		}
	}
	return state, nil
}

func (uc *UseCase) decisionInput(session *entity.Session, state *entity.PageState, loopDetected bool) output.DecisionInput {
	in := output.DecisionInput{
		Goal:         session.Goal,
		Plan:         session.Plan,
		Step:         session.Step,
		MaxSteps:     session.MaxSteps,
		History:      session.History.Entries(),
		LastResult:   session.LastResult,
		URL:          state.URL,
		Title:        state.Title,
		Elements:     state.Index.Elements,
		Screenshot:   state.Screenshot,
		LoopDetected: loopDetected,
	}
	if step, ok := session.CurrentStep(); ok {
		in.PlanStep = step
	}
	if uc.deps.Credentials != nil {
		_, ok, err := uc.deps.Credentials.Lookup(state.URL)
		if err != nil {
			uc.deps.Logger.Warn("Credential lookup failed", "error", err)
		}
		in.HasCredentials = ok
	}
	return in
}

// decide asks the oracle for the next command. Malformed replies and failed
// calls are retried with the error fed back; an unknown action kind is
// returned immediately.
func (uc *UseCase) decide(ctx context.Context, in output.DecisionInput, sink output.LogSink, logger output.LoggerPort) (entity.Command, error) {
	attempts := uc.cfg.MaxDecisionAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr != nil {
			in.PreviousError = lastErr.Error()
		}

		reply, err := uc.deps.Oracle.Decide(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return entity.Command{}, ctx.Err()
			}
			lastErr = fmt.Errorf("oracle call failed: %w", err)
			uc.deps.Metrics.DecisionAttempt(false)
			sink.Log(fmt.Sprintf("API call failed for this step. Will retry. Error: %v", err))
			logger.Warn("Oracle call failed", "attempt", attempt, "error", err)
			continue
		}

		cmd, err := entity.ParseCommand(reply)
		if err != nil {
			if !errors.Is(err, entity.ErrMalformedCommand) {
				uc.deps.Metrics.DecisionAttempt(false)
				return entity.Command{}, err
			}
			lastErr = err
			uc.deps.Metrics.DecisionAttempt(false)
			sink.Log(fmt.Sprintf("Invalid reply from the model (attempt %d/%d): %v", attempt, attempts, err))
			logger.Warn("Malformed oracle reply", "attempt", attempt, "error", err, "reply", entity.Truncate(reply, 300))
			continue
		}

		uc.deps.Metrics.DecisionAttempt(true)
		logger.Debug("Decision", "step", in.Step, "command", cmd.Brief())
		return cmd, nil
	}

	return entity.Command{}, entity.NewContractViolationError(attempts, lastErr)
}

func (uc *UseCase) saveDiagnostic(parent context.Context, browser output.BrowserPort, sink output.LogSink, logger output.LoggerPort) {
	if uc.cfg.DiagnosticPath == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), uc.cfg.DiagnosticTimeout)
	defer cancel()

	if err := browser.SaveScreenshot(ctx, uc.cfg.DiagnosticPath); err != nil {
		logger.Warn("Diagnostic screenshot failed", "error", err)
		sink.Log(fmt.Sprintf("Could not take screenshot: %v", err))
		return
	}
	sink.Log(fmt.Sprintf("Screenshot of failure saved to %s", uc.cfg.DiagnosticPath))
}

func outcome(err error) string {
	if err == nil {
		return "finished"
	}
	if kind, ok := entity.KindOf(err); ok {
		return kind.String()
	}
	return "error"
}

type nopMetrics struct{}

func (nopMetrics) RunStarted() {}
func (nopMetrics) RunFinished(string, time.Duration) {}
func (nopMetrics) StepObserved(int) {}
func (nopMetrics) ActionDispatched(entity.ActionKind, entity.ResultStatus) {}
func (nopMetrics) DecisionAttempt(bool) {}
func (nopMetrics) LoopDetected() {}
