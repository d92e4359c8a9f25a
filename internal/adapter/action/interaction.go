package action

import (
	"context"
	"fmt"
	"sync"
	"time"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

type RequestCredentialsHandler struct{}

func (RequestCredentialsHandler) Kind() entity.ActionKind { return entity.ActionRequestCredential }
func (RequestCredentialsHandler) Usage() string {
	return `{"action": "request_credentials", "reason": "..."} - ask the operator to store a username and password for the current site`
}

func (RequestCredentialsHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	domain := entity.HostOf(env.Browser.CurrentURL())
	if domain == "" {
		return entity.Failure("Cannot request credentials: the current page has no domain."), nil
	}
	if env.Prompter == nil {
		return entity.Failure("No operator is available to provide credentials."), nil
	}

	env.Printf("Action: Requesting credentials for %s", domain)
	winner, err := race(ctx, env.Stop, func(c context.Context) error {
		return env.Prompter.RequestCredentials(c, domain)
	})
	if stopped(env) {
		return entity.ActionResult{}, entity.NewUserStopError("while waiting for credentials")
	}
	if winner == raceInterrupted {
		return entity.ActionResult{}, err
	}
	if err != nil {
		return entity.ActionResult{}, entity.NewCancelledError("credential request for "+domain, err.Error())
	}

	if _, ok, err := lookupCredential(env); err != nil || !ok {
		return entity.Success(fmt.Sprintf("The operator answered, but no credentials are stored for %s.", domain)), nil
	}
	env.Printf("   ... Credentials for %s received.", domain)
	return entity.Success(fmt.Sprintf("Credentials for %s are available. Type them with %s and %s.",
		domain, entity.UsernamePlaceholder, entity.PasswordPlaceholder)), nil
}

type RequestHumanHandler struct{}

func (RequestHumanHandler) Kind() entity.ActionKind { return entity.ActionRequestHuman }
func (RequestHumanHandler) Usage() string {
	return `{"action": "request_human_intervention", "reason": "..."} - hand control to a person (CAPTCHA, manual login) until they are done`
}

func (RequestHumanHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if env.Human == nil {
		return waitForNavigation(ctx, env, cmd.Reason)
	}

	env.Printf("Action: Requesting human intervention. Reason: %s", cmd.Reason)
	winner, err := race(ctx, env.Stop,
		func(c context.Context) error { return env.Human.RequestIntervention(c, cmd.Reason) },
		env.Browser.WaitForNavigation,
	)
	if stopped(env) {
		return entity.ActionResult{}, entity.NewUserStopError("during wait")
	}
	switch {
	case winner == raceInterrupted:
		return entity.ActionResult{}, err
	case winner == 0 && err != nil:
		return entity.ActionResult{}, entity.NewCancelledError("human intervention", err.Error())
	case err != nil:
		return entity.ActionResult{}, fmt.Errorf("wait for navigation: %w", err)
	}

	env.Session.History.Reset()
	env.Printf("Human intervention complete. Resuming agent...")
	return entity.Success("Human intervention complete. Resuming."), nil
}

// maxWait caps a fixed wait; larger requests would overflow time.Duration.
const maxWait = 5 * time.Minute

type WaitHandler struct{}

func (WaitHandler) Kind() entity.ActionKind { return entity.ActionWait }
func (WaitHandler) Usage() string {
	return `{"action": "wait", "reason": "...", "seconds": <optional>} - pause for a number of seconds (at most 300), or without seconds until the page navigates`
}

func (WaitHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if cmd.Seconds <= 0 {
		return waitForNavigation(ctx, env, cmd.Reason)
	}

	d := waitDuration(cmd.Seconds)
	env.Printf("Action: Wait %s. Reason: %s", d, cmd.Reason)
	winner, err := race(ctx, env.Stop, func(c context.Context) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	if stopped(env) {
		return entity.ActionResult{}, entity.NewUserStopError("during wait")
	}
	if winner == raceInterrupted {
		return entity.ActionResult{}, err
	}
	return entity.Success(fmt.Sprintf("Waited %s.", d)), nil
}

func waitDuration(seconds float64) time.Duration {
	if seconds >= maxWait.Seconds() {
		return maxWait
	}
	return time.Duration(seconds * float64(time.Second))
}

func waitForNavigation(ctx context.Context, env *output.ActionEnv, reason string) (entity.ActionResult, error) {
	env.Printf("Action: Wait. Reason: %s", reason)
	env.Printf("Please complete the required action in the browser. Agent is waiting for navigation...")

	winner, err := race(ctx, env.Stop, env.Browser.WaitForNavigation)
	if stopped(env) {
		return entity.ActionResult{}, entity.NewUserStopError("during wait")
	}
	if winner == raceInterrupted {
		return entity.ActionResult{}, err
	}
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("wait for navigation: %w", err)
	}

	env.Session.History.Reset()
	env.Printf("User action detected or navigation completed. Resuming agent...")
	return entity.Success("Navigation detected. Resuming."), nil
}

const raceInterrupted = -1

// race runs fns concurrently and reports the index and error of the first
// one to return. A stop request or ctx cancellation yields raceInterrupted.
// The remaining functions are cancelled and awaited before race returns.
func race(ctx context.Context, stop *entity.StopSignal, fns ...func(context.Context) error) (int, error) {
	rctx, cancel := context.WithCancel(ctx)

	type outcome struct {
		i   int
		err error
	}
	results := make(chan outcome, len(fns))
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- outcome{i: i, err: fn(rctx)}
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	var stopCh <-chan struct{}
	if stop != nil {
		stopCh = stop.Done()
	}

	select {
	case r := <-results:
		return r.i, r.err
	case <-stopCh:
		return raceInterrupted, nil
	case <-ctx.Done():
		return raceInterrupted, ctx.Err()
	}
}

func stopped(env *output.ActionEnv) bool {
	return env.Stop != nil && env.Stop.Stopped()
}
