package action

import (
	"context"
	"fmt"
	"strings"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

type NavigateHandler struct{}

func (NavigateHandler) Kind() entity.ActionKind { return entity.ActionNavigate }
func (NavigateHandler) Usage() string {
	return `{"action": "navigate", "url": "<absolute URL>"} - open a URL in the current tab`
}

func (NavigateHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	url := normalizeURL(cmd.URL)
	env.Printf("Action: Navigating to %s", url)
	if err := env.Browser.Navigate(ctx, url); err != nil {
		return entity.ActionResult{}, fmt.Errorf("navigate to %s: %w", url, err)
	}
	return entity.Success(fmt.Sprintf("Navigated to %s", env.Browser.CurrentURL())), nil
}

type ClickHandler struct{}

func (ClickHandler) Kind() entity.ActionKind { return entity.ActionClick }
func (ClickHandler) Usage() string {
	return `{"action": "click", "bx_id": "<id>"} - click a labeled element; {"action": "click", "x": <x>, "y": <y>, "reason": "..."} clicks viewport coordinates when no label fits`
}

func (ClickHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if cmd.ElementID == "" {
		if cmd.X == nil || cmd.Y == nil {
			return entity.Failure("Click command is missing both bx_id and coordinates."), nil
		}
		x, y := *cmd.X, *cmd.Y
		env.Printf("Action: Clicking coordinates (X:%.0f, Y:%.0f)", x, y)
		if cmd.Reason != "" {
			env.Printf("   Reason: %s", cmd.Reason)
		}
		if err := env.Browser.ClickAt(ctx, x, y); err != nil {
			return entity.ActionResult{}, fmt.Errorf("click at (%.0f, %.0f): %w", x, y, err)
		}
		return entity.Success(fmt.Sprintf("Clicked at (%.0f, %.0f).", x, y)), nil
	}

	if _, ok := env.Index.Lookup(cmd.ElementID); !ok {
		return entity.Failure(notFound(cmd.ElementID)), nil
	}

	env.Printf("Action: Clicking element %s", cmd.ElementID)
	outcome, err := env.Browser.Click(ctx, env.Index, cmd.ElementID)
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("click %s: %w", cmd.ElementID, err)
	}
	if outcome.NewTab {
		env.Printf("   ... New tab opened, switched to %s", outcome.URL)
		return entity.Success(fmt.Sprintf("Clicked element %s. A new tab opened and is now active: %s", cmd.ElementID, outcome.URL)), nil
	}
	return entity.Success(fmt.Sprintf("Clicked element %s.", cmd.ElementID)), nil
}

type TypeHandler struct{}

func (TypeHandler) Kind() entity.ActionKind { return entity.ActionType }
func (TypeHandler) Usage() string {
	return `{"action": "type", "bx_id": "<id>", "text": "..."} - replace the value of an input; use {{username}} and {{password}} to type stored credentials`
}

func (TypeHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	if _, ok := env.Index.Lookup(cmd.ElementID); !ok {
		return entity.Failure(notFound(cmd.ElementID)), nil
	}

	text := cmd.Text
	secret := entity.HasCredentialPlaceholder(text)
	if secret {
		cred, ok, err := lookupCredential(env)
		if err != nil {
			return entity.ActionResult{}, err
		}
		if !ok {
			return entity.Failure(fmt.Sprintf("No stored credentials for %s. Use request_credentials first.",
				entity.HostOf(env.Browser.CurrentURL()))), nil
		}
		text = cred.Fill(text)
		env.Printf("Action: Typing credentials into element %s", cmd.ElementID)
	} else {
		env.Printf("Action: Typing %q into element %s", cmd.Text, cmd.ElementID)
	}

	if err := env.Browser.Type(ctx, env.Index, cmd.ElementID, text); err != nil {
		return entity.ActionResult{}, fmt.Errorf("type into %s: %w", cmd.ElementID, err)
	}
	if secret {
		return entity.Success(fmt.Sprintf("Typed credentials into element %s.", cmd.ElementID)), nil
	}
	return entity.Success(fmt.Sprintf("Typed %q into element %s.", cmd.Text, cmd.ElementID)), nil
}

type PressEnterHandler struct{}

func (PressEnterHandler) Kind() entity.ActionKind { return entity.ActionPressEnter }
func (PressEnterHandler) Usage() string {
	return `{"action": "press_enter"} - press Enter in the focused element`
}

func (PressEnterHandler) Handle(ctx context.Context, env *output.ActionEnv, _ entity.Command) (entity.ActionResult, error) {
	env.Printf("Action: Pressing 'Enter' key.")
	if err := env.Browser.PressEnter(ctx); err != nil {
		return entity.ActionResult{}, fmt.Errorf("press enter: %w", err)
	}
	return entity.Success("Pressed Enter."), nil
}

type PressEscapeHandler struct{}

func (PressEscapeHandler) Kind() entity.ActionKind { return entity.ActionPressEscape }
func (PressEscapeHandler) Usage() string {
	return `{"action": "press_escape"} - press Escape, e.g. to close a dialog`
}

func (PressEscapeHandler) Handle(ctx context.Context, env *output.ActionEnv, _ entity.Command) (entity.ActionResult, error) {
	env.Printf("Action: Pressing 'Escape' key.")
	if err := env.Browser.PressEscape(ctx); err != nil {
		return entity.ActionResult{}, fmt.Errorf("press escape: %w", err)
	}
	return entity.Success("Pressed Escape."), nil
}

type ScrollHandler struct{}

func (ScrollHandler) Kind() entity.ActionKind { return entity.ActionScroll }
func (ScrollHandler) Usage() string {
	return `{"action": "scroll", "direction": "up" | "down"} - scroll the page by most of a screen`
}

func (ScrollHandler) Handle(ctx context.Context, env *output.ActionEnv, cmd entity.Command) (entity.ActionResult, error) {
	env.Printf("Action: Scrolling %s.", cmd.Direction)
	if err := env.Browser.Scroll(ctx, cmd.Direction); err != nil {
		return entity.ActionResult{}, fmt.Errorf("scroll %s: %w", cmd.Direction, err)
	}
	return entity.Success(fmt.Sprintf("Scrolled %s.", cmd.Direction)), nil
}

func notFound(bxID string) string {
	return fmt.Sprintf("Element %s was not found on the current page. Use an id from the latest element list.", bxID)
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") || strings.HasPrefix(raw, "about:") {
		return raw
	}
	return "https://" + raw
}

func lookupCredential(env *output.ActionEnv) (entity.Credential, bool, error) {
	if env.Credentials == nil {
		return entity.Credential{}, false, nil
	}
	cred, ok, err := env.Credentials.Lookup(env.Browser.CurrentURL())
	if err != nil {
		return entity.Credential{}, false, fmt.Errorf("credential lookup: %w", err)
	}
	return cred, ok, nil
}
