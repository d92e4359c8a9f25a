package userinteraction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var (
	_ output.CredentialPrompter = (*ConsoleUserInteraction)(nil)
	_ output.HumanIntervention  = (*ConsoleUserInteraction)(nil)
	_ output.LogSink            = (*ConsoleUserInteraction)(nil)
)

// CredentialSaver persists credentials entered by the operator.
type CredentialSaver interface {
	Save(domain string, cred entity.Credential) error
}

// ConsoleUserInteraction prints progress lines in color and answers prompts
// from a line-oriented reader, normally stdin.
type ConsoleUserInteraction struct {
	out   io.Writer
	saver CredentialSaver

	mu    sync.Mutex
	once  sync.Once
	in    io.Reader
	lines chan string
	// abandoned is set when a prompt gave up waiting. Lines read before the
	// next prompt answer the abandoned one and are discarded.
	abandoned bool
	discarded int
}

func NewConsoleUserInteraction(saver CredentialSaver) *ConsoleUserInteraction {
	return NewConsole(os.Stdin, color.Output, saver)
}

func NewConsole(in io.Reader, out io.Writer, saver CredentialSaver) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{in: in, out: out, saver: saver}
}

// readLine returns the next input line. The reader goroutine is started on
// first use and ends at EOF.
func (u *ConsoleUserInteraction) readLine(ctx context.Context) (string, error) {
	u.once.Do(func() {
		u.lines = make(chan string)
		go func() {
			defer close(u.lines)
			scanner := bufio.NewScanner(u.in)
			for scanner.Scan() {
				if u.discard() {
					continue
				}
				u.lines <- scanner.Text()
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-u.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

func (u *ConsoleUserInteraction) discard() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.abandoned {
		u.discarded++
	}
	return u.abandoned
}

func (u *ConsoleUserInteraction) ask(ctx context.Context, question string) (string, error) {
	u.mu.Lock()
	u.abandoned = false
	fmt.Fprintf(u.out, "%s ", color.New(color.FgMagenta, color.Bold).Sprint(question))
	u.mu.Unlock()

	answer, err := u.readLine(ctx)
	if err != nil {
		if ctx.Err() != nil {
			u.mu.Lock()
			u.abandoned = true
			u.mu.Unlock()
		}
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return answer, nil
}

func (u *ConsoleUserInteraction) RequestCredentials(ctx context.Context, domain string) error {
	u.Log(fmt.Sprintf("[USER INPUT REQUIRED] Credentials needed for %s. Leave the username empty to cancel.", domain))

	username, err := u.ask(ctx, "Username:")
	if err != nil {
		return err
	}
	if username == "" {
		return output.ErrPromptRejected
	}
	password, err := u.ask(ctx, "Password:")
	if err != nil {
		return err
	}

	if u.saver == nil {
		return fmt.Errorf("no credential store configured")
	}
	return u.saver.Save(domain, entity.Credential{Username: username, Password: password})
}

func (u *ConsoleUserInteraction) RequestIntervention(ctx context.Context, reason string) error {
	u.Log(fmt.Sprintf("[USER ACTION REQUIRED] %s", reason))
	answer, err := u.ask(ctx, "Press Enter when done (type 'stop' to cancel)...")
	if err != nil {
		return err
	}
	if strings.EqualFold(answer, "stop") {
		return output.ErrPromptRejected
	}
	return nil
}

// Log prints one progress line, colored by what it reports.
func (u *ConsoleUserInteraction) Log(line string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	lineColor(line).Fprintln(u.out, line)
}

func lineColor(line string) *color.Color {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "--- Step"):
		return color.New(color.FgCyan, color.Bold)
	case strings.HasPrefix(trimmed, "Action:"):
		return color.New(color.FgYellow, color.Bold)
	case strings.HasPrefix(trimmed, "GOAL ACHIEVED"), strings.HasPrefix(trimmed, "Agent finished"):
		return color.New(color.FgGreen, color.Bold)
	case strings.HasPrefix(trimmed, "[USER"):
		return color.New(color.FgMagenta, color.Bold)
	case strings.HasPrefix(trimmed, "Agent Thought"), strings.HasPrefix(trimmed, "Agent is thinking"):
		return color.New(color.FgBlue)
	case strings.Contains(trimmed, "failed"), strings.Contains(trimmed, "Failure"),
		strings.HasPrefix(trimmed, "Loop detected"), strings.HasPrefix(trimmed, "Invalid reply"):
		return color.New(color.FgRed)
	case strings.HasPrefix(trimmed, "..."):
		return color.New(color.Faint)
	default:
		return color.New(color.Reset)
	}
}
