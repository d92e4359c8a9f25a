package userinteraction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var (
	_ output.CredentialPrompter = (*Broker)(nil)
	_ output.HumanIntervention  = (*Broker)(nil)
)

var ErrPromptNotFound = errors.New("prompt not found")

type PromptKind string

const (
	PromptCredentials PromptKind = "credentials"
	PromptHuman       PromptKind = "human_intervention"
)

// Prompt is a pending request to the operator.
type Prompt struct {
	ID        string     `json:"id"`
	Kind      PromptKind `json:"kind"`
	Domain    string     `json:"domain,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type pending struct {
	prompt Prompt
	done   chan error
}

// Broker parks a run on a prompt until a resolver answers it through
// Resolve or Reject, typically over HTTP.
type Broker struct {
	mu      sync.Mutex
	pending map[string]*pending
	saver   CredentialSaver
	notify  output.LogSink
}

func NewBroker(saver CredentialSaver, notify output.LogSink) *Broker {
	return &Broker{
		pending: make(map[string]*pending),
		saver:   saver,
		notify:  notify,
	}
}

func (b *Broker) RequestCredentials(ctx context.Context, domain string) error {
	return b.wait(ctx, Prompt{Kind: PromptCredentials, Domain: domain})
}

func (b *Broker) RequestIntervention(ctx context.Context, reason string) error {
	return b.wait(ctx, Prompt{Kind: PromptHuman, Reason: reason})
}

func (b *Broker) wait(ctx context.Context, prompt Prompt) error {
	prompt.ID = uuid.NewString()
	prompt.CreatedAt = time.Now()
	p := &pending{prompt: prompt, done: make(chan error, 1)}

	b.mu.Lock()
	b.pending[prompt.ID] = p
	b.mu.Unlock()
	defer b.remove(prompt.ID)

	if b.notify != nil {
		switch prompt.Kind {
		case PromptCredentials:
			b.notify.Log(fmt.Sprintf("[USER INPUT REQUIRED] Credentials needed for %s (prompt %s)", prompt.Domain, prompt.ID))
		default:
			b.notify.Log(fmt.Sprintf("[USER ACTION REQUIRED] %s (prompt %s)", prompt.Reason, prompt.ID))
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-p.done:
		return err
	}
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Broker) take(id string) (*pending, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[id]
	if !ok {
		return nil, ErrPromptNotFound
	}
	delete(b.pending, id)
	return p, nil
}

// Pending lists open prompts, oldest first.
func (b *Broker) Pending() []Prompt {
	b.mu.Lock()
	out := make([]Prompt, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p.prompt)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Resolve answers a prompt. Credential prompts require cred, which is
// stored before the waiting run resumes.
func (b *Broker) Resolve(id string, cred *entity.Credential) error {
	b.mu.Lock()
	p, ok := b.pending[id]
	b.mu.Unlock()
	if !ok {
		return ErrPromptNotFound
	}

	if p.prompt.Kind == PromptCredentials {
		if cred == nil {
			return fmt.Errorf("credentials required for %s", p.prompt.Domain)
		}
		if b.saver == nil {
			return fmt.Errorf("no credential store configured")
		}
		if err := b.saver.Save(p.prompt.Domain, *cred); err != nil {
			return err
		}
	}

	p, err := b.take(id)
	if err != nil {
		return err
	}
	p.done <- nil
	return nil
}

func (b *Broker) Reject(id string) error {
	p, err := b.take(id)
	if err != nil {
		return err
	}
	p.done <- output.ErrPromptRejected
	return nil
}
