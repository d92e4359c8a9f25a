package userinteraction

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	goleak.VerifyTestMain(m)
}

type memSaver struct {
	mu    sync.Mutex
	saved map[string]entity.Credential
}

func (s *memSaver) Save(domain string, cred entity.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = map[string]entity.Credential{}
	}
	s.saved[domain] = cred
	return nil
}

type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) Log(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func waitPending(t *testing.T, b *Broker) Prompt {
	t.Helper()
	var p []Prompt
	require.Eventually(t, func() bool {
		p = b.Pending()
		return len(p) == 1
	}, 2*time.Second, 5*time.Millisecond)
	return p[0]
}

func TestBroker_ResolveCredentials(t *testing.T) {
	saver := &memSaver{}
	log := &lineLog{}
	b := NewBroker(saver, log)

	done := make(chan error, 1)
	go func() { done <- b.RequestCredentials(context.Background(), "example.com") }()

	p := waitPending(t, b)
	assert.Equal(t, PromptCredentials, p.Kind)
	assert.Equal(t, "example.com", p.Domain)
	assert.NotEmpty(t, p.ID)

	assert.Error(t, b.Resolve(p.ID, nil), "credential prompt needs credentials")
	require.NoError(t, b.Resolve(p.ID, &entity.Credential{Username: "alice", Password: "pw"}))

	require.NoError(t, <-done)
	assert.Equal(t, "alice", saver.saved["example.com"].Username)
	assert.Empty(t, b.Pending())
	require.Len(t, log.lines, 1)
	assert.Contains(t, log.lines[0], p.ID)
}

func TestBroker_Reject(t *testing.T) {
	b := NewBroker(&memSaver{}, nil)

	done := make(chan error, 1)
	go func() { done <- b.RequestIntervention(context.Background(), "solve the CAPTCHA") }()

	p := waitPending(t, b)
	assert.Equal(t, PromptHuman, p.Kind)
	assert.Equal(t, "solve the CAPTCHA", p.Reason)

	require.NoError(t, b.Reject(p.ID))
	assert.ErrorIs(t, <-done, output.ErrPromptRejected)
	assert.ErrorIs(t, b.Reject(p.ID), ErrPromptNotFound)
}

func TestBroker_ResolveHuman(t *testing.T) {
	b := NewBroker(nil, nil)

	done := make(chan error, 1)
	go func() { done <- b.RequestIntervention(context.Background(), "log in") }()

	p := waitPending(t, b)
	require.NoError(t, b.Resolve(p.ID, nil))
	assert.NoError(t, <-done)
}

func TestBroker_ContextCancel(t *testing.T) {
	b := NewBroker(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.RequestCredentials(ctx, "example.com") }()

	p := waitPending(t, b)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, b.Pending())
	assert.ErrorIs(t, b.Resolve(p.ID, &entity.Credential{Username: "a"}), ErrPromptNotFound)
}

func TestConsole_RequestCredentials(t *testing.T) {
	saver := &memSaver{}
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("alice\ns3cret\n"), &out, saver)

	require.NoError(t, c.RequestCredentials(context.Background(), "example.com"))
	assert.Equal(t, entity.Credential{Username: "alice", Password: "s3cret"}, saver.saved["example.com"])
	assert.Contains(t, out.String(), "Credentials needed for example.com")
	assert.NotContains(t, out.String(), "s3cret")
}

func TestConsole_EmptyUsernameRejects(t *testing.T) {
	c := NewConsole(strings.NewReader("\n"), &bytes.Buffer{}, &memSaver{})
	assert.ErrorIs(t, c.RequestCredentials(context.Background(), "example.com"), output.ErrPromptRejected)
}

func TestConsole_RequestIntervention(t *testing.T) {
	c := NewConsole(strings.NewReader("\nstop\n"), &bytes.Buffer{}, nil)
	require.NoError(t, c.RequestIntervention(context.Background(), "solve the CAPTCHA"))
	assert.ErrorIs(t, c.RequestIntervention(context.Background(), "again"), output.ErrPromptRejected)

	_, err := c.readLine(context.Background())
	assert.Error(t, err, "input is exhausted")
}

func TestConsole_AbandonedPromptDoesNotAnswerTheNext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	saver := &memSaver{}
	c := NewConsole(pr, &bytes.Buffer{}, saver)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.RequestIntervention(ctx, "solve the CAPTCHA"), context.DeadlineExceeded)

	// the operator confirms after the page already moved on
	_, err := io.WriteString(pw, "\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.discarded == 1
	}, 2*time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- c.RequestCredentials(context.Background(), "example.com") }()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return !c.abandoned
	}, 2*time.Second, 5*time.Millisecond)

	_, err = io.WriteString(pw, "alice\nsecret\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("credentials prompt did not return")
	}
	assert.Equal(t, entity.Credential{Username: "alice", Password: "secret"}, saver.saved["example.com"])
}

func TestConsole_Log(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader(""), &out, nil)
	c.Log("--- Step 1 / 25 ---")
	c.Log("Action: Clicking element bx-3")
	assert.Equal(t, "--- Step 1 / 25 ---\nAction: Clicking element bx-3\n", out.String())
}
