package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browserx/internal/infrastructure/env"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRunRequiresGoal(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestServeRejectsArgs(t *testing.T) {
	_, err := execute(t, "serve", "extra")
	require.Error(t, err)
}

func TestPlanNeedsAPIKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("BROWSERX_LLM_API_KEY", "")

	_, err := execute(t, "--env-dir", t.TempDir(), "plan", "find", "the", "weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROWSERX_LLM_API_KEY or OPENROUTER_API_KEY")
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("BROWSERX_AGENT_MAX_STEPS", "40")
	t.Setenv("BROWSERX_AGENT_STEP_DELAY", "3s")

	flags := &rootFlags{envDir: t.TempDir()}
	var cfg *env.Config
	cmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = load(cmd, flags, map[string]string{
				"max-steps":  env.AgentMaxSteps,
				"step-delay": env.AgentStepDelay,
			})
			return err
		},
	}
	cmd.Flags().Bool("headless", false, "")
	cmd.Flags().Int("max-steps", 0, "")
	cmd.Flags().Duration("step-delay", 0, "")
	cmd.SetArgs([]string{"--headless", "--max-steps", "7"})
	require.NoError(t, cmd.Execute())

	require.NotNil(t, cfg)
	assert.True(t, cfg.GetBool(env.BrowserHeadless))
	assert.Equal(t, 7, cfg.GetInt(env.AgentMaxSteps))
	// unset flags leave the environment in charge
	assert.Equal(t, 3*time.Second, cfg.GetDuration(env.AgentStepDelay))
}
