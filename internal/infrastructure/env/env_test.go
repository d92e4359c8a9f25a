package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := Load(Options{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Empty(t, cfg.Loaded)
	assert.Equal(t, 25, cfg.GetInt(AgentMaxSteps))
	assert.Equal(t, 10, cfg.GetInt(AgentHistoryLimit))
	assert.Equal(t, time.Second, cfg.GetDuration(AgentStepDelay))
	assert.Equal(t, "error-screenshot.png", cfg.Get(AgentDiagnosticPath))
	assert.False(t, cfg.GetBool(BrowserHeadless))
	assert.InDelta(t, 0.2, cfg.GetFloat(LLMTemperature), 1e-9)
	assert.Equal(t, "fallback", cfg.GetWithDefault(ToolsTavilyAPIKey, "fallback"))
}

func TestLoad_PrefixedEnvOverrides(t *testing.T) {
	t.Setenv("BROWSERX_AGENT_MAX_STEPS", "7")
	t.Setenv("BROWSERX_BROWSER_HEADLESS", "true")
	t.Setenv("BROWSERX_AGENT_STEP_DELAY", "250ms")

	cfg, err := Load(Options{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.GetInt(AgentMaxSteps))
	assert.True(t, cfg.GetBool(BrowserHeadless))
	assert.Equal(t, 250*time.Millisecond, cfg.GetDuration(AgentStepDelay))
}

func TestLoad_LegacyNames(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-legacy")
	t.Setenv("CHROME_PATH", "/usr/bin/chromium")

	cfg, err := Load(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "sk-legacy", cfg.Get(LLMAPIKey))
	assert.Equal(t, "/usr/bin/chromium", cfg.Get(BrowserBin))

	t.Setenv("BROWSERX_LLM_API_KEY", "sk-new")
	assert.Equal(t, "sk-new", cfg.Get(LLMAPIKey), "prefixed name wins")
}

func TestLoad_EnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TAVILY_API_KEY=tvly-base\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.dev"), []byte("TAVILY_API_KEY=tvly-dev\n"), 0o600))
	t.Setenv("APP_ENV", "")
	t.Setenv("TAVILY_API_KEY", "")

	cfg, err := Load(Options{Dir: dir})
	require.NoError(t, err)
	assert.Len(t, cfg.Loaded, 2)
	assert.Equal(t, "tvly-dev", cfg.Get(ToolsTavilyAPIKey))
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "browserx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  max_steps: 40\nserver:\n  addr: \":9090\"\n"), 0o600))

	cfg, err := Load(Options{Dir: dir, ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.GetInt(AgentMaxSteps))
	assert.Equal(t, ":9090", cfg.Get(ServerAddr))

	_, err = Load(Options{Dir: dir, ConfigFile: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestRequire(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("BROWSERX_LLM_API_KEY", "")
	cfg, err := Load(Options{Dir: t.TempDir()})
	require.NoError(t, err)

	err = cfg.Require(LLMAPIKey, LLMModel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROWSERX_LLM_API_KEY or OPENROUTER_API_KEY")
	assert.NotContains(t, err.Error(), "LLM_MODEL")

	assert.Panics(t, func() { cfg.MustGet(LLMAPIKey) })
}
