package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"browserx/internal/application/port/output"
)

var _ output.ConfigPort = (*Config)(nil)

const EnvPrefix = "BROWSERX"

// Keys. Each is also read from BROWSERX_<KEY> with dots replaced by underscores.
const (
	AgentMaxSteps         = "agent.max_steps"
	AgentHistoryLimit     = "agent.history_limit"
	AgentDecisionAttempts = "agent.decision_attempts"
	AgentResultLimit      = "agent.result_limit"
	AgentStepDelay        = "agent.step_delay"
	AgentObserveRetries   = "agent.observe_retries"
	AgentDiagnosticPath   = "agent.diagnostic_path"

	BrowserHeadless          = "browser.headless"
	BrowserBin               = "browser.bin"
	BrowserUserDataDir       = "browser.user_data_dir"
	BrowserNoSandbox         = "browser.no_sandbox"
	BrowserSlowMotion        = "browser.slow_motion"
	BrowserTimeout           = "browser.timeout"
	BrowserNavigationTimeout = "browser.navigation_timeout"
	BrowserViewportWidth     = "browser.viewport_width"
	BrowserViewportHeight    = "browser.viewport_height"

	LLMAPIKey      = "llm.api_key"
	LLMModel       = "llm.model"
	LLMBaseURL     = "llm.base_url"
	LLMTemperature = "llm.temperature"
	LLMTimeout     = "llm.timeout"
	LLMMaxRetries  = "llm.max_retries"
	LLMChunkSize   = "llm.chunk_size"

	ToolsTavilyAPIKey    = "tools.tavily_api_key"
	ToolsFirecrawlAPIKey = "tools.firecrawl_api_key"
	ToolsTimeout         = "tools.timeout"

	CredentialsPath = "credentials.path"

	LogLevel  = "log.level"
	LogFormat = "log.format"
	LogDir    = "log.dir"

	ServerAddr = "server.addr"
)

// legacy env names kept from earlier releases
var legacy = map[string]string{
	LLMAPIKey:            "OPENROUTER_API_KEY",
	LLMModel:             "OPENROUTER_MODEL_NAME",
	ToolsTavilyAPIKey:    "TAVILY_API_KEY",
	ToolsFirecrawlAPIKey: "FIRECRAWL_API_KEY",
	BrowserBin:           "CHROME_PATH",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(AgentMaxSteps, 25)
	v.SetDefault(AgentHistoryLimit, 10)
	v.SetDefault(AgentDecisionAttempts, 3)
	v.SetDefault(AgentResultLimit, 500)
	v.SetDefault(AgentStepDelay, time.Second)
	v.SetDefault(AgentObserveRetries, 2)
	v.SetDefault(AgentDiagnosticPath, "error-screenshot.png")

	v.SetDefault(BrowserHeadless, false)
	v.SetDefault(BrowserNoSandbox, false)
	v.SetDefault(BrowserSlowMotion, time.Duration(0))
	v.SetDefault(BrowserTimeout, 10*time.Second)
	v.SetDefault(BrowserNavigationTimeout, 30*time.Second)
	v.SetDefault(BrowserViewportWidth, 1280)
	v.SetDefault(BrowserViewportHeight, 800)

	v.SetDefault(LLMModel, "openai/gpt-4o-mini")
	v.SetDefault(LLMBaseURL, "https://openrouter.ai/api/v1")
	v.SetDefault(LLMTemperature, 0.2)
	v.SetDefault(LLMTimeout, 120*time.Second)
	v.SetDefault(LLMMaxRetries, 4)
	v.SetDefault(LLMChunkSize, 12000)

	v.SetDefault(ToolsTimeout, 60*time.Second)

	v.SetDefault(CredentialsPath, "credential_store.json")

	v.SetDefault(LogLevel, "info")
	v.SetDefault(LogFormat, "console")
	v.SetDefault(LogDir, "log")

	v.SetDefault(ServerAddr, ":8080")
}

type Options struct {
	// Dir holds the .env files. Empty means the working directory.
	Dir string
	// ConfigFile is an optional YAML/JSON/TOML file read before the environment.
	ConfigFile string
}

type Config struct {
	v *viper.Viper
	// Loaded lists the env files that were read.
	Loaded []string
	AppEnv string
}

func Load(opts Options) (*Config, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	cfg := &Config{v: viper.New(), AppEnv: appEnv}

	base := filepath.Join(opts.Dir, ".env")
	if err := godotenv.Load(base); err == nil {
		cfg.Loaded = append(cfg.Loaded, base)
	}
	envFile := filepath.Join(opts.Dir, ".env."+appEnv)
	if err := godotenv.Overload(envFile); err == nil {
		cfg.Loaded = append(cfg.Loaded, envFile)
	}

	v := cfg.v
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacy {
		if err := v.BindEnv(key, envName(key), name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	}

	return cfg, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Viper exposes the store for flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

func (c *Config) Get(key string) string {
	return c.v.GetString(key)
}

func (c *Config) MustGet(key string) string {
	val := c.v.GetString(key)
	if val == "" {
		panic(fmt.Sprintf("config %s is missing (set %s)", key, envName(key)))
	}
	return val
}

// Require reports every key that has no value.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if c.v.GetString(key) == "" {
			name := envName(key)
			if l, ok := legacy[key]; ok {
				name += " or " + l
			}
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) GetWithDefault(key string, defaultValue string) string {
	if val := c.v.GetString(key); val != "" {
		return val
	}
	return defaultValue
}

func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *Config) GetFloat(key string) float64 {
	return c.v.GetFloat64(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}
