package di

import (
	"fmt"

	"browserx/internal/adapter/action"
	"browserx/internal/application/port/output"
	"browserx/internal/application/service"
	"browserx/internal/infrastructure/annotate"
	"browserx/internal/infrastructure/browser/rod"
	"browserx/internal/infrastructure/credentials"
	"browserx/internal/infrastructure/env"
	"browserx/internal/infrastructure/llm/openrouter"
	"browserx/internal/infrastructure/logger"
	"browserx/internal/infrastructure/metrics"
	"browserx/internal/infrastructure/server"
	"browserx/internal/infrastructure/sink"
	"browserx/internal/infrastructure/tools/firecrawl"
	"browserx/internal/infrastructure/tools/readable"
	"browserx/internal/infrastructure/tools/tavily"
	"browserx/internal/infrastructure/userinteraction"
	"browserx/internal/usecase/agentloop"
	"browserx/internal/usecase/oracle"
)

const (
	hubBacklog     = 200
	scrapeMaxChars = 20000
)

type Container struct {
	Config      *env.Config
	Logger      *logger.LoggerAdapter
	LLM         output.LLMPort
	Actions     output.ActionRegistry
	Oracle      *oracle.Oracle
	Planner     *oracle.Planner
	TextGen     *oracle.TextGenerator
	Launcher    *rod.Launcher
	Credentials *credentials.FileStore
	Metrics     *metrics.Prometheus
	Runner      *agentloop.UseCase
}

type Options struct {
	// Task names the log file of a single run. Empty logs to the console only.
	Task string
}

func NewContainer(cfg *env.Config, opts Options) (*Container, error) {
	if err := cfg.Require(env.LLMAPIKey); err != nil {
		return nil, err
	}

	logOpts := logger.DefaultOptions()
	logOpts.Level = cfg.Get(env.LogLevel)
	logOpts.Format = cfg.Get(env.LogFormat)
	logOpts.Dir = cfg.Get(env.LogDir)
	logOpts.Task = opts.Task
	log, err := logger.NewLoggerAdapter(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	llmCfg := openrouter.DefaultConfig(cfg.Get(env.LLMAPIKey), cfg.Get(env.LLMModel))
	llmCfg.BaseURL = cfg.Get(env.LLMBaseURL)
	llmCfg.Timeout = cfg.GetDuration(env.LLMTimeout)
	llmCfg.MaxRetries = cfg.GetInt(env.LLMMaxRetries)
	llmCfg.Logger = log.WithField("component", "llm")
	llm := openrouter.NewOpenRouterAdapter(llmCfg)

	actions := service.NewActionRegistry(action.Handlers()...)

	decider, err := oracle.NewOracle(llm, actions, float32(cfg.GetFloat(env.LLMTemperature)), log)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("failed to create oracle: %w", err)
	}
	planner := oracle.NewPlanner(llm, log)
	textgen := oracle.NewTextGenerator(llm, cfg.GetInt(env.LLMChunkSize), log)

	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = cfg.GetBool(env.BrowserHeadless)
	browserCfg.Bin = cfg.Get(env.BrowserBin)
	browserCfg.UserDataDir = cfg.Get(env.BrowserUserDataDir)
	browserCfg.NoSandbox = cfg.GetBool(env.BrowserNoSandbox)
	browserCfg.SlowMotion = cfg.GetDuration(env.BrowserSlowMotion)
	browserCfg.Timeout = cfg.GetDuration(env.BrowserTimeout)
	browserCfg.NavigationTimeout = cfg.GetDuration(env.BrowserNavigationTimeout)
	browserCfg.ViewportWidth = cfg.GetInt(env.BrowserViewportWidth)
	browserCfg.ViewportHeight = cfg.GetInt(env.BrowserViewportHeight)
	browserCfg.Logger = log.WithField("component", "browser")
	launcher := rod.NewLauncher(browserCfg)

	store := credentials.NewFileStore(cfg.Get(env.CredentialsPath))
	m := metrics.New()

	toolsTimeout := cfg.GetDuration(env.ToolsTimeout)
	var search output.WebSearcher
	if key := cfg.Get(env.ToolsTavilyAPIKey); key != "" {
		tc := tavily.DefaultConfig(key)
		tc.Timeout = toolsTimeout
		search = tavily.New(tc)
	} else {
		log.Info("Tavily API key not set, web search is disabled")
	}
	var scraper output.PageScraper = readable.New(toolsTimeout, scrapeMaxChars)
	if key := cfg.Get(env.ToolsFirecrawlAPIKey); key != "" {
		scraper = firecrawl.New(key, "", toolsTimeout)
	}

	loopCfg := agentloop.DefaultConfig()
	loopCfg.MaxSteps = cfg.GetInt(env.AgentMaxSteps)
	loopCfg.HistoryLimit = cfg.GetInt(env.AgentHistoryLimit)
	loopCfg.MaxDecisionAttempts = cfg.GetInt(env.AgentDecisionAttempts)
	loopCfg.ResultLimit = cfg.GetInt(env.AgentResultLimit)
	loopCfg.StepDelay = cfg.GetDuration(env.AgentStepDelay)
	loopCfg.ObserveRetries = cfg.GetInt(env.AgentObserveRetries)
	loopCfg.DiagnosticPath = cfg.Get(env.AgentDiagnosticPath)

	runner := agentloop.New(loopCfg, agentloop.Deps{
		Launcher:    launcher,
		Annotator:   annotate.New(),
		Oracle:      decider,
		Actions:     actions,
		Credentials: store,
		TextGen:     textgen,
		Planner:     planner,
		Search:      search,
		Scraper:     scraper,
		Metrics:     m,
		Logger:      log,
	})

	return &Container{
		Config:      cfg,
		Logger:      log,
		LLM:         llm,
		Actions:     actions,
		Oracle:      decider,
		Planner:     planner,
		TextGen:     textgen,
		Launcher:    launcher,
		Credentials: store,
		Metrics:     m,
		Runner:      runner,
	}, nil
}

// Console is the terminal prompter and progress sink of the CLI.
func (c *Container) Console() *userinteraction.ConsoleUserInteraction {
	return userinteraction.NewConsoleUserInteraction(c.Credentials)
}

// ControlPlane wires the HTTP server with its log hub and prompt broker.
// The returned hub must be closed after the server stops.
func (c *Container) ControlPlane() (*server.Server, *sink.Hub) {
	hub := sink.NewHub(hubBacklog, c.Logger.WithField("component", "hub"))
	lines := sink.Multi(hub, sink.Logger(c.Logger))

	srv := server.New(server.Config{
		Addr:     c.Config.Get(env.ServerAddr),
		JSONLogs: c.Config.Get(env.LogFormat) == "json",
	}, server.Deps{
		Runner:  c.Runner,
		Planner: c.Planner.WithSink(lines),
		Prompts: userinteraction.NewBroker(c.Credentials, lines),
		Sink:    lines,
		Stream:  hub,
		Metrics: c.Metrics.Handler(),
		Logger:  c.Logger.WithField("component", "server"),
	})
	return srv, hub
}

func (c *Container) Close() {
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
}
