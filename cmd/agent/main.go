package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"browserx/internal/di"
	"browserx/internal/infrastructure/env"
)

type rootFlags struct {
	envDir     string
	configFile string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "browserx",
		Short:         "Autonomous browser agent driven by a language model",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.envDir, "env-dir", "", "directory holding .env files (default is .)")
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "optional config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().Bool("headless", false, "run the browser without a window")
	root.PersistentFlags().String("model", "", "OpenRouter model name")

	root.AddCommand(newRunCmd(flags), newPlanCmd(flags), newServeCmd(flags))
	return root
}

// persistentBindings maps persistent flag names to config keys.
var persistentBindings = map[string]string{
	"log-level": env.LogLevel,
	"headless":  env.BrowserHeadless,
	"model":     env.LLMModel,
}

// load reads the configuration and lets explicitly set flags override it.
func load(cmd *cobra.Command, flags *rootFlags, local map[string]string) (*env.Config, error) {
	cfg, err := env.Load(env.Options{Dir: flags.envDir, ConfigFile: flags.configFile})
	if err != nil {
		return nil, err
	}
	bind := func(fs *pflag.FlagSet, bindings map[string]string) error {
		for name, key := range bindings {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := cfg.Viper().BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
		return nil
	}
	if err := bind(cmd.Flags(), persistentBindings); err != nil {
		return nil, err
	}
	if err := bind(cmd.Flags(), local); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newContainer(cmd *cobra.Command, flags *rootFlags, local map[string]string, task string) (*di.Container, error) {
	cfg, err := load(cmd, flags, local)
	if err != nil {
		return nil, err
	}
	return di.NewContainer(cfg, di.Options{Task: task})
}
