package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/config"
	"github.com/mikey/llm-support-triage/internal/logging"
)

// CLIOptions contains the global command line options of the CLI application
type CLIOptions struct {
	ConfigFile string
	Provider   string
	Model      string
	History    string
	Workers    int
	Verbose    bool
	JSONLog    bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(opts *CLIOptions) (*dig.Container, error) {
	container := dig.New()

	// Register options
	if err := container.Provide(func() *CLIOptions { return opts }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(opts *CLIOptions) (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(opts *CLIOptions, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewFromFile(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		applyOverrides(cfg, opts)
		return cfg, cfg.Validate()
	}); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyOverrides copies command line options over the loaded configuration
func applyOverrides(cfg *config.Config, opts *CLIOptions) {
	if opts.Provider != "" {
		cfg.Set("llm.provider", opts.Provider)
	}
	if opts.Model != "" {
		switch cfg.GetLLM().Provider {
		case "openai":
			cfg.Set("openai.model_name", opts.Model)
		case "gemini":
			cfg.Set("gemini.model_name", opts.Model)
		case "bedrock":
			cfg.Set("bedrock.model_id", opts.Model)
		}
	}
	if opts.History != "" {
		cfg.Set("history.type", opts.History)
	}
	if opts.Workers > 0 {
		cfg.Set("pipeline.workers", opts.Workers)
	}
}
