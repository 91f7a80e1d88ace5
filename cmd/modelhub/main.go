// Command modelhub is a small CLI over the model registry. It registers the
// configured providers, authenticates them, and then lists models, reports
// provider status, or streams a completion to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aschepis/backscratcher/modelhub/config"
	"github.com/aschepis/backscratcher/modelhub/llm"
	"github.com/aschepis/backscratcher/modelhub/llm/anthropic"
	"github.com/aschepis/backscratcher/modelhub/llm/ollama"
	"github.com/aschepis/backscratcher/modelhub/llm/openai"
	hublogger "github.com/aschepis/backscratcher/modelhub/logger"
	"github.com/aschepis/backscratcher/modelhub/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to YAML config file. If not set, defaults are used")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		providerID = flag.String("provider", "ollama", "Provider to use for chat")
		modelID    = flag.String("model", "", "Model ID to use for chat")
		prompt     = flag.String("prompt", "", "Prompt text for the chat command")
	)
	flag.Parse()

	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	logger, err := hublogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	store := config.NewStore(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := buildRegistry(store, logger)

	command := flag.Arg(0)
	switch command {
	case "", "models":
		return listModels(ctx, registry)
	case "status":
		return showStatus(ctx, registry)
	case "chat":
		return chat(ctx, registry, llm.ProviderID(*providerID), llm.ModelID(*modelID), *prompt)
	default:
		return fmt.Errorf("unknown command %q (expected models, status, or chat)", command)
	}
}

// buildRegistry registers the providers named in the configuration, in
// order. Each provider gets its own HTTP client carrying that provider's
// streaming stall timeout.
func buildRegistry(store *config.Store, logger zerolog.Logger) *llm.Registry {
	registry := llm.NewRegistry(logger)
	cfg := store.Get()

	for _, name := range cfg.Providers {
		switch name {
		case config.ProviderOllama:
			client := transport.NewClient(cfg.Ollama.LowActivityTimeout())
			registry.Register(ollama.NewProvider(store, client, logger))
		case config.ProviderOpenAI:
			client := transport.NewClient(cfg.OpenAI.LowActivityTimeout())
			registry.Register(openai.NewProvider(store, client, logger))
		case config.ProviderAnthropic:
			client := transport.NewClient(cfg.Anthropic.LowActivityTimeout())
			registry.Register(anthropic.NewProvider(store, client, logger))
		default:
			logger.Warn().Str("provider", name).Msg("Unknown provider in configuration, skipping")
		}
	}
	return registry
}

// authenticate probes every registered provider, logging nothing: providers
// that fail simply stay unauthenticated and show up that way in status.
func authenticate(ctx context.Context, registry *llm.Registry) {
	for _, provider := range registry.Providers() {
		_ = provider.Authenticate(ctx)
	}
}

func listModels(ctx context.Context, registry *llm.Registry) error {
	authenticate(ctx, registry)

	models := registry.AvailableModels()
	if len(models) == 0 {
		fmt.Println("No models available. Run 'modelhub status' to see provider state.")
		return nil
	}
	for _, model := range models {
		fmt.Printf("%s\t%s\t(max %d tokens)\n", model.ProviderID(), model.ID(), model.MaxTokenCount())
	}
	return nil
}

func showStatus(ctx context.Context, registry *llm.Registry) error {
	authenticate(ctx, registry)

	for _, provider := range registry.Providers() {
		view := provider.ConfigurationView()
		state := "not authenticated"
		if view.Authenticated {
			state = "authenticated"
		}
		fmt.Printf("%s: %s\n  %s\n", provider.Name(), state, view.Summary)
		if !view.Authenticated && view.SetupURL != "" {
			fmt.Printf("  setup: %s\n", view.SetupURL)
		}
	}
	return nil
}

func chat(ctx context.Context, registry *llm.Registry, providerID llm.ProviderID, modelID llm.ModelID, prompt string) error {
	if modelID == "" {
		return fmt.Errorf("--model is required for chat")
	}
	if prompt == "" {
		return fmt.Errorf("--prompt is required for chat")
	}

	authenticate(ctx, registry)

	model, err := registry.SelectModel(providerID, modelID)
	if err != nil {
		return err
	}

	if provider, ok := registry.Lookup(providerID); ok {
		provider.LoadModel(ctx, model)
	}

	stream, err := model.StreamCompletion(ctx, llm.NewTextRequest(llm.RoleUser, prompt))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		fmt.Print(stream.Delta())
	}
	fmt.Println()
	return stream.Err()
}
