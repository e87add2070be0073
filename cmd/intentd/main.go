// Command intentd runs the intent-execution engine's HTTP surface: it wires
// provider adapters, the fallback manager, the tool and skill registries,
// and a receipts store into an Executor, then serves the result over
// net/http with graceful shutdown on SIGINT/SIGTERM.
//
// # Configuration
//
// Environment variables:
//
//	APP_NAME            - service name reported on /version (default: "intentd")
//	DEBUG               - parsed into Config.Debug (default: false); nothing
//	                      reads it, so it does not change the log level
//	API_HOST            - HTTP listen host (default: "0.0.0.0")
//	API_PORT            - HTTP listen port (default: "8080")
//	API_TOKEN           - bearer token required on /v1/*; unset disables auth
//	DATABASE_URL        - "redis://..." or "mongodb://..."; unset uses the
//	                      in-memory receipts store
//	CORS_ORIGINS        - comma-separated allowed origins (currently unused
//	                      by the handler, reserved for a future CORS layer)
//	OPENAI_API_KEY      - enables the openai provider when set
//	ANTHROPIC_API_KEY   - enables the anthropic provider when set
//	GROQ_API_KEY        - enables the groq provider when set
//	OLLAMA_BASE_URL     - ollama provider base URL (default: http://localhost:11434)
//
// AWS credentials for the bedrock provider are read the standard way, via
// the default AWS credential chain (environment, shared config, IMDS).
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kparnell/intentd/internal/config"
	"github.com/kparnell/intentd/internal/executor"
	"github.com/kparnell/intentd/internal/fallback"
	"github.com/kparnell/intentd/internal/httpapi"
	"github.com/kparnell/intentd/internal/provider"
	"github.com/kparnell/intentd/internal/provider/anthropic"
	"github.com/kparnell/intentd/internal/provider/bedrock"
	"github.com/kparnell/intentd/internal/provider/groq"
	"github.com/kparnell/intentd/internal/provider/ollama"
	"github.com/kparnell/intentd/internal/provider/openai"
	"github.com/kparnell/intentd/internal/providerregistry"
	"github.com/kparnell/intentd/internal/receipts"
	"github.com/kparnell/intentd/internal/receipts/memory"
	"github.com/kparnell/intentd/internal/receipts/mongostore"
	"github.com/kparnell/intentd/internal/receipts/redisstore"
	"github.com/kparnell/intentd/internal/skills"
	"github.com/kparnell/intentd/internal/telemetry"
	"github.com/kparnell/intentd/internal/tools"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.Load()

	logger := telemetry.NewClueLogger()

	providers := buildProviderRegistry(ctx, cfg, logger)
	fb := fallback.New()

	toolRegistry := buildToolRegistry()
	dispatcher := tools.NewDispatcher(toolRegistry)

	skillRegistry := skills.NewRegistry()
	skillRegistry.Register(skills.NewCaptureTasks())
	skillRegistry.Register(skills.NewSearchSummarize())
	skillRegistry.Register(skills.NewPlanDay())
	skillRegistry.Register(skills.NewProcessMeetingNotes())
	skillRegistry.Register(skills.NewBuildWorkflow())

	receiptStore, closeStore, err := buildReceiptStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("build receipt store: %w", err)
	}
	defer closeStore()

	exec := executor.New(providers, fb, skillRegistry, dispatcher, executor.WithLogger(logger))

	handler := httpapi.NewServer(httpapi.Deps{
		AppName:   cfg.AppName,
		APIToken:  cfg.APIToken,
		Executor:  exec,
		Receipts:  receiptStore,
		Providers: providers,
		Skills:    skillRegistry,
		Tools:     toolRegistry,
		Logger:    logger,
	})

	addr := net.JoinHostPort(cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "addr", addr, "app_name", cfg.AppName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigc:
		logger.Info(ctx, "shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info(ctx, "exited")
	return nil
}

// buildProviderRegistry registers an adapter for every provider with
// sufficient configuration present. A provider left unconfigured (no API
// key, no reachable runtime) is simply absent from the registry rather than
// registered in a broken state; fallback chains that name it resolve to the
// next candidate instead.
func buildProviderRegistry(ctx context.Context, cfg config.Config, logger telemetry.Logger) *providerregistry.Registry {
	registry := providerregistry.New(providerregistry.WithLogger(logger))

	if cfg.OpenAIAPIKey != "" {
		adapter := openai.New(openai.Options{APIKey: cfg.OpenAIAPIKey})
		registry.Register(provider.NewRateLimited(adapter, 5, 10))
	}

	if cfg.AnthropicAPIKey != "" {
		adapter := anthropic.New(anthropic.Options{APIKey: cfg.AnthropicAPIKey})
		registry.Register(provider.NewRateLimited(adapter, 5, 10))
	}

	if cfg.GroqAPIKey != "" {
		adapter := groq.New(groq.Options{APIKey: cfg.GroqAPIKey})
		registry.Register(provider.NewRateLimited(adapter, 5, 10))
	}

	if awsCfg, err := awsconfig.LoadDefaultConfig(ctx); err == nil {
		runtime := bedrockruntime.NewFromConfig(awsCfg)
		adapter, err := bedrock.New(bedrock.Options{
			Runtime: runtime,
			Models:  []string{"anthropic.claude-3-5-sonnet-20241022-v2:0"},
		})
		if err == nil {
			registry.Register(provider.NewRateLimited(adapter, 5, 10))
		} else {
			logger.Warn(ctx, "bedrock adapter unavailable", "error", err)
		}
	} else {
		logger.Debug(ctx, "bedrock not configured, skipping", "error", err)
	}

	ollamaAdapter := ollama.New(ollama.Options{
		BaseURL: cfg.OllamaBaseURL,
		Models:  []string{"llama3.2:1b", "llama3.2", "mistral"},
	})
	registry.Register(ollamaAdapter)

	return registry
}

// buildToolRegistry constructs every domain tool store and the read/write
// tools over it, registering all of them under the shared dispatcher
// registry.
func buildToolRegistry() *tools.Registry {
	registry := tools.NewRegistry()

	taskStore := tools.NewTaskStore()
	registry.Register(tools.NewTaskCreate(taskStore))
	registry.Register(tools.NewTaskList(taskStore))
	registry.Register(tools.NewTaskDelete(taskStore))

	calendarStore := tools.NewCalendarStore()
	registry.Register(tools.NewCalendarGetDay(calendarStore))
	registry.Register(tools.NewCalendarCreateBlocks(calendarStore))
	registry.Register(tools.NewCalendarDeleteBlock(calendarStore))

	noteStore := tools.NewNoteStore()
	registry.Register(tools.NewNoteCreate(noteStore))
	registry.Register(tools.NewNoteDelete(noteStore))
	registry.Register(tools.NewNoteSearch(noteStore))

	workflowStore := tools.NewWorkflowStore()
	registry.Register(tools.NewWorkflowSave(workflowStore))
	registry.Register(tools.NewWorkflowEnable(workflowStore))
	registry.Register(tools.NewWorkflowDisable(workflowStore))
	registry.Register(tools.NewWorkflowDelete(workflowStore))

	return registry
}

// buildReceiptStore selects the receipts.Store backend from the
// DATABASE_URL prefix: "redis://" for redisstore, "mongodb://" for
// mongostore, anything else (including empty) for the in-memory store. The
// returned close func must always be called on shutdown, even for the
// in-memory store where it is a no-op.
func buildReceiptStore(ctx context.Context, databaseURL string) (receipts.Store, func(), error) {
	switch {
	case strings.HasPrefix(databaseURL, "redis://"):
		opts, err := redis.ParseURL(databaseURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, func() {}, fmt.Errorf("connect to redis: %w", err)
		}
		store := redisstore.New(client)
		if err := store.Migrate(ctx); err != nil {
			return nil, func() {}, fmt.Errorf("migrate redis receipts store: %w", err)
		}
		return store, func() { _ = client.Close() }, nil

	case strings.HasPrefix(databaseURL, "mongodb://"):
		client, err := mongo.Connect(options.Client().ApplyURI(databaseURL))
		if err != nil {
			return nil, func() {}, fmt.Errorf("connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, func() {}, fmt.Errorf("ping mongo: %w", err)
		}
		collection := client.Database("intentd").Collection("receipts")
		store := mongostore.New(collection)
		if err := store.Migrate(ctx); err != nil {
			return nil, func() {}, fmt.Errorf("migrate mongo receipts store: %w", err)
		}
		return store, func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}, nil

	default:
		store := memory.New()
		_ = store.Migrate(ctx)
		return store, func() {}, nil
	}
}
