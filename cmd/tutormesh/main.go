// Command tutormesh runs the delegation server: it wires the configured
// thread store, decision model and responders into the engine and serves the
// HTTP/SSE surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/sync/errgroup"

	"github.com/tutormesh/tutormesh/config"
	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/engine"
	"github.com/tutormesh/tutormesh/knowledge"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/model"
	anthropicmodel "github.com/tutormesh/tutormesh/model/anthropic"
	openaimodel "github.com/tutormesh/tutormesh/model/openai"
	"github.com/tutormesh/tutormesh/responder"
	"github.com/tutormesh/tutormesh/server"
	"github.com/tutormesh/tutormesh/thread"
	threadsqlite "github.com/tutormesh/tutormesh/thread/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "tutormesh:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	store, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	decider, err := buildModel(cfg)
	if err != nil {
		return err
	}
	logger.Info("decision model ready", "provider", decider.Info().Provider, "model", decider.Info().Name)

	registry := buildRegistry(cfg, logger)

	eng := engine.New(store, decider, registry,
		func(o *engine.Options) {
			o.MaxRounds = cfg.Delegation.MaxRounds
			o.Logger = logger
		})

	handler := server.New(store, eng, registry, func(o *server.Options) {
		o.Logger = logger
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func buildStore(cfg *config.Config, logger logging.Logger) (core.ThreadStore, func(), error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := threadsqlite.New(cfg.Storage.Path, threadsqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return thread.NewInMemoryStore(), func() {}, nil
	}
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = anthropic.Model(cfg.Model.Name)
			}
			o.APIKey = cfg.Model.APIKey
		}), nil
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
			o.APIKey = cfg.Model.APIKey
		}), nil
	default:
		return model.NewMockModel("mock"), nil
	}
}

// buildRegistry assembles the closed responder set. The knowledge index
// starts empty; the web and cloud collaborators are placeholder integrations
// until real providers are configured.
func buildRegistry(cfg *config.Config, logger logging.Logger) *responder.Registry {
	idx := knowledge.NewIndex()

	responders := []core.Responder{
		responder.NewKnowledgeResponder(idx, responder.WithTopK(cfg.Delegation.TopK)),
		responder.NewWebSearchResponder(noWebSearcher{}),
		responder.NewCloudResponder(&responder.StaticCloudProvider{
			Answers: map[string]string{},
		}),
	}

	return responder.NewRegistry(responders,
		responder.WithTimeout(cfg.Delegation.ResponderTimeout),
		responder.WithLogger(logger),
	)
}

// noWebSearcher stands in until a real web search provider is wired.
type noWebSearcher struct{}

func (noWebSearcher) Search(ctx context.Context, query string) ([]core.WebHit, error) {
	return nil, nil
}
