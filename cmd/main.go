package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/cosmo/composition/pkg/composition"
	"github.com/wundergraph/cosmo/composition/pkg/config"
	"github.com/wundergraph/cosmo/composition/pkg/logging"
	"github.com/wundergraph/cosmo/composition/pkg/server"
	"github.com/wundergraph/cosmo/composition/pkg/watcher"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath  = flag.String("config", "", "path to the composition config file")
	overrideEnv = flag.String("override-env", "", "env file name to override env variables")
	watchFlag   = flag.Bool("watch", false, "recompose when subgraph schema files change")
)

func Main() {
	flag.Parse()

	result, err := config.LoadConfig(*configPath, *overrideEnv)
	if err != nil {
		log.Fatalf("Could not load config: %s", err)
	}

	cfg := &result.Config

	logLevel, err := logging.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Could not parse log level: %s", err)
	}

	logger := logging.New(!cfg.JSONLog, cfg.LogLevel == "debug", logLevel).
		With(
			zap.String("component", "@wundergraph/composition"),
			zap.String("service_version", Version),
		)

	if !result.DefaultLoaded {
		logger.Info("Default config file not found, using defaults and environment variables",
			zap.String("config_file", config.DefaultConfigPath),
		)
	}

	if len(cfg.Subgraphs) == 0 {
		logger.Fatal("No subgraphs configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGHUP,  // process is detached from terminal
		syscall.SIGTERM, // default for kill
		syscall.SIGQUIT, // ctrl + \
		syscall.SIGINT,  // ctrl+c
	)
	defer stop()

	if err := run(ctx, logger, cfg, *watchFlag || cfg.Watch.Enabled); err != nil {
		logger.Fatal("Composition failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config, watch bool) error {
	artifacts, err := composeAndWrite(ctx, logger, cfg)
	if err != nil {
		return err
	}

	var srv *server.Server
	if cfg.Listen.Enabled {
		srv = server.New(server.Options{
			Addr:   cfg.Listen.Addr,
			Logger: logger,
		})
		srv.SetArtifacts(artifacts)
	}

	if srv == nil && !watch {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if srv != nil {
		group.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if watch {
		paths := make([]string, 0, len(cfg.Subgraphs))
		for _, sg := range cfg.Subgraphs {
			paths = append(paths, sg.Schema.File)
		}

		watchFunc, err := watcher.New(watcher.Options{
			Interval: cfg.Watch.Interval,
			Logger:   logger,
			Paths:    paths,
			Callback: func() {
				logger.Info("Schema change detected, recomposing")
				artifacts, err := composeAndWrite(groupCtx, logger, cfg)
				if err != nil {
					// Keep serving the previous artifacts
					logger.Error("Recomposition failed", zap.Error(err))
					return
				}
				if srv != nil {
					srv.SetArtifacts(artifacts)
				}
			},
		})
		if err != nil {
			return err
		}

		group.Go(func() error {
			if err := watchFunc(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return group.Wait()
}

func composeAndWrite(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*server.Artifacts, error) {
	start := time.Now()

	subgraphs := make([]*composition.Subgraph, len(cfg.Subgraphs))

	group, _ := errgroup.WithContext(ctx)
	for i, sg := range cfg.Subgraphs {
		group.Go(func() error {
			schema, err := os.ReadFile(sg.Schema.File)
			if err != nil {
				return fmt.Errorf("could not read schema of subgraph %q: %w", sg.Name, err)
			}
			subgraphs[i] = &composition.Subgraph{
				Name:   sg.Name,
				URL:    sg.RoutingURL,
				Schema: string(schema),
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	federated, err := composition.Federate(subgraphs...)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(cfg.Output.SupergraphPath, []byte(federated.SDL), 0o644); err != nil {
		return nil, fmt.Errorf("could not write supergraph SDL: %w", err)
	}

	if err := os.WriteFile(cfg.Output.APISchemaPath, []byte(federated.APISDL), 0o644); err != nil {
		return nil, fmt.Errorf("could not write API SDL: %w", err)
	}

	payload := struct {
		Version                string                               `json:"version"`
		SupergraphSDL          string                               `json:"supergraphSdl"`
		APISDL                 string                               `json:"apiSdl"`
		Entities               []*composition.EntityConfiguration   `json:"entities,omitempty"`
		ArgumentConfigurations []*composition.ArgumentConfiguration `json:"argumentConfigurations,omitempty"`
	}{
		Version:                federated.Version,
		SupergraphSDL:          federated.SDL,
		APISDL:                 federated.APISDL,
		Entities:               federated.Entities,
		ArgumentConfigurations: federated.ArgumentConfigurations,
	}

	artifactJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not marshal composition artifact: %w", err)
	}

	if err := os.WriteFile(cfg.Output.ArtifactPath, artifactJSON, 0o644); err != nil {
		return nil, fmt.Errorf("could not write composition artifact: %w", err)
	}

	logger.Info("Composition succeeded",
		zap.String("version", federated.Version),
		zap.Int("subgraphs", len(subgraphs)),
		zap.String("supergraph_size", humanize.Bytes(uint64(len(federated.SDL)))),
		zap.String("api_schema_size", humanize.Bytes(uint64(len(federated.APISDL)))),
		zap.String("artifact_size", humanize.Bytes(uint64(len(artifactJSON)))),
		zap.Duration("took", time.Since(start)),
	)

	return &server.Artifacts{
		SupergraphSDL:          federated.SDL,
		APISDL:                 federated.APISDL,
		Version:                federated.Version,
		Entities:               federated.Entities,
		ArgumentConfigurations: federated.ArgumentConfigurations,
	}, nil
}
