// Copyright 2025 CreativeGHQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/ai/openai"
	"github.com/creativeghq/matflow/config"
	"github.com/creativeghq/matflow/extract"
	"github.com/creativeghq/matflow/metadata"
	"github.com/creativeghq/matflow/orchestrator"
	"github.com/creativeghq/matflow/pipeline"
	"github.com/creativeghq/matflow/server"
	"github.com/creativeghq/matflow/storage"
	"github.com/creativeghq/matflow/storage/badger"
)

func main() {
	// Local deployments keep model hosts and keys in a .env file.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "matflow",
		Usage: "Catalog ingestion and classification engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Daemon address for client commands",
				Value:   "http://127.0.0.1:8390",
				EnvVars: []string{"MATFLOW_ADDR"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the processing daemon",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML configuration file",
					},
				},
			},
			{
				Name:      "submit",
				Usage:     "Submit a catalog document for processing",
				Action:    submitCommand,
				ArgsUsage: "DOCUMENT_REF",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "workspace",
						Usage: "Workspace the job belongs to",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Stream progress until the job finishes",
					},
				},
			},
			{
				Name:      "status",
				Usage:     "Show a job's status and checkpoints",
				Action:    statusCommand,
				ArgsUsage: "JOB_ID",
			},
			{
				Name:      "resume",
				Usage:     "Resume an interrupted, failed, or cancelled job",
				Action:    resumeCommand,
				ArgsUsage: "JOB_ID",
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a queued or running job",
				Action:    cancelCommand,
				ArgsUsage: "JOB_ID",
			},
			{
				Name:      "usage",
				Usage:     "Show a job's model usage and cost",
				Action:    usageCommand,
				ArgsUsage: "JOB_ID",
			},
			{
				Name:      "validate",
				Usage:     "Validate a raw metadata value against prototypes",
				Action:    validateCommand,
				ArgsUsage: "PROPERTY_KEY RAW_VALUE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := badger.NewStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	artifacts, err := storage.NewFSArtifactStore(cfg.Storage.DocumentsRoot, cfg.Storage.ImagesRoot)
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	aiConfig := cfg.AIGatewayConfig()
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}
	defer provider.Close()

	gateway, err := ai.NewGateway(provider, store, aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create model gateway: %w", err)
	}
	validator := metadata.NewValidator(gateway, store)

	pipe, err := pipeline.New(pipeline.Deps{
		Store:     store,
		Artifacts: artifacts,
		Extractor: extract.NewPDFExtractor(),
		Gateway:   gateway,
		Validator: validator,
	},
		pipeline.WithMinChunkLength(cfg.Pipeline.MinChunkLength),
		pipeline.WithTargetChunkSize(cfg.Pipeline.TargetChunkSize),
		pipeline.WithInnerConcurrency(cfg.Pipeline.InnerConcurrency),
	)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	orch, err := orchestrator.New(store, pipe, &orchestrator.Config{
		Workers:        cfg.Jobs.Workers,
		MaxAttempts:    cfg.Jobs.MaxAttempts,
		RetryBaseDelay: time.Duration(cfg.Jobs.RetryBaseDelay),
		RetryMaxDelay:  time.Duration(cfg.Jobs.RetryMaxDelay),
		AutoResume:     cfg.Jobs.AutoResume,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	recovered, err := orch.Recover(c.Context)
	if err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}
	if recovered > 0 {
		slog.Info("startup recovery", "jobs", recovered)
	}

	srv, err := server.New(cfg.Server.Addr, orch, store, validator, gateway)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		orch.Close()
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	return orch.Close()
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
