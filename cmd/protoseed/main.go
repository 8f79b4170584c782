// Command protoseed loads a YAML file of canonical metadata values and their
// natural-language descriptions, embeds each description set, and stores the
// averaged prototype vectors in the property registry.
//
// Seed file format:
//
//	properties:
//	  - key: finish
//	    data_type: string
//	    canonicals:
//	      - value: glossy
//	        descriptions:
//	          - A smooth reflective surface with a mirror-like sheen.
//	          - High-gloss polished finish that reflects light strongly.
//	          - Shiny lacquered coating.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/creativeghq/matflow/ai"
	"github.com/creativeghq/matflow/ai/openai"
	"github.com/creativeghq/matflow/config"
	"github.com/creativeghq/matflow/metadata"
	"github.com/creativeghq/matflow/storage"
	"github.com/creativeghq/matflow/storage/badger"
)

var (
	seedFileName = flag.String("src", "", "YAML file of prototype seed data")
	configPath   = flag.String("config", "", "path to daemon configuration file")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

type seedFile struct {
	Properties []seedProperty `yaml:"properties"`
}

type seedProperty struct {
	Key        string          `yaml:"key"`
	DataType   string          `yaml:"data_type"`
	Canonicals []seedCanonical `yaml:"canonicals"`
}

type seedCanonical struct {
	Value        string   `yaml:"value"`
	Descriptions []string `yaml:"descriptions"`
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seeds seedFile
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(seeds.Properties) == 0 {
		return nil, fmt.Errorf("seed file %s defines no properties", path)
	}
	return &seeds, nil
}

func seedPrototypes(ctx context.Context, gateway *ai.Gateway, store storage.Store, seeds *seedFile) error {
	for _, property := range seeds.Properties {
		dataType := property.DataType
		if dataType == "" {
			dataType = "string"
		}
		if _, err := store.GetOrCreateProperty(ctx, property.Key, dataType); err != nil {
			return fmt.Errorf("register property %q: %w", property.Key, err)
		}

		for _, canonical := range property.Canonicals {
			vector, err := metadata.BuildPrototype(ctx, gateway, ai.CallScope{}, canonical.Descriptions)
			if err != nil {
				return fmt.Errorf("build prototype %s=%q: %w", property.Key, canonical.Value, err)
			}
			if _, err := store.PutPrototype(ctx, property.Key, canonical.Value, vector); err != nil {
				return fmt.Errorf("store prototype %s=%q: %w", property.Key, canonical.Value, err)
			}
			slog.Info("prototype stored", "property", property.Key, "canonical", canonical.Value)
		}
	}
	return nil
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if *seedFileName == "" {
		slog.Error("no seed file given, use -src")
		os.Exit(1)
	}

	seeds, err := loadSeedFile(*seedFileName)
	if err != nil {
		slog.Error("failed to load seed file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := badger.NewStore(cfg.Storage.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	aiConfig := cfg.AIGatewayConfig()
	if err := aiConfig.Validate(); err != nil {
		slog.Error("invalid AI configuration", "error", err)
		os.Exit(1)
	}
	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		slog.Error("failed to create AI provider", "error", err)
		os.Exit(1)
	}
	defer provider.Close()

	gateway, err := ai.NewGateway(provider, store, aiConfig)
	if err != nil {
		slog.Error("failed to create model gateway", "error", err)
		os.Exit(1)
	}

	if err := seedPrototypes(context.Background(), gateway, store, seeds); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}
