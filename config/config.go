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

// Package config loads the daemon configuration from a YAML file, with
// environment variable overrides for deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/creativeghq/matflow/ai"
)

// Config is the full daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Jobs     JobsConfig     `yaml:"jobs"`
	AI       AIConfig       `yaml:"ai"`
}

// Duration wraps time.Duration so YAML accepts "2s" style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// ServerConfig configures the admin HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig configures the database and artifact directories.
type StorageConfig struct {
	DBPath        string `yaml:"db_path"`
	DocumentsRoot string `yaml:"documents_root"`
	ImagesRoot    string `yaml:"images_root"`
}

// PipelineConfig tunes the stage executors.
type PipelineConfig struct {
	MinChunkLength   int `yaml:"min_chunk_length"`
	TargetChunkSize  int `yaml:"target_chunk_size"`
	InnerConcurrency int `yaml:"inner_concurrency"`
}

// JobsConfig tunes the orchestrator.
type JobsConfig struct {
	Workers        int      `yaml:"workers"`
	MaxAttempts    int      `yaml:"max_attempts"`
	RetryBaseDelay Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  Duration `yaml:"retry_max_delay"`
	AutoResume     bool     `yaml:"auto_resume"`
}

// AIConfig configures model tiers, hosts, and pricing.
type AIConfig struct {
	ChatHost       string                `yaml:"chat_host"`
	EmbeddingHost  string                `yaml:"embedding_host"`
	CheapModel     string                `yaml:"cheap_model"`
	DeepModel      string                `yaml:"deep_model"`
	VisionModel    string                `yaml:"vision_model"`
	EmbeddingModel string                `yaml:"embedding_model"`
	Pricing        map[string]PriceEntry `yaml:"pricing"`
}

// PriceEntry holds per-1K-token USD rates for one model.
type PriceEntry struct {
	PromptUSDPer1K     float64 `yaml:"prompt_usd_per_1k"`
	CompletionUSDPer1K float64 `yaml:"completion_usd_per_1k"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: "127.0.0.1:8390"},
		Storage: StorageConfig{
			DBPath:        "data/matflow.db",
			DocumentsRoot: "data/documents",
			ImagesRoot:    "data/images",
		},
		Jobs: JobsConfig{
			MaxAttempts:    3,
			RetryBaseDelay: Duration(2 * time.Second),
			RetryMaxDelay:  Duration(30 * time.Second),
		},
	}
}

// Load reads a YAML config file and applies environment overrides.
// An empty path returns Default with overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployments override file values without editing the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MATFLOW_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MATFLOW_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("MATFLOW_AI_HOST"); v != "" {
		c.AI.ChatHost = v
		c.AI.EmbeddingHost = v
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Storage.DBPath == "" {
		return errors.New("storage.db_path is required")
	}
	if c.Storage.DocumentsRoot == "" {
		return errors.New("storage.documents_root is required")
	}
	if c.Storage.ImagesRoot == "" {
		return errors.New("storage.images_root is required")
	}
	if c.Jobs.Workers < 0 {
		return errors.New("jobs.workers cannot be negative")
	}
	if c.Jobs.MaxAttempts <= 0 {
		return errors.New("jobs.max_attempts must be positive")
	}
	return nil
}

// AIGatewayConfig converts the file representation into the gateway's config.
func (c *Config) AIGatewayConfig() *ai.Config {
	opts := []ai.ConfigOption{}
	if c.AI.ChatHost != "" {
		opts = append(opts, ai.WithChatHost(c.AI.ChatHost))
	}
	if c.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(c.AI.EmbeddingHost))
	}
	if c.AI.CheapModel != "" {
		opts = append(opts, ai.WithCheapModel(c.AI.CheapModel))
	}
	if c.AI.DeepModel != "" {
		opts = append(opts, ai.WithDeepModel(c.AI.DeepModel))
	}
	if c.AI.VisionModel != "" {
		opts = append(opts, ai.WithVisionModel(c.AI.VisionModel))
	}
	if c.AI.EmbeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(c.AI.EmbeddingModel))
	}
	if len(c.AI.Pricing) > 0 {
		pricing := make(map[string]ai.ModelPrice, len(c.AI.Pricing))
		for model, entry := range c.AI.Pricing {
			pricing[model] = ai.ModelPrice{
				PromptUSDPer1K:     entry.PromptUSDPer1K,
				CompletionUSDPer1K: entry.CompletionUSDPer1K,
			}
		}
		opts = append(opts, ai.WithPricing(pricing))
	}
	return ai.NewConfig(opts...)
}
