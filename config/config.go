// Copyright 2025 Poiesic Systems
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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/sanket/ai"
	"github.com/poiesic/sanket/core"
)

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Search    SearchConfig    `yaml:"search"`
	Answer    AnswerConfig    `yaml:"answer"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// SourceConfig locates the publisher's documents.
type SourceConfig struct {
	ListingURL  string        `yaml:"listing_url"`
	DocumentURL string        `yaml:"document_url"`
	Keyword     string        `yaml:"keyword"`
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"`
	MaxBytes    int64         `yaml:"max_bytes"`
	UserAgent   string        `yaml:"user_agent"`
}

// AIConfig selects the embedding and generation provider.
type AIConfig struct {
	Provider        string  `yaml:"provider"`
	Host            string  `yaml:"host"`
	EmbeddingHost   string  `yaml:"embedding_host"`
	GenerationHost  string  `yaml:"generation_host"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	GenerationModel string  `yaml:"generation_model"`
	APIKey          string  `yaml:"api_key"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
}

// StorageConfig chooses where vectors, state and records live.
// Pipeline state is always kept in the Badger directory at Path.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	InMemory    bool   `yaml:"in_memory"`
	DatabaseURL string `yaml:"database_url"`
	Dimensions  int    `yaml:"dimensions"`
	Lists       int    `yaml:"lists"`
	Metric      string `yaml:"metric"`
}

// EmbeddingConfig tunes the embedding generator.
type EmbeddingConfig struct {
	BatchSize   int           `yaml:"batch_size"`
	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

// IngestionConfig tunes the update orchestrator.
type IngestionConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	// RetireGrace delays deletion of a replaced namespace. A negative
	// value retires it immediately.
	RetireGrace     time.Duration `yaml:"retire_grace"`
	ChunkSize       int           `yaml:"chunk_size"`
	UpsertBatchSize int           `yaml:"upsert_batch_size"`
	SkipRateAlert   float64       `yaml:"skip_rate_alert"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	TopK         int           `yaml:"top_k"`
	MaxTopK      int           `yaml:"max_top_k"`
	MinScore     float64       `yaml:"min_score"`
	EmbedTimeout time.Duration `yaml:"embed_timeout"`
}

// AnswerConfig tunes answer synthesis.
type AnswerConfig struct {
	ContextBudget int           `yaml:"context_budget"`
	SnippetLimit  int           `yaml:"snippet_limit"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

// KafkaConfig enables lifecycle events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Enabled reports whether events should be published.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// ArchiveConfig enables source document archiving when Endpoint is set.
type ArchiveConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// Enabled reports whether documents should be archived.
func (a ArchiveConfig) Enabled() bool { return a.Endpoint != "" }

// SearchPaths returns the locations LoadConfig tries, in order.
func SearchPaths() []string {
	paths := []string{"sanket.yaml", "config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sanket", "config.yaml"))
	}
	return append(paths, "/etc/sanket/config.yaml")
}

// LoadConfig reads path, or the first file found in SearchPaths when path
// is empty. A missing config file is not an error: environment variables
// and defaults still apply.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		for _, loc := range SearchPaths() {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	if err := mergeWithEnv(config); err != nil {
		return nil, err
	}
	applyDefaults(config)
	return config, nil
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Source.Keyword == "" {
		config.Source.Keyword = "sanket"
	}
	if config.Source.Timeout == 0 {
		config.Source.Timeout = 30 * time.Second
	}
	if config.Source.RateLimit == 0 {
		config.Source.RateLimit = 1
	}

	aiDefaults := ai.DefaultConfig()
	if config.AI.Provider == "" {
		config.AI.Provider = aiDefaults.Provider
	}
	if config.AI.EmbeddingHost == "" {
		config.AI.EmbeddingHost = firstNonEmpty(config.AI.Host, aiDefaults.EmbeddingHost)
	}
	if config.AI.GenerationHost == "" {
		config.AI.GenerationHost = firstNonEmpty(config.AI.Host, aiDefaults.GenerationHost)
	}
	if config.AI.EmbeddingModel == "" {
		config.AI.EmbeddingModel = aiDefaults.EmbeddingModel
	}
	if config.AI.GenerationModel == "" {
		config.AI.GenerationModel = aiDefaults.GenerationModel
	}
	if config.AI.MaxTokens == 0 {
		config.AI.MaxTokens = aiDefaults.MaxTokens
	}

	if config.Storage.Driver == "" {
		config.Storage.Driver = DriverBadger
	}
	if config.Storage.Path == "" && !config.Storage.InMemory {
		config.Storage.Path = defaultDataDir()
	}
	if config.Storage.Dimensions == 0 {
		config.Storage.Dimensions = 768
	}
	if config.Storage.Metric == "" {
		config.Storage.Metric = string(core.MetricCosine)
	}

	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 64
	}
	if config.Embedding.MaxAttempts == 0 {
		config.Embedding.MaxAttempts = 4
	}
	if config.Embedding.BaseDelay == 0 {
		config.Embedding.BaseDelay = 500 * time.Millisecond
	}
	if config.Embedding.Timeout == 0 {
		config.Embedding.Timeout = 60 * time.Second
	}

	if config.Ingestion.PollInterval == 0 {
		config.Ingestion.PollInterval = 6 * time.Hour
	}
	if config.Ingestion.RetireGrace == 0 {
		config.Ingestion.RetireGrace = 5 * time.Minute
	}
	if config.Ingestion.ChunkSize == 0 {
		config.Ingestion.ChunkSize = 5
	}
	if config.Ingestion.UpsertBatchSize == 0 {
		config.Ingestion.UpsertBatchSize = 100
	}
	if config.Ingestion.SkipRateAlert == 0 {
		config.Ingestion.SkipRateAlert = 0.2
	}

	if config.Search.TopK == 0 {
		config.Search.TopK = 6
	}
	if config.Search.MaxTopK == 0 {
		config.Search.MaxTopK = 50
	}
	if config.Search.EmbedTimeout == 0 {
		config.Search.EmbedTimeout = 15 * time.Second
	}

	if config.Answer.ContextBudget == 0 {
		config.Answer.ContextBudget = 12000
	}
	if config.Answer.SnippetLimit == 0 {
		config.Answer.SnippetLimit = 1500
	}
	if config.Answer.Timeout == 0 {
		config.Answer.Timeout = 60 * time.Second
	}
	if config.Answer.MaxAttempts == 0 {
		config.Answer.MaxAttempts = 3
	}

	if config.Kafka.Topic == "" {
		config.Kafka.Topic = "sanket.index"
	}
	if config.Kafka.WriteTimeout == 0 {
		config.Kafka.WriteTimeout = 10 * time.Second
	}
	if config.Archive.Bucket == "" {
		config.Archive.Bucket = "sanket-documents"
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "sanket")
	}
	return "sanket-data"
}

func mergeWithEnv(config *Config) error {
	setString(&config.Source.ListingURL, "SANKET_LISTING_URL")
	setString(&config.Source.DocumentURL, "SANKET_DOCUMENT_URL")
	setString(&config.AI.Provider, "SANKET_AI_PROVIDER")
	setString(&config.AI.Host, "SANKET_AI_HOST")
	setString(&config.AI.EmbeddingModel, "SANKET_EMBEDDING_MODEL")
	setString(&config.AI.GenerationModel, "SANKET_GENERATION_MODEL")
	setString(&config.AI.APIKey, "OPENAI_API_KEY")
	setString(&config.Storage.Path, "SANKET_DATA_DIR")
	setString(&config.Storage.DatabaseURL, "DATABASE_URL")
	if os.Getenv("DATABASE_URL") != "" && config.Storage.Driver == "" {
		config.Storage.Driver = DriverPostgres
	}
	setString(&config.Storage.Driver, "SANKET_STORAGE_DRIVER")
	setString(&config.Kafka.Topic, "SANKET_KAFKA_TOPIC")
	if brokers := os.Getenv("SANKET_KAFKA_BROKERS"); brokers != "" {
		config.Kafka.Brokers = splitList(brokers)
	}
	setString(&config.Archive.Endpoint, "SANKET_MINIO_ENDPOINT")
	setString(&config.Archive.AccessKeyID, "SANKET_MINIO_ACCESS_KEY")
	setString(&config.Archive.SecretAccessKey, "SANKET_MINIO_SECRET_KEY")
	setString(&config.Archive.Bucket, "SANKET_MINIO_BUCKET")

	if v := os.Getenv("SANKET_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SANKET_POLL_INTERVAL: %w", err)
		}
		config.Ingestion.PollInterval = d
	}
	if v := os.Getenv("SANKET_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SANKET_CHUNK_SIZE: %w", err)
		}
		config.Ingestion.ChunkSize = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AIProviderConfig converts the ai section to an ai.Config.
func (c *Config) AIProviderConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithProvider(c.AI.Provider),
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationModel(c.AI.GenerationModel),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithMaxTokens(c.AI.MaxTokens),
	)
	if c.AI.APIKey != "" {
		cfg.APIKey = c.AI.APIKey
	}
	return cfg
}

// Metric returns the parsed similarity metric.
func (c *Config) Metric() (core.Metric, error) {
	return core.ParseMetric(c.Storage.Metric)
}
