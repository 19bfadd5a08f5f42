package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string              `mapstructure:"port"`
	AIProvider          string              `mapstructure:"ai_provider"`
	AIEndpoint          string              `mapstructure:"ai_endpoint"`
	Model               string              `mapstructure:"model"`
	EmbeddingModel      string              `mapstructure:"embedding_model"`
	OpenAIAPIKey        string              `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKeys       []string            `mapstructure:"gemini_api_keys"`
	MongoURI            string              `mapstructure:"MONGODB_URI"`
	MongoDatabase       string              `mapstructure:"mongo_database"`
	Ingest              IngestConfig        `mapstructure:"ingest"`
	WeaviateStoreConfig WeaviateStoreConfig `mapstructure:"weaviate_store_config"`
}

// IngestConfig holds the pipeline tunables. Thresholds and batch sizes are
// operational knobs, not load-bearing constants.
type IngestConfig struct {
	PageOverlap         int     `mapstructure:"page_overlap"`          // margin pages around a section slice
	MaxSectionPages     int     `mapstructure:"max_section_pages"`     // above this a section is extracted in batches
	BatchPageSize       int     `mapstructure:"batch_page_size"`       // pages per extraction batch
	BatchPageOverlap    int     `mapstructure:"batch_page_overlap"`    // pages shared between consecutive batches
	Concurrency         int     `mapstructure:"concurrency"`           // concurrent LLM calls per wave
	SimilarityThreshold float32 `mapstructure:"similarity_threshold"`  // semantic dedup cutoff
	SaveBatchSize       int     `mapstructure:"save_batch_size"`       // items per persistence batch
	MaxParentPasses     int     `mapstructure:"max_parent_passes"`     // parent resolution passes before orphan promotion
}

type WeaviateStoreConfig struct {
	Host         string       `mapstructure:"host"`
	APIKey       string       `mapstructure:"WEAVIATE_APIKEY"`
	Text2Vec     string       `mapstructure:"text2vec"`
	ModuleConfig ModuleConfig `mapstructure:"module_config"`
}

type ModuleConfig map[string]interface{}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		PageOverlap:         1,
		MaxSectionPages:     8,
		BatchPageSize:       6,
		BatchPageOverlap:    1,
		Concurrency:         3,
		SimilarityThreshold: 0.92,
		SaveBatchSize:       20,
		MaxParentPasses:     10,
	}
}

// Normalize fills zero values with defaults so a partially configured block
// still yields a working pipeline.
func (c *IngestConfig) Normalize() {
	def := DefaultIngestConfig()
	if c.PageOverlap < 0 {
		c.PageOverlap = def.PageOverlap
	}
	if c.MaxSectionPages <= 0 {
		c.MaxSectionPages = def.MaxSectionPages
	}
	if c.BatchPageSize <= 0 {
		c.BatchPageSize = def.BatchPageSize
	}
	if c.BatchPageOverlap < 0 || c.BatchPageOverlap >= c.BatchPageSize {
		c.BatchPageOverlap = def.BatchPageOverlap
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	if c.SaveBatchSize <= 0 {
		c.SaveBatchSize = def.SaveBatchSize
	}
	if c.MaxParentPasses <= 0 {
		c.MaxParentPasses = def.MaxParentPasses
	}
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set up Viper to read from environment variables
	v.AutomaticEnv()

	def := DefaultIngestConfig()
	v.SetDefault("mongo_database", "tutor")
	v.SetDefault("ai_provider", "openai")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("ingest.page_overlap", def.PageOverlap)
	v.SetDefault("ingest.max_section_pages", def.MaxSectionPages)
	v.SetDefault("ingest.batch_page_size", def.BatchPageSize)
	v.SetDefault("ingest.batch_page_overlap", def.BatchPageOverlap)
	v.SetDefault("ingest.concurrency", def.Concurrency)
	v.SetDefault("ingest.similarity_threshold", def.SimilarityThreshold)
	v.SetDefault("ingest.save_batch_size", def.SaveBatchSize)
	v.SetDefault("ingest.max_parent_passes", def.MaxParentPasses)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")
	v.BindEnv("MONGODB_URI")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Ingest.Normalize()

	return &config, nil
}
