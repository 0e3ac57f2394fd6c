package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string          `yaml:"listen_addr"`
	DB         DBConfig        `yaml:"db"`
	PolicyPath string          `yaml:"policy_path"`
	Redis      RedisConfig     `yaml:"redis"`
	AWS        AWSConfig       `yaml:"aws"`
	Retrieval  RetrievalConfig `yaml:"retrieval"`
	Router     RouterConfig    `yaml:"router"`
	Limits     LimitsConfig    `yaml:"limits"`
	Messages   MessagesConfig  `yaml:"messages"`
}

type DBConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the redis-backed knowledge index. When disabled both
// indices run in process memory.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// AWSConfig enables the hosted-model adapters. When disabled the service runs
// with the local hashing embedder and the canned generator.
type AWSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	EmbedModelID    string `yaml:"embed_model_id"`
	GenerateModelID string `yaml:"generate_model_id"`
}

// Duration parses yaml strings like "1500ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type RetrievalConfig struct {
	TopK             int      `yaml:"top_k"`
	Budget           int      `yaml:"budget"`
	NearDupThreshold float64  `yaml:"near_dup_threshold"`
	SourceTimeout    Duration `yaml:"source_timeout"`
	PolicyDocWeight  float64  `yaml:"policy_doc_weight"`
	FAQWeight        float64  `yaml:"faq_weight"`
}

type RouterConfig struct {
	Epsilon       float64 `yaml:"epsilon"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type LimitsConfig struct {
	MaxQueryChars int      `yaml:"max_query_chars"`
	MaxRetries    int      `yaml:"max_retries"`
	RetryBackoff  Duration `yaml:"retry_backoff"`
}

// MessagesConfig overrides the fixed response texts. Empty fields keep the
// built-in defaults.
type MessagesConfig struct {
	BlockedInput  string `yaml:"blocked_input"`
	BlockedOutput string `yaml:"blocked_output"`
	Fallback      string `yaml:"fallback"`
	Degraded      string `yaml:"degraded"`
}

func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	if c.DB.Driver != "" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required when db.driver is set")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enabled=true")
	}
	if c.AWS.Enabled && c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required when aws.enabled=true")
	}

	if c.Retrieval.NearDupThreshold < 0 || c.Retrieval.NearDupThreshold > 1 {
		return fmt.Errorf("retrieval.near_dup_threshold must be within [0,1]")
	}
	if c.Router.Epsilon < 0 || c.Router.Epsilon > 1 {
		return fmt.Errorf("router.epsilon must be within [0,1]")
	}
	if c.Router.MinConfidence < 0 || c.Router.MinConfidence > 1 {
		return fmt.Errorf("router.min_confidence must be within [0,1]")
	}

	return nil
}
