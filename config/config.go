package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Graph backends
const (
	BackendNeo4j    = "neo4j"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Storage modes
const (
	StorageLocal  = "local"
	StorageRemote = "remote"
)

// Config holds application configuration
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	Graph struct {
		Backend  string `yaml:"backend" validate:"oneof=neo4j postgres memory"`
		URI      string `yaml:"uri" validate:"required_unless=Backend memory"`
		Username string `yaml:"username" validate:"required_if=Backend neo4j"`
		Password string `yaml:"password" validate:"required_if=Backend neo4j"`
		Database string `yaml:"database"`
	} `yaml:"graph"`

	LLM struct {
		BaseURL           string  `yaml:"base_url" validate:"required,url"`
		APIKey            string  `yaml:"-"`
		SecondaryAPIKey   string  `yaml:"-"`
		TextModel         string  `yaml:"text_model"`
		VisionModel       string  `yaml:"vision_model"`
		RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
		Burst             int     `yaml:"burst" validate:"gte=0"`
	} `yaml:"llm"`

	Embeddings struct {
		Model     string `yaml:"model" validate:"required"`
		Dimension int    `yaml:"dimension" validate:"gt=0"`
	} `yaml:"embeddings"`

	Processing struct {
		ChunkSize    int `yaml:"chunk_size" validate:"gt=0"`
		ChunkOverlap int `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
		SummaryChars int `yaml:"summary_chars" validate:"gt=0"`
	} `yaml:"processing"`

	Storage struct {
		Mode       string `yaml:"mode" validate:"oneof=local remote"`
		BucketName string `yaml:"bucket_name" validate:"required_if=Mode remote"`
		LocalRoot  string `yaml:"local_root" validate:"required_if=Mode local"`
		Region     string `yaml:"region"`
	} `yaml:"storage"`

	Events struct {
		BusName string `yaml:"bus_name"`
	} `yaml:"events"`

	// LoadedFrom records where the overlay values came from (env or secret id)
	LoadedFrom string `yaml:"-"`
}

// Load builds the configuration from defaults, the optional yaml file, a local .env
// file and then either the process environment or the secret vault.
func Load(ctx context.Context, secrets SecretSource) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(Path()); err != nil {
		return nil, err
	}

	// .env is a development convenience; absence is not an error
	_ = godotenv.Load()

	lookup, origin, err := selectSource(ctx, os.LookupEnv, secrets)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(lookup); err != nil {
		return nil, err
	}
	cfg.LoadedFrom = origin

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the configuration file location
func Path() string {
	if p := os.Getenv("DOCGRAPH_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".docgraph", "config.yaml")
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Save saves configuration to file. Credentials are never written.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	saved := *c
	saved.Graph.Password = ""

	data, err := yaml.Marshal(&saved)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Environment = "development"
	cfg.LogLevel = "info"
	cfg.Graph.Backend = BackendNeo4j
	cfg.Graph.Database = "neo4j"
	cfg.LLM.BaseURL = "http://localhost:11434"
	cfg.LLM.TextModel = ""
	cfg.LLM.VisionModel = "llava"
	cfg.LLM.RequestsPerSecond = 2
	cfg.LLM.Burst = 4
	cfg.Embeddings.Model = "nomic-embed-text"
	cfg.Embeddings.Dimension = 768
	cfg.Processing.ChunkSize = 1000
	cfg.Processing.ChunkOverlap = 150
	cfg.Processing.SummaryChars = 4000
	cfg.Storage.Mode = StorageLocal
	cfg.Storage.LocalRoot = "local_assets"
	cfg.Storage.Region = "us-east-1"

	return cfg
}

// IsRemoteStorage reports whether extracted images go to the bucket
func (c *Config) IsRemoteStorage() bool {
	return c.Storage.Mode == StorageRemote
}

// VisionAPIKey returns the key used for image description calls
func (c *Config) VisionAPIKey() string {
	if c.LLM.SecondaryAPIKey != "" {
		return c.LLM.SecondaryAPIKey
	}
	return c.LLM.APIKey
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every required setting is present and consistent
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("configuration error: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("configuration error: %s", strings.Join(msgs, "; "))
}

// describeField renders a validation failure as "graph.uri (GRAPH_URI) is required"
func describeField(fe validator.FieldError) string {
	path := fieldPath(fe.StructNamespace())
	name := path
	if key, ok := envKeys[path]; ok {
		name = fmt.Sprintf("%s (%s)", path, key)
	}

	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return name + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", name, fe.Value())
	case "ltfield":
		return fmt.Sprintf("%s must be smaller than %s", name, snake(fe.Param()))
	default:
		return fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param())
	}
}

// fieldPath converts "Config.Graph.URI" into the yaml path "graph.uri"
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		b.WriteString(strings.ToLower(string(r)))
	}
	return b.String()
}
