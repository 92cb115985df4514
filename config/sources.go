package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc resolves a configuration key. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ErrNoSource is returned when neither local settings nor a secret reference exist
var ErrNoSource = errors.New("configuration error: no local GRAPH_URI found and no SECRET_ARN provided")

// envKeys maps yaml paths to the key read from the environment or the secret JSON
var envKeys = map[string]string{
	"environment":              "ENVIRONMENT",
	"log_level":                "LOG_LEVEL",
	"graph.backend":            "GRAPH_BACKEND",
	"graph.uri":                "GRAPH_URI",
	"graph.username":           "GRAPH_USERNAME",
	"graph.password":           "GRAPH_PASSWORD",
	"graph.database":           "GRAPH_DATABASE",
	"llm.base_url":             "OLLAMA_BASE_URL",
	"llm.api_key":              "LLM_API_KEY",
	"llm.secondary_api_key":    "SECONDARY_LLM_API_KEY",
	"llm.text_model":           "TEXT_MODEL",
	"llm.vision_model":         "VISION_MODEL",
	"embeddings.model":         "EMBED_MODEL",
	"embeddings.dimension":     "EMBED_DIMENSION",
	"processing.chunk_size":    "CHUNK_SIZE",
	"processing.chunk_overlap": "CHUNK_OVERLAP",
	"storage.mode":             "STORAGE_MODE",
	"storage.bucket_name":      "BUCKET_NAME",
	"storage.local_root":       "LOCAL_ASSETS_DIR",
	"storage.region":           "AWS_REGION",
	"events.bus_name":          "EVENT_BUS_NAME",
	"llm.requests_per_second":  "LLM_REQUESTS_PER_SECOND",
	"processing.summary_chars": "SUMMARY_CHARS",
}

// aliases are the key names used by earlier deployments
var aliases = map[string][]string{
	"GRAPH_URI":             {"NEO4J_URI"},
	"GRAPH_USERNAME":        {"NEO4J_USERNAME"},
	"GRAPH_PASSWORD":        {"NEO4J_PASSWORD"},
	"LLM_API_KEY":           {"GOOGLE_API_KEY"},
	"SECONDARY_LLM_API_KEY": {"OPENROUTER_API_KEY"},
	"BUCKET_NAME":           {"S3_BUCKET_NAME"},
}

// selectSource picks the environment when the local marker is present, otherwise the
// secret vault named by SECRET_ARN. The two are mutually exclusive.
func selectSource(ctx context.Context, env LookupFunc, secrets SecretSource) (LookupFunc, string, error) {
	if _, ok := get(env, "GRAPH_URI"); ok {
		return env, "environment", nil
	}

	if arn, ok := env("SECRET_ARN"); ok && arn != "" {
		if secrets == nil {
			return nil, "", fmt.Errorf("configuration error: SECRET_ARN set but no secret source available")
		}
		values, err := secrets.SecretValues(ctx, arn)
		if err != nil {
			return nil, "", fmt.Errorf("configuration error: failed to load secret %s: %w", arn, err)
		}
		return layered(mapLookup(values), env), arn, nil
	}

	// the in-memory backend needs no credentials
	if backend, _ := env("GRAPH_BACKEND"); backend == BackendMemory {
		return env, "environment", nil
	}

	return nil, "", ErrNoSource
}

// layered resolves from primary first and falls back to secondary. Deployment settings
// such as AWS_REGION or STORAGE_MODE stay in the function environment while credentials
// live in the vault.
func layered(primary, secondary LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		return secondary(key)
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// get resolves key or one of its aliases, ignoring empty values
func get(lookup LookupFunc, key string) (string, bool) {
	if v, ok := lookup(key); ok && v != "" {
		return v, true
	}
	for _, alias := range aliases[key] {
		if v, ok := lookup(alias); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Apply overlays every recognised key found through lookup. Values that do not
// parse are reported together, naming each key; the default stays in place.
func (c *Config) Apply(lookup LookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := get(lookup, key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := get(lookup, key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("configuration error: %s=%q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}

	str("ENVIRONMENT", &c.Environment)
	str("LOG_LEVEL", &c.LogLevel)

	str("GRAPH_BACKEND", &c.Graph.Backend)
	str("GRAPH_URI", &c.Graph.URI)
	str("GRAPH_USERNAME", &c.Graph.Username)
	str("GRAPH_PASSWORD", &c.Graph.Password)
	str("GRAPH_DATABASE", &c.Graph.Database)

	str("OLLAMA_BASE_URL", &c.LLM.BaseURL)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("SECONDARY_LLM_API_KEY", &c.LLM.SecondaryAPIKey)
	str("TEXT_MODEL", &c.LLM.TextModel)
	str("VISION_MODEL", &c.LLM.VisionModel)
	if v, ok := get(lookup, "LLM_REQUESTS_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("configuration error: LLM_REQUESTS_PER_SECOND=%q is not a number", v))
		} else {
			c.LLM.RequestsPerSecond = f
		}
	}

	str("EMBED_MODEL", &c.Embeddings.Model)
	num("EMBED_DIMENSION", &c.Embeddings.Dimension)

	num("CHUNK_SIZE", &c.Processing.ChunkSize)
	num("CHUNK_OVERLAP", &c.Processing.ChunkOverlap)
	num("SUMMARY_CHARS", &c.Processing.SummaryChars)

	if v, ok := get(lookup, "UPLOAD_TO_S3"); ok && strings.EqualFold(v, "true") {
		c.Storage.Mode = StorageRemote
	}
	str("STORAGE_MODE", &c.Storage.Mode)
	str("BUCKET_NAME", &c.Storage.BucketName)
	str("LOCAL_ASSETS_DIR", &c.Storage.LocalRoot)
	str("AWS_REGION", &c.Storage.Region)

	str("EVENT_BUS_NAME", &c.Events.BusName)

	return errors.Join(errs...)
}
