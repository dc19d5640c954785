// Package config loads application settings from an optional YAML file, a
// .env file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderVertex    = "vertex"
)

type Config struct {
	Server struct {
		Port      int    `yaml:"port"`
		Debug     bool   `yaml:"debug"`
		SecretKey string `yaml:"secret_key"`
		// Serverless is set on Vercel-style deployments; it enables the
		// /test diagnostics route and the /tmp directory fallback.
		Serverless bool `yaml:"serverless"`
	} `yaml:"server"`

	LLM struct {
		Provider        string        `yaml:"provider"`
		APIKey          string        `yaml:"api_key"`
		APIKeyFile      string        `yaml:"api_key_file"`
		BaseURL         string        `yaml:"base_url"`
		AnalysisModel   string        `yaml:"analysis_model"`
		ExtractionModel string        `yaml:"extraction_model"`
		RateLimit       float64       `yaml:"rate_limit"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Storage struct {
		UploadDir    string `yaml:"upload_dir"`
		OutputDir    string `yaml:"output_dir"`
		OutputBucket string `yaml:"output_bucket"`
	} `yaml:"storage"`

	Limits struct {
		MaxFiles      int `yaml:"max_files"`
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	GCP struct {
		ProjectID        string `yaml:"project_id"`
		VertexRegion     string `yaml:"vertex_region"`
		VertexModel      string `yaml:"vertex_model"`
		JobsCollection   string `yaml:"jobs_collection"`
		WorkflowID       string `yaml:"workflow_id"`
		WorkflowLocation string `yaml:"workflow_location"`
	} `yaml:"gcp"`
}

// Load reads configuration. An empty path falls back to CONFIG_FILE and then
// to config.yaml / config.yml in the working directory; no file at all is
// fine.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not load .env file", "error", err)
	}

	if path == "" {
		path = GetEnv("CONFIG_FILE", "")
	}
	if path == "" {
		for _, loc := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	mergeWithEnv(cfg)
	applyDefaults(cfg)

	if cfg.LLM.APIKey == "" && cfg.LLM.APIKeyFile != "" {
		if data, err := os.ReadFile(cfg.LLM.APIKeyFile); err == nil {
			cfg.LLM.APIKey = strings.TrimSpace(string(data))
			slog.Info("Loaded API key from file", "path", cfg.LLM.APIKeyFile)
		}
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderAnthropic
	}
	if cfg.LLM.APIKeyFile == "" {
		cfg.LLM.APIKeyFile = "anthropic_api_key.txt"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.LLM.AnalysisModel == "" {
		cfg.LLM.AnalysisModel = "claude-haiku-4-5"
	}
	if cfg.LLM.ExtractionModel == "" {
		cfg.LLM.ExtractionModel = "claude-sonnet-4-5"
	}
	if cfg.LLM.RateLimit == 0 {
		cfg.LLM.RateLimit = 2
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 10 * time.Minute
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "uploads"
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = "outputs"
	}
	if cfg.Limits.MaxFiles == 0 {
		cfg.Limits.MaxFiles = 5
	}
	if cfg.Limits.MaxFileSizeMB == 0 {
		cfg.Limits.MaxFileSizeMB = 50
	}
	if cfg.GCP.VertexRegion == "" {
		cfg.GCP.VertexRegion = "us-central1"
	}
	if cfg.GCP.VertexModel == "" {
		cfg.GCP.VertexModel = "gemini-1.5-pro"
	}
	if cfg.GCP.JobsCollection == "" {
		cfg.GCP.JobsCollection = "balance_sheets"
	}
	if cfg.GCP.WorkflowLocation == "" {
		cfg.GCP.WorkflowLocation = "us-central1"
	}
}

func mergeWithEnv(cfg *Config) {
	if v := GetEnv("PORT", ""); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			slog.Warn("Ignoring invalid PORT", "value", v)
		}
	}
	if v := GetEnv("FLASK_DEBUG", ""); v != "" {
		cfg.Server.Debug = strings.EqualFold(v, "true")
	}
	setString(&cfg.Server.SecretKey, "FLASK_SECRET_KEY")
	if GetEnv("VERCEL", "") != "" {
		cfg.Server.Serverless = true
	}

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.LLM.APIKeyFile, "ANTHROPIC_API_KEY_FILE")
	setString(&cfg.LLM.BaseURL, "ANTHROPIC_BASE_URL")
	setString(&cfg.LLM.AnalysisModel, "ANALYSIS_MODEL")
	setString(&cfg.LLM.ExtractionModel, "EXTRACTION_MODEL")
	if v := GetEnv("LLM_RATE_LIMIT", ""); v != "" {
		if rl, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.RateLimit = rl
		}
	}
	if v := GetEnv("LLM_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}

	setString(&cfg.Storage.UploadDir, "UPLOAD_FOLDER")
	setString(&cfg.Storage.OutputDir, "OUTPUT_FOLDER")
	setString(&cfg.Storage.OutputBucket, "OUTPUT_BUCKET")

	setInt(&cfg.Limits.MaxFiles, "MAX_FILES")
	setInt(&cfg.Limits.MaxFileSizeMB, "MAX_FILE_SIZE_MB")

	setString(&cfg.GCP.ProjectID, "PROJECT_ID")
	setString(&cfg.GCP.VertexRegion, "VERTEX_AI_REGION")
	setString(&cfg.GCP.VertexModel, "VERTEX_MODEL")
	setString(&cfg.GCP.JobsCollection, "FIRESTORE_COLLECTION")
	setString(&cfg.GCP.WorkflowID, "WORKFLOW_ID")
	setString(&cfg.GCP.WorkflowLocation, "WORKFLOW_LOCATION")
}

// GetEnv reads an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring invalid integer setting", "key", key, "value", v)
		return
	}
	*dst = n
}

// MaxFileSize is the per-file upload limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Limits.MaxFileSizeMB) * 1024 * 1024
}
