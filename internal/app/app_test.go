package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/adityasasidhar/Document-ocr/internal/config"
	"github.com/adityasasidhar/Document-ocr/internal/jobs"
	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Server.Port = 5000
	cfg.Server.SecretKey = "secret"
	cfg.LLM.Provider = config.ProviderAnthropic
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.AnalysisModel = "claude-haiku-4-5"
	cfg.LLM.ExtractionModel = "claude-sonnet-4-5"
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.OutputDir = filepath.Join(dir, "outputs")
	cfg.Limits.MaxFiles = 5
	cfg.Limits.MaxFileSizeMB = 10
	return cfg
}

func TestNewLocalApp(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &jobs.MemoryTracker{}, a.Tracker)
	assert.DirExists(t, cfg.Storage.UploadDir)
	assert.DirExists(t, cfg.Storage.OutputDir)
	assert.Equal(t, int64(10<<20), a.Service.Limits().MaxFileSize)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "diagnostics only on serverless")
}

func TestNewLLMClientDefaultsToAnthropic(t *testing.T) {
	client, closeFn, err := NewLLMClient(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &llm.AnthropicClient{}, client)
}

func TestNewBucketFunctionNeedsOutputBucket(t *testing.T) {
	_, _, err := NewBucketFunction(context.Background(), testConfig(t))
	assert.EqualError(t, err, "OUTPUT_BUCKET must be set")
}
