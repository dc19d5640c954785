// Package app builds the pipeline, its storage and its job tracker from
// configuration. Every entry point under cmd/ goes through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/adityasasidhar/Document-ocr/internal/config"
	"github.com/adityasasidhar/Document-ocr/internal/gcp"
	"github.com/adityasasidhar/Document-ocr/internal/handler"
	"github.com/adityasasidhar/Document-ocr/internal/jobs"
	"github.com/adityasasidhar/Document-ocr/internal/llm"
	"github.com/adityasasidhar/Document-ocr/internal/router"
	"github.com/adityasasidhar/Document-ocr/internal/services"
	"github.com/adityasasidhar/Document-ocr/internal/session"
	bstorage "github.com/adityasasidhar/Document-ocr/internal/storage"
)

// App holds the long-lived dependencies of the web app.
type App struct {
	Config    *config.Config
	Generator *services.Generator
	Tracker   jobs.Tracker
	Uploads   *bstorage.LocalStore
	Outputs   bstorage.Store
	Service   *services.BalanceSheetService

	outputDir string
	closers   []func() error
}

// NewLLMClient returns the configured provider. The returned func releases
// its resources.
func NewLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, func() error, error) {
	switch cfg.LLM.Provider {
	case config.ProviderVertex:
		client, err := gcp.NewVertexClient(ctx, cfg.GCP.ProjectID, cfg.GCP.VertexRegion, cfg.GCP.VertexModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
		}
		return client, client.Close, nil
	default:
		if cfg.LLM.APIKey == "" {
			slog.Warn("No API key found in environment or key file.", "keyFile", cfg.LLM.APIKeyFile)
		}
		ac := llm.DefaultAnthropicConfig(cfg.LLM.APIKey)
		ac.BaseURL = cfg.LLM.BaseURL
		ac.Timeout = cfg.LLM.Timeout
		ac.RateLimit = cfg.LLM.RateLimit
		return llm.NewAnthropicClient(ac), func() error { return nil }, nil
	}
}

// NewGenerator returns a generator on the configured provider.
func NewGenerator(ctx context.Context, cfg *config.Config) (*services.Generator, func() error, error) {
	client, closeFn, err := NewLLMClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return services.NewGenerator(client, generatorConfig(cfg)), closeFn, nil
}

func generatorConfig(cfg *config.Config) services.GeneratorConfig {
	return services.GeneratorConfig{
		AnalysisModel:   cfg.LLM.AnalysisModel,
		ExtractionModel: cfg.LLM.ExtractionModel,
		MaxFiles:        cfg.Limits.MaxFiles,
	}
}

// NewTracker returns a Firestore tracker when a project is configured and an
// in-memory one otherwise.
func NewTracker(ctx context.Context, cfg *config.Config) (jobs.Tracker, func() error, error) {
	if cfg.GCP.ProjectID == "" {
		return jobs.NewMemoryTracker(), func() error { return nil }, nil
	}
	client, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return jobs.NewFirestoreTracker(client, cfg.GCP.JobsCollection), client.Close, nil
}

// New builds the web app. Directories that cannot be created fall back to
// temporary ones.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	generator, closeFn, err := NewGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Generator = generator
	a.closers = append(a.closers, closeFn)

	tracker, closeFn, err := NewTracker(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Tracker = tracker
	a.closers = append(a.closers, closeFn)

	uploadDir, err := bstorage.EnsureDir(cfg.Storage.UploadDir, "uploads")
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Uploads = bstorage.NewLocalStore(uploadDir)

	if cfg.Storage.OutputBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.Outputs = bstorage.NewGCSStore(client, cfg.Storage.OutputBucket, "outputs")
	} else {
		outputDir, err := bstorage.EnsureDir(cfg.Storage.OutputDir, "outputs")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.outputDir = outputDir
		a.Outputs = bstorage.NewLocalStore(outputDir)
	}

	a.Service = services.NewBalanceSheetService(a.Generator, a.Uploads, a.Outputs, a.Tracker, services.Limits{
		MaxFiles:    cfg.Limits.MaxFiles,
		MaxFileSize: cfg.MaxFileSize(),
	})

	slog.Info("Application initialized.",
		"uploadFolder", a.Uploads.Dir(),
		"outputFolder", a.Outputs.Location(""),
		"maxFiles", cfg.Limits.MaxFiles,
		"maxFileSizeMB", cfg.Limits.MaxFileSizeMB,
		"provider", cfg.LLM.Provider,
	)
	return a, nil
}

// Handler returns the routed web app.
func (a *App) Handler() http.Handler {
	sessions := session.NewManager(a.Config.Server.SecretKey, a.Config.Server.Serverless)
	h := handler.New(a.Service, a.Outputs, sessions, handler.Options{
		UploadDir:        a.Uploads.Dir(),
		OutputDir:        a.outputDir,
		APIKeyConfigured: a.Config.LLM.Provider == config.ProviderVertex || a.Config.LLM.APIKey != "",
		Serverless:       a.Config.Server.Serverless,
	})
	return router.New(h, a.Config.Server.Serverless)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewBucketFunction builds the bucket trigger: GCS in and out, Firestore job
// records, and a workflow hand-off when WORKFLOW_ID is set.
func NewBucketFunction(ctx context.Context, cfg *config.Config) (*services.BucketFunction, func() error, error) {
	if cfg.Storage.OutputBucket == "" {
		return nil, nil, errors.New("OUTPUT_BUCKET must be set")
	}
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	generator, closeFn, err := NewGenerator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeFn)

	tracker, closeFn, err := NewTracker(ctx, cfg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, closeFn)

	client, err := storage.NewClient(ctx)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	closers = append(closers, client.Close)

	var workflow services.WorkflowTrigger
	if cfg.GCP.WorkflowID != "" {
		wc, err := gcp.NewWorkflowClient(ctx, cfg.GCP.ProjectID, cfg.GCP.WorkflowLocation, cfg.GCP.WorkflowID)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, wc.Close)
		workflow = wc
	}

	fn := services.NewBucketFunction(generator, gcp.NewObjects(client), tracker, workflow, services.BucketConfig{
		OutputBucket: cfg.Storage.OutputBucket,
		MaxFileSize:  cfg.MaxFileSize(),
	})
	return fn, closeAll, nil
}
