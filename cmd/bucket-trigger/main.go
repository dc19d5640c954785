package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/adityasasidhar/Document-ocr/internal/app"
	"github.com/adityasasidhar/Document-ocr/internal/config"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/adityasasidhar/Document-ocr/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	bucketInstance *services.BucketFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("GenerateFromBucket", generateFromBucket)
}

// main is required by the Go Functions Framework.
func main() {}

func generateFromBucket(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load("")
		if initErr != nil {
			return
		}
		if initErr = cfg.ValidateProcessing(); initErr != nil {
			return
		}
		// Clients live for the lifetime of the instance.
		bucketInstance, _, initErr = app.NewBucketFunction(context.Background(), cfg)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside ProcessFile; returning one marks
	// the invocation as failed so the event is retried.
	_, err := bucketInstance.ProcessFile(ctx, gcsEvent)
	return err
}
