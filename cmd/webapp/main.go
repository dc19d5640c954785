package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/adityasasidhar/Document-ocr/internal/app"
	"github.com/adityasasidhar/Document-ocr/internal/config"
)

var (
	webHandler http.Handler
	once       sync.Once
	initErr    error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("BalanceSheetApp", balanceSheetApp)
}

// main is required by the Go Functions Framework.
func main() {}

func balanceSheetApp(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load("")
		if initErr != nil {
			return
		}
		// Function instances run on a read-only file system apart from /tmp.
		cfg.Server.Serverless = true
		if initErr = cfg.Validate(); initErr != nil {
			return
		}
		var a *app.App
		a, initErr = app.New(context.Background(), cfg)
		if initErr != nil {
			return
		}
		webHandler = a.Handler()
	})
	if initErr != nil {
		slog.Error("CRITICAL: web app initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	webHandler.ServeHTTP(w, r)
}
