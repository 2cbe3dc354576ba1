package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/joaovfcarvalho/robo-bordero/internal/config"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
	"github.com/joaovfcarvalho/robo-bordero/internal/services"
)

// ingestRunner is the part of *services.Pipeline the handler needs.
type ingestRunner interface {
	Run(ctx context.Context, req models.IngestRequest, progress services.ProgressFunc) (*models.IngestResponse, error)
}

var (
	pipelineInstance *services.Pipeline
	appLogger        *logger.Logger
	once             sync.Once
	initErr          error
)

func init() {
	functions.HTTP("HandleIngest", handleIngest)
}

// main is required by the Go Functions Framework.
func main() {}

func initPipeline() {
	cfg, _ := config.Load()
	appLogger, initErr = logger.New("production")
	if initErr != nil {
		return
	}
	pipelineInstance, initErr = services.NewPipeline(context.Background(), cfg, models.OperationFull, appLogger)
}

func handleIngest(w http.ResponseWriter, r *http.Request) {
	once.Do(initPipeline)
	if initErr != nil {
		log.Printf("CRITICAL: Pipeline initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	serveIngest(w, r, pipelineInstance, appLogger)
}

// serveIngest decodes an IngestRequest (an empty body means a full run),
// runs it and writes the IngestResponse.
func serveIngest(w http.ResponseWriter, r *http.Request, runner ingestRunner, logCtx *logger.Logger) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logCtx.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	op, err := services.ParseOperation(string(req.Operation))
	if err != nil {
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Operation = op

	res, err := runner.Run(r.Context(), req, nil)
	if err != nil && !errors.Is(err, services.ErrDownloadCancelled) {
		// The specific error is already logged inside Run.
		http.Error(w, "Internal Server Error: ingestion failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		logCtx.Error("Failed to write response", "error", err)
	}
}
