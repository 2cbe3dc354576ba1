package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joaovfcarvalho/robo-bordero/internal/config"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
	"github.com/joaovfcarvalho/robo-bordero/internal/services"
)

var (
	pipelineInstance *services.Pipeline
	appLogger        *logger.Logger
	once             sync.Once
	initErr          error
)

func init() {
	functions.CloudEvent("ScheduledIngest", scheduledIngest)
}

// main is required by the Go Functions Framework.
func main() {}

// pubSubMessage is the envelope Eventarc uses for Pub/Sub deliveries.
type pubSubMessage struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

// scheduledIngest runs the pipeline for a Cloud Scheduler tick. The request is
// read from the Pub/Sub message data or, failing that, from the event data.
func scheduledIngest(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		cfg, _ := config.Load()
		appLogger, initErr = logger.New("production")
		if initErr != nil {
			return
		}
		pipelineInstance, initErr = services.NewPipeline(context.Background(), cfg, models.OperationFull, appLogger)
	})
	if initErr != nil {
		return fmt.Errorf("pipeline initialization failed: %w", initErr)
	}

	req, err := decodeRequest(e.Data())
	if err != nil {
		appLogger.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	res, err := pipelineInstance.Run(ctx, req, nil)
	if err != nil {
		return err
	}
	appLogger.Info("Scheduled ingest finished", "eventId", e.ID(), "runId", res.RunID, "recorded", res.Recorded)
	return nil
}

func decodeRequest(data []byte) (models.IngestRequest, error) {
	var req models.IngestRequest
	if len(data) == 0 {
		return req, nil
	}
	var msg pubSubMessage
	if err := json.Unmarshal(data, &msg); err == nil && len(msg.Message.Data) > 0 {
		data = msg.Message.Data
	}
	err := json.Unmarshal(data, &req)
	return req, err
}
