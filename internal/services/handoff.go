package services

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/joaovfcarvalho/robo-bordero/internal/models"
)

// WorkflowTrigger starts the downstream normalization of a run's output.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, args models.NormalizeWorkflowArgs) (string, error)
}

// Handoff starts a Cloud Workflows execution that consumes jogos_resumo.csv.
type Handoff struct {
	executionsClient *executions.Client
	parent           string
}

func NewHandoff(ctx context.Context, projectID, location, workflowID string) (*Handoff, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewHandoff: projectID, location and workflowID cannot be empty")
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &Handoff{
		executionsClient: executionsClient,
		parent:           fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

// Trigger creates an execution and returns its resource name.
func (h *Handoff) Trigger(ctx context.Context, args models.NormalizeWorkflowArgs) (string, error) {
	payloadBytes, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: h.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := h.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}

func (h *Handoff) Close() error {
	return h.executionsClient.Close()
}
