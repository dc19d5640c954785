package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
)

// WorkflowClient starts executions of one Cloud Workflow.
type WorkflowClient struct {
	client *executions.Client
	parent string
}

// WorkflowParent is the resource name executions are created under.
func WorkflowParent(projectID, location, workflowID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

func NewWorkflowClient(ctx context.Context, projectID, location, workflowID string) (*WorkflowClient, error) {
	if projectID == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowClient: projectID and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowClient{
		client: client,
		parent: WorkflowParent(projectID, location, workflowID),
	}, nil
}

// TriggerWorkflow starts an execution with payload as its JSON argument and
// returns the execution name.
func (w *WorkflowClient) TriggerWorkflow(ctx context.Context, payload any) (string, error) {
	argument, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	execution, err := w.client.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: w.parent,
		Execution: &executionspb.Execution{
			Argument: string(argument),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return execution.GetName(), nil
}

func (w *WorkflowClient) Close() error {
	return w.client.Close()
}
