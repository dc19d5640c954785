package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("  BILANCIO "),
				genai.Blob{MIMEType: "image/png", Data: []byte{1}},
				genai.Text("D'ESERCIZIO  "),
			}},
		}},
	}
	assert.Equal(t, "BILANCIO D'ESERCIZIO", responseText(resp))
}

func TestIsRefusal(t *testing.T) {
	assert.True(t, isRefusal("I am unable to read these documents."))
	assert.True(t, isRefusal("As a large language model, I ..."))
	assert.False(t, isRefusal(`{"company_name": "ACME S.R.L."}`))
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusPreconditionFailed}))
	assert.True(t, isPreconditionFailed(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 412})))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(errors.New("boom")))
}

func TestWorkflowParentAndObjectURI(t *testing.T) {
	assert.Equal(t, "projects/p/locations/us-central1/workflows/bilancio",
		WorkflowParent("p", "us-central1", "bilancio"))
	assert.Equal(t, "gs://out/abc/bilancio.pdf", ObjectURI("out", "abc/bilancio.pdf"))
}

func TestNewFirestoreClientNeedsProject(t *testing.T) {
	client, err := NewFirestoreClient(context.Background(), "")
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "PROJECT_ID")
}
