package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// EmbeddingDims matches the conversation_logs.embedding column.
const EmbeddingDims = 768

// Embedder turns archived answers into vectors for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}

// VertexEmbedder calls a Vertex AI text embedding model through the
// prediction endpoint.
type VertexEmbedder struct {
	client   *aiplatform.PredictionClient
	endpoint string
}

func NewVertexEmbedder(ctx context.Context, projectID, location, model string) (*VertexEmbedder, error) {
	if projectID == "" {
		return nil, errors.New("VERTEX_PROJECT_ID environment variable is not set")
	}
	if location == "" {
		location = "us-central1"
	}
	if model == "" {
		model = "text-embedding-004"
	}
	c, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(location+"-aiplatform.googleapis.com:443"))
	if err != nil {
		return nil, err
	}
	return &VertexEmbedder{
		client:   c,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", projectID, location, model),
	}, nil
}

// NewVertexEmbedderFromEnv reads the same VERTEX_* settings as the vertex
// provider.
func NewVertexEmbedderFromEnv(ctx context.Context, model string) (*VertexEmbedder, error) {
	return NewVertexEmbedder(ctx, os.Getenv("VERTEX_PROJECT_ID"), os.Getenv("VERTEX_LOCATION"), model)
}

func (e *VertexEmbedder) Close() error { return e.client.Close() }

func (e *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	inst, err := structpb.NewValue(map[string]any{
		"content":   text,
		"task_type": "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		return nil, err
	}
	params, err := structpb.NewValue(map[string]any{"outputDimensionality": EmbeddingDims})
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   e.endpoint,
		Instances:  []*structpb.Value{inst},
		Parameters: params,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GetPredictions()) == 0 {
		return nil, ErrEmptyResponse
	}
	return embeddingValues(resp.GetPredictions()[0])
}

// embeddingValues reads {"embeddings": {"values": [...]}}.
func embeddingValues(pred *structpb.Value) ([]float32, error) {
	vals := pred.GetStructValue().GetFields()["embeddings"].GetStructValue().GetFields()["values"].GetListValue().GetValues()
	if len(vals) == 0 {
		return nil, ErrEmptyResponse
	}
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v.GetNumberValue())
	}
	return out, nil
}
