package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type chunkProvider struct {
	chunks []string
	err    error
}

func (p chunkProvider) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, len(p.chunks))
	errs := make(chan error, 1)
	for _, c := range p.chunks {
		out <- c
	}
	if p.err != nil {
		errs <- p.err
	}
	close(out)
	close(errs)
	return out, errs
}

func (chunkProvider) Close() error { return nil }

func TestCompleteJoinsChunks(t *testing.T) {
	got, err := Complete(context.Background(), chunkProvider{chunks: []string{"  {\"a\":", " 1}\n"}}, "p")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)
}

func TestCompleteSurfacesStreamError(t *testing.T) {
	boom := errors.New("quota")
	_, err := Complete(context.Background(), chunkProvider{chunks: []string{"partial"}, err: boom}, "p")
	assert.ErrorIs(t, err, boom)
}

func TestCompleteEmpty(t *testing.T) {
	_, err := Complete(context.Background(), chunkProvider{}, "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestRegistry(t *testing.T) {
	Register("fake", func(context.Context) (Provider, error) { return chunkProvider{}, nil })
	defer func() {
		registryMu.Lock()
		delete(factories, "fake")
		registryMu.Unlock()
	}()

	p, err := New(context.Background(), "fake")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Contains(t, Names(), "vertex")
	assert.Contains(t, Names(), "gemini")

	_, err = New(context.Background(), "missing")
	assert.Error(t, err)
}

func TestEmbeddingValues(t *testing.T) {
	pred, err := structpb.NewValue(map[string]any{
		"embeddings": map[string]any{
			"values":     []any{0.25, -0.5, 1},
			"statistics": map[string]any{"token_count": 4},
		},
	})
	require.NoError(t, err)

	got, err := embeddingValues(pred)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, got)

	empty, err := structpb.NewValue(map[string]any{"embeddings": map[string]any{}})
	require.NoError(t, err)
	_, err = embeddingValues(empty)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = embeddingValues(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestVertexEmbedderNeedsProject(t *testing.T) {
	_, err := NewVertexEmbedder(context.Background(), "", "", "")
	assert.Error(t, err)
}
