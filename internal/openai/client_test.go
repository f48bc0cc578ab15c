package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingAPI struct {
	embedding []float32
	tokens    int
	err       error
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.embedding, f.tokens, nil
}

func TestGenerateEmbedding_Success(t *testing.T) {
	vec := make([]float32, DefaultEmbeddingDimensions)
	vec[0] = 0.5
	c := &Client{api: &fakeEmbeddingAPI{embedding: vec, tokens: 12}, dimensions: DefaultEmbeddingDimensions}

	embedding, tokens, err := c.GenerateEmbedding(context.Background(), "some text")
	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
	assert.Equal(t, 12, tokens)
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	c := &Client{api: &fakeEmbeddingAPI{}, dimensions: DefaultEmbeddingDimensions}

	_, _, err := c.GenerateEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	c := &Client{api: &fakeEmbeddingAPI{embedding: []float32{0.1, 0.2}}, dimensions: DefaultEmbeddingDimensions}

	_, _, err := c.GenerateEmbedding(context.Background(), "text")
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestGenerateEmbedding_APIFailure(t *testing.T) {
	c := &Client{api: &fakeEmbeddingAPI{err: errors.New("service unavailable")}, dimensions: DefaultEmbeddingDimensions}

	_, _, err := c.GenerateEmbedding(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embedding")
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
