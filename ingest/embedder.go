package ingest

import (
	"context"

	"github.com/medguideai/medguide/errors"
	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Embedder interface {
	// Embed returns one vector per input text, in input order, all with the
	// same provider-chosen dimensionality.
	Embed(ctx context.Context, texts ...string) ([][]float32, error)
}

type OpenAIEmbedder struct {
	client *goopenai.Client
	model  string
}

var (
	_ Embedder = (*OpenAIEmbedder)(nil)
)

func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: goopenai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := goopenai.EmbeddingNewParams{
		Input:          goopenai.F[goopenai.EmbeddingNewParamsInputUnion](goopenai.EmbeddingNewParamsInputArrayOfStrings(texts)),
		Model:          goopenai.String(e.model),
		EncodingFormat: goopenai.F(goopenai.EmbeddingNewParamsEncodingFormatFloat),
	}

	embRes, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEmbedding, "embedding request failed: %v", err)
	}

	if len(embRes.Data) != len(texts) {
		return nil, errors.Wrapf(errors.ErrEmbedding, "embedding count mismatch: got %d, expected %d", len(embRes.Data), len(texts))
	}

	embeddings := make([][]float32, len(embRes.Data))
	for i, emb := range embRes.Data {
		embedding := make([]float32, len(emb.Embedding))
		for j, val := range emb.Embedding {
			embedding[j] = float32(val)
		}
		embeddings[i] = embedding
	}

	return embeddings, nil
}
