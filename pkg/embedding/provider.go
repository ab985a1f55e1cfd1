package embedding

import (
	"context"
	"math"
)

// Provider turns a piece of text into a dense vector. Implementations talk
// to one backend; ordering and fallback between backends live in Generator.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchProvider is a Provider whose backend accepts many inputs in a
// single request. Generator hands these whole sub-batches instead of
// looping text by text.
type BatchProvider interface {
	Provider
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// normalizeVector scales a vector to unit length. Cosine distance in
// pgvector assumes magnitude 1, so every vector is normalized before it is
// stored or compared.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
