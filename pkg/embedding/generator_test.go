package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type stubProvider struct {
	name  string
	dim   int
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	vec := make([]float32, s.dim)
	vec[0] = 1
	return vec, nil
}

// stubBatchProvider records how many requests it received and how many
// texts each carried.
type stubBatchProvider struct {
	stubProvider
	batchSizes []int
}

func (s *stubBatchProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	s.batchSizes = append(s.batchSizes, len(texts))
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, s.dim)
		vec[0] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

func l2Norm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestEmbedBatchUsesPrimaryProvider(t *testing.T) {
	primary := &stubProvider{name: "primary", dim: 8}
	secondary := &stubProvider{name: "secondary", dim: 8}
	gen := NewGenerator(nopLogger{}, 8, 4, primary, secondary)

	res, err := gen.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, res.Embeddings, 3)

	for _, r := range res.Embeddings {
		assert.False(t, r.Placeholder)
		assert.Equal(t, "primary", r.Model)
		assert.Len(t, r.Vector, 8)
	}
	assert.Equal(t, 3, res.Successful)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestEmbedBatchSendsOneRequestPerSubBatch(t *testing.T) {
	batcher := &stubBatchProvider{stubProvider: stubProvider{name: "batcher", dim: 8}}
	gen := NewGenerator(nopLogger{}, 8, 2, batcher)

	res, err := gen.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, res.Embeddings, 5)

	assert.Equal(t, []int{2, 2, 1}, batcher.batchSizes)
	assert.Equal(t, 5, res.Successful)
	for _, r := range res.Embeddings {
		assert.Equal(t, "batcher", r.Model)
	}
}

func TestEmbedBatchFallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("connection refused")}
	secondary := &stubProvider{name: "secondary", dim: 8}
	gen := NewGenerator(nopLogger{}, 8, 4, primary, secondary)

	res, err := gen.EmbedBatch(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.Equal(t, "secondary", res.Embeddings[0].Model)
	assert.False(t, res.Embeddings[0].Placeholder)
	assert.Equal(t, 1, res.Successful)
}

func TestEmbedBatchFallsBackWhenBatchProviderFails(t *testing.T) {
	batcher := &stubBatchProvider{stubProvider: stubProvider{name: "batcher", err: errors.New("429")}}
	secondary := &stubProvider{name: "secondary", dim: 8}
	gen := NewGenerator(nopLogger{}, 8, 4, batcher, secondary)

	res, err := gen.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, batcher.calls)
	assert.Equal(t, 2, secondary.calls)
	for _, r := range res.Embeddings {
		assert.Equal(t, "secondary", r.Model)
	}
	assert.Equal(t, 2, res.Successful)
}

func TestEmbedBatchDegradesToPlaceholders(t *testing.T) {
	broken := &stubProvider{name: "broken", err: errors.New("down")}
	gen := NewGenerator(nopLogger{}, 16, 4, broken)

	res, err := gen.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, res.Embeddings, 2)

	for _, r := range res.Embeddings {
		assert.True(t, r.Placeholder)
		assert.Equal(t, "placeholder", r.Model)
		assert.Len(t, r.Vector, 16)
		assert.InDelta(t, 1.0, l2Norm(r.Vector), 1e-6, "placeholder must be unit length")
	}
	assert.Equal(t, 0, res.Successful)
	assert.Equal(t, 2, res.Failed)
}

func TestEmbedBatchRejectsWrongDimension(t *testing.T) {
	wrong := &stubProvider{name: "wrong", dim: 4}
	gen := NewGenerator(nopLogger{}, 8, 4, wrong)

	res, err := gen.EmbedBatch(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.True(t, res.Embeddings[0].Placeholder)
	assert.Equal(t, 1, res.Failed)
}

func TestEmbedBatchCachesRepeatedText(t *testing.T) {
	primary := &stubProvider{name: "primary", dim: 8}
	gen := NewGenerator(nopLogger{}, 8, 4, primary)

	res, err := gen.EmbedBatch(context.Background(), []string{"same text", "same text", "same text"})
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 2, res.CacheHits)
}

func TestEmbedBatchCountsCacheHitsAcrossCalls(t *testing.T) {
	primary := &stubProvider{name: "primary", dim: 8}
	gen := NewGenerator(nopLogger{}, 8, 4, primary)

	_, err := gen.EmbedBatch(context.Background(), []string{"warm"})
	require.NoError(t, err)

	res, err := gen.EmbedBatch(context.Background(), []string{"warm", "cold"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CacheHits)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 2, primary.calls)
}

func TestEmbedBatchPlaceholdersAreNotCached(t *testing.T) {
	flaky := &stubProvider{name: "flaky", err: errors.New("down")}
	gen := NewGenerator(nopLogger{}, 8, 4, flaky)

	_, err := gen.EmbedBatch(context.Background(), []string{"text"})
	require.NoError(t, err)

	// provider recovers
	flaky.err = nil
	flaky.dim = 8
	res, err := gen.EmbedBatch(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.False(t, res.Embeddings[0].Placeholder)
}

func TestEmbedQueryFailsWithoutProviders(t *testing.T) {
	gen := NewGenerator(nopLogger{}, 8, 4, &stubProvider{name: "down", err: errors.New("down")})

	_, err := gen.EmbedQuery(context.Background(), "what is the torque spec")
	assert.Error(t, err)
}

func TestEmbedBatchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(nopLogger{}, 8, 4, &stubProvider{name: "p", dim: 8})
	_, err := gen.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeVectorUnitLength(t *testing.T) {
	vec := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 1.0, l2Norm(vec), 1e-6)
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
}

func TestNormalizeVectorZeroVector(t *testing.T) {
	vec := normalizeVector([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, vec)
}
