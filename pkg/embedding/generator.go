package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/pkg/logger"
)

// Embedded is one text's embedding outcome. Placeholder vectors are random
// unit vectors minted when every provider failed, so the document still
// lands in the store; retrieval treats them as near-noise and reprocessing
// replaces them.
type Embedded struct {
	Vector      []float32
	Model       string
	Placeholder bool
}

// Generator batches texts through a provider chain with a content-addressed
// cache in front. It degrades instead of failing: a batch always produces
// exactly one Embedded per input text.
type Generator struct {
	providers []Provider
	cache     *gocache.Cache
	dimension int
	batchSize int
	log       logger.ILogger
}

func NewGenerator(log logger.ILogger, dimension, batchSize int, providers ...Provider) *Generator {
	if dimension <= 0 {
		dimension = 768
	}
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Generator{
		providers: providers,
		cache:     gocache.New(30*time.Minute, 10*time.Minute),
		dimension: dimension,
		batchSize: batchSize,
		log:       log,
	}
}

func (g *Generator) Dimension() int { return g.dimension }

// BatchResult is the outcome of one EmbedBatch call: one Embedded per
// input text, in order, plus how the batch was served.
type BatchResult struct {
	Embeddings []Embedded
	Successful int
	Failed     int
	CacheHits  int
}

// EmbedBatch embeds texts in provider-sized sub-batches. Providers that
// accept multiple inputs get the whole sub-batch in one request; the rest
// are asked text by text. It returns an error only when the context is
// cancelled; provider failures degrade to placeholders instead.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) (*BatchResult, error) {
	res := &BatchResult{Embeddings: make([]Embedded, len(texts))}
	for start := 0; start < len(texts); start += g.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.embedSubBatch(ctx, texts, start, end, res)
	}
	return res, nil
}

func (g *Generator) embedSubBatch(ctx context.Context, texts []string, start, end int, res *BatchResult) {
	var pending []int
	for i := start; i < end; i++ {
		if hit, ok := g.cachedEmbedding(texts[i]); ok {
			res.Embeddings[i] = hit
			res.CacheHits++
			continue
		}
		pending = append(pending, i)
	}

	for _, provider := range g.providers {
		if len(pending) == 0 {
			return
		}
		if batcher, ok := provider.(BatchProvider); ok {
			pending = g.embedManyThrough(ctx, batcher, texts, pending, res)
		} else {
			pending = g.embedEachThrough(ctx, provider, texts, pending, res)
		}
	}

	for _, i := range pending {
		g.log.Warn("Embedding", "all providers failed, minting placeholder", map[string]interface{}{
			"chars": len(texts[i]),
		})
		res.Embeddings[i] = Embedded{
			Vector:      placeholderVector(g.dimension),
			Model:       "placeholder",
			Placeholder: true,
		}
		res.Failed++
	}
}

// embedManyThrough sends every pending text to a batch-capable provider in
// one request and returns the indices it could not serve.
func (g *Generator) embedManyThrough(ctx context.Context, provider BatchProvider, texts []string, pending []int, res *BatchResult) []int {
	input := make([]string, len(pending))
	for n, i := range pending {
		input[n] = texts[i]
	}

	vectors, err := provider.EmbedMany(ctx, input)
	if err != nil {
		g.log.Warn("Embedding", "provider failed", map[string]interface{}{
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		return pending
	}
	if len(vectors) != len(pending) {
		g.log.Warn("Embedding", "provider returned wrong batch size", map[string]interface{}{
			"provider": provider.Name(),
			"expected": len(pending),
			"got":      len(vectors),
		})
		return pending
	}

	var remaining []int
	for n, i := range pending {
		if len(vectors[n]) != g.dimension {
			g.log.Warn("Embedding", "provider returned wrong dimension", map[string]interface{}{
				"provider": provider.Name(),
				"expected": g.dimension,
				"got":      len(vectors[n]),
			})
			remaining = append(remaining, i)
			continue
		}
		g.accept(texts[i], Embedded{Vector: vectors[n], Model: provider.Name()}, i, res)
	}
	return remaining
}

// embedEachThrough asks a single-text provider for every pending item. A
// duplicate earlier in the batch may have filled the cache by the time a
// later index comes up, so the cache is re-checked per text.
func (g *Generator) embedEachThrough(ctx context.Context, provider Provider, texts []string, pending []int, res *BatchResult) []int {
	var remaining []int
	for _, i := range pending {
		if hit, ok := g.cachedEmbedding(texts[i]); ok {
			res.Embeddings[i] = hit
			res.CacheHits++
			continue
		}

		vec, err := provider.Embed(ctx, texts[i])
		if err != nil {
			g.log.Warn("Embedding", "provider failed", map[string]interface{}{
				"provider": provider.Name(),
				"error":    err.Error(),
			})
			remaining = append(remaining, i)
			continue
		}
		if len(vec) != g.dimension {
			g.log.Warn("Embedding", "provider returned wrong dimension", map[string]interface{}{
				"provider": provider.Name(),
				"expected": g.dimension,
				"got":      len(vec),
			})
			remaining = append(remaining, i)
			continue
		}

		g.accept(texts[i], Embedded{Vector: vec, Model: provider.Name()}, i, res)
	}
	return remaining
}

func (g *Generator) accept(text string, emb Embedded, i int, res *BatchResult) {
	g.cache.Set(cacheKey(text), emb, gocache.DefaultExpiration)
	res.Embeddings[i] = emb
	res.Successful++
}

func (g *Generator) cachedEmbedding(text string) (Embedded, bool) {
	if cached, found := g.cache.Get(cacheKey(text)); found {
		if hit, ok := cached.(Embedded); ok {
			return hit, true
		}
	}
	return Embedded{}, false
}

// EmbedQuery embeds a single query string. Unlike document embedding it
// fails hard: answering a search with a random vector would return noise
// dressed up as results.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res := g.embedOne(ctx, text)
	if res.Placeholder {
		return nil, apperror.Embedding("no embedding provider available for query", nil)
	}
	return res.Vector, nil
}

func (g *Generator) embedOne(ctx context.Context, text string) Embedded {
	if hit, ok := g.cachedEmbedding(text); ok {
		return hit
	}

	for _, provider := range g.providers {
		vec, err := provider.Embed(ctx, text)
		if err != nil {
			g.log.Warn("Embedding", "provider failed", map[string]interface{}{
				"provider": provider.Name(),
				"error":    err.Error(),
			})
			continue
		}
		if len(vec) != g.dimension {
			g.log.Warn("Embedding", "provider returned wrong dimension", map[string]interface{}{
				"provider": provider.Name(),
				"expected": g.dimension,
				"got":      len(vec),
			})
			continue
		}

		res := Embedded{Vector: vec, Model: provider.Name()}
		g.cache.Set(cacheKey(text), res, gocache.DefaultExpiration)
		return res
	}

	g.log.Warn("Embedding", "all providers failed, minting placeholder", map[string]interface{}{
		"chars": len(text),
	})
	return Embedded{
		Vector:      placeholderVector(g.dimension),
		Model:       "placeholder",
		Placeholder: true,
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// placeholderVector returns a random unit vector. Placeholders are never
// cached so a recovered provider replaces them on the next attempt.
func placeholderVector(dimension int) []float32 {
	vec := make([]float32, dimension)
	for i := range vec {
		vec[i] = float32(rand.NormFloat64())
	}
	return normalizeVector(vec)
}
