package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"doc-rag-be/internal/apperror"
)

// JinaProvider is an alternative hosted backend, selectable through
// configuration when neither Ollama nor Gemini is an option.
type JinaProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewJinaProvider(apiKey string) *JinaProvider {
	return &JinaProvider{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/embeddings",
		model:   "jina-embeddings-v2-base-en",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *JinaProvider) Name() string { return "jina/" + p.model }

type jinaEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type jinaEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *JinaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany sends the whole input slice in one request. The API may
// return data entries out of order, so results are placed by index.
func (p *JinaProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody, err := json.Marshal(jinaEmbeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, apperror.Embedding("failed to marshal jina request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, apperror.Embedding("failed to build jina request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.Embedding("jina request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Embedding("failed to read jina response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Embedding(
			fmt.Sprintf("jina error (status %d): %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var jinaResp jinaEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, apperror.Embedding("failed to decode jina response", err)
	}
	if jinaResp.Error != nil {
		return nil, apperror.Embedding("jina returned error: "+jinaResp.Error.Message, nil)
	}
	if len(jinaResp.Data) != len(texts) {
		return nil, apperror.Embedding(
			fmt.Sprintf("jina returned %d embeddings for %d inputs", len(jinaResp.Data), len(texts)), nil)
	}

	vectors := make([][]float32, len(texts))
	for _, item := range jinaResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, apperror.Embedding("jina returned out-of-range index", nil)
		}
		vectors[item.Index] = normalizeVector(item.Embedding)
	}
	return vectors, nil
}
