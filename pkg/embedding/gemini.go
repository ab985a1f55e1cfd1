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

const geminiModel = "text-embedding-004"

// GeminiProvider is the hosted fallback backend used when the local
// provider is down or misconfigured.
type GeminiProvider struct {
	apiKey string
	client *http.Client
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *GeminiProvider) Name() string { return "gemini/" + geminiModel }

type geminiContentPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiContentPart `json:"parts"`
}

type geminiEmbeddingRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"task_type,omitempty"`
}

type geminiEmbeddingResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, apperror.Embedding("gemini api key not configured", nil)
	}

	geminiReq := geminiEmbeddingRequest{
		Model: geminiModel,
		Content: geminiContent{
			Parts: []geminiContentPart{{Text: text}},
		},
		TaskType: "RETRIEVAL_DOCUMENT",
	}
	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, apperror.Embedding("failed to marshal gemini request", err)
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:embedContent",
		geminiModel,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, apperror.Embedding("failed to build gemini request", err)
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.Embedding("gemini request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Embedding("failed to read gemini response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Embedding(
			fmt.Sprintf("gemini error, code %d, body %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var geminiResp geminiEmbeddingResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return nil, apperror.Embedding("failed to decode gemini response", err)
	}

	return normalizeVector(geminiResp.Embedding.Values), nil
}
