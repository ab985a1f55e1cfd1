package dto

type RetrieveRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionId string `json:"session_id"`
	TopK      int    `json:"top_k"`
}

type RetrievedSource struct {
	Text          string                 `json:"text"`
	Metadata      map[string]interface{} `json:"metadata"`
	Score         float64                `json:"score"`
	ContainsTable bool                   `json:"contains_table,omitempty"`
}

type RetrievedImage struct {
	ImageId  string  `json:"image_id"`
	Base64   string  `json:"base64"`
	Keywords string  `json:"keywords"`
	Page     int     `json:"page"`
	Score    float64 `json:"score"`
}

type RetrieveResponse struct {
	Context string            `json:"context"`
	Sources []RetrievedSource `json:"sources"`
	Images  []RetrievedImage  `json:"images"`
}
