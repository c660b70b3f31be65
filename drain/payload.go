package drain

import (
	"github.com/poiesic/manualflow/core"
)

// Queue item payloads are JSON documents written by upstream stages. Each
// artifact type has its own shape; unknown fields are ignored so upstream
// extractors can evolve their payloads without breaking the drain.

type linkPayload struct {
	URL               string         `json:"url"`
	LinkType          string         `json:"link_type"`
	Description       string         `json:"description"`
	RelatedErrorCodes []string       `json:"related_error_codes"`
	Metadata          map[string]any `json:"metadata"`
}

type videoPayload struct {
	URL      string         `json:"url"`
	Title    string         `json:"title"`
	Platform string         `json:"platform"`
	Metadata map[string]any `json:"metadata"`
}

type chunkPayload struct {
	ChunkIndex     int            `json:"chunk_index"`
	Content        string         `json:"content"`
	CleanedContent string         `json:"cleaned_content"`
	ChunkType      string         `json:"chunk_type"`
	Metadata       map[string]any `json:"metadata"`
}

type embeddingPayload struct {
	SourceID       string    `json:"source_id"`
	SourceType     string    `json:"source_type"`
	Vector         []float32 `json:"vector"`
	ModelName      string    `json:"model_name"`
	ContextSnippet string    `json:"context_snippet"`
}

type imagePayload struct {
	Filename      string   `json:"filename"`
	DataBase64    string   `json:"data_base64"`
	OCRText       string   `json:"ocr_text"`
	AIDescription string   `json:"ai_description"`
	Tags          []string `json:"tags"`
}

func chunkTypeOrDefault(name string) core.ChunkType {
	t := core.ChunkType(name)
	if t.Valid() {
		return t
	}
	return core.ChunkTypeText
}
