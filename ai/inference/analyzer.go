package inference

import (
	"context"
	"encoding/base64"
	"log/slog"

	"github.com/poiesic/manualflow/ai"
)

// Analyzer implements ai.ImageAnalyzer against the inference service.
type Analyzer struct {
	client *client
	logger *slog.Logger
}

type analyzeRequest struct {
	ImageBase64 string `json:"image_base64"`
	Context     string `json:"context"`
}

type analyzeResponse struct {
	ImageType    string   `json:"image_type"`
	Description  string   `json:"description"`
	Confidence   float64  `json:"confidence"`
	ContainsText bool     `json:"contains_text"`
	Tags         []string `json:"tags"`
}

// newAnalyzer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnalyzer(config *ai.Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		client: newClient(config.InferenceHost),
		logger: slog.Default().With("component", "inference-analyzer"),
	}, nil
}

// NewAnalyzer creates a new image analyzer using the provided configuration.
//
// Returns ai.ImageAnalyzer interface to enforce abstraction.
func NewAnalyzer(config *ai.Config) (ai.ImageAnalyzer, error) {
	return newAnalyzer(config)
}

// AnalyzeImage sends the image to the inference service's vision model along
// with surrounding document text to ground the description.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, contextText string) (*ai.ImageAnalysis, error) {
	a.logger.Debug("analyzing image", "bytes", len(data), "context_length", len(contextText))

	var resp analyzeResponse
	err := a.client.postJSON(ctx, "/analyze-image", analyzeRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		Context:     contextText,
	}, &resp)
	if err != nil {
		a.logger.Error("image analysis request failed", "err", err)
		return nil, err
	}

	tags := resp.Tags
	if tags == nil {
		tags = []string{}
	}

	return &ai.ImageAnalysis{
		ImageType:    resp.ImageType,
		Description:  resp.Description,
		Confidence:   resp.Confidence,
		ContainsText: resp.ContainsText,
		Tags:         tags,
	}, nil
}
