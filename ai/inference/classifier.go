package inference

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/manualflow/ai"
)

// Classifier implements ai.DocumentClassifier against the inference service.
type Classifier struct {
	client *client
	model  string
	logger *slog.Logger
}

type classifyRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	Model    string `json:"model"`
}

type classifyResponse struct {
	Manufacturer string   `json:"manufacturer"`
	DocType      string   `json:"doc_type"`
	Models       []string `json:"models"`
	Confidence   float64  `json:"confidence"`
}

// newClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Classifier{
		client: newClient(config.InferenceHost),
		model:  config.ClassifierModel,
		logger: slog.Default().With("component", "inference-classifier"),
	}, nil
}

// NewClassifier creates a new document classifier using the provided configuration.
//
// Returns ai.DocumentClassifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.DocumentClassifier, error) {
	return newClassifier(config)
}

// ClassifyDocument asks the inference service to identify the manufacturer,
// document type, and covered models from a text sample and the filename.
// The model sometimes returns a doc type outside the known set; those are
// coerced to "other" rather than failing the stage.
func (c *Classifier) ClassifyDocument(ctx context.Context, text, filename string) (*ai.Classification, error) {
	c.logger.Debug("classifying document", "filename", filename, "sample_length", len(text))

	var resp classifyResponse
	err := c.client.postJSON(ctx, "/classify-document", classifyRequest{
		Text:     text,
		Filename: filename,
		Model:    c.model,
	}, &resp)
	if err != nil {
		c.logger.Error("classification request failed", "filename", filename, "err", err)
		return nil, err
	}

	docType := strings.ToLower(strings.TrimSpace(resp.DocType))
	if !slices.Contains(ai.DocTypes, docType) {
		c.logger.Warn("model returned unknown doc type, coercing", "doc_type", resp.DocType)
		docType = "other"
	}

	models := resp.Models
	if models == nil {
		models = []string{}
	}

	return &ai.Classification{
		Manufacturer: strings.TrimSpace(resp.Manufacturer),
		DocType:      docType,
		Models:       models,
		Confidence:   resp.Confidence,
	}, nil
}
