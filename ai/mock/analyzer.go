package mock

import (
	"context"

	"github.com/poiesic/manualflow/ai"
)

// MockImageAnalyzer is a test double for ai.ImageAnalyzer.
// It allows custom behavior injection via function fields.
type MockImageAnalyzer struct {
	// AnalyzeImageFunc is called by AnalyzeImage if set.
	// If nil, uses default canned behavior.
	AnalyzeImageFunc func(ctx context.Context, data []byte, contextText string) (*ai.ImageAnalysis, error)

	callCount int
}

// NewMockImageAnalyzer creates a mock image analyzer with default behavior.
// Note: Returns concrete type to allow test assertions on call counts.
func NewMockImageAnalyzer() *MockImageAnalyzer {
	return &MockImageAnalyzer{}
}

// AnalyzeImage returns a canned analysis keyed off the image size so tests
// get stable but non-identical results for different inputs.
func (m *MockImageAnalyzer) AnalyzeImage(ctx context.Context, data []byte, contextText string) (*ai.ImageAnalysis, error) {
	m.callCount++

	if m.AnalyzeImageFunc != nil {
		return m.AnalyzeImageFunc(ctx, data, contextText)
	}

	imageType := "diagram"
	if len(data)%2 == 0 {
		imageType = "photo"
	}

	return &ai.ImageAnalysis{
		ImageType:    imageType,
		Description:  "mock analysis of image",
		Confidence:   0.85,
		ContainsText: false,
		Tags:         []string{"mock"},
	}, nil
}

// CallCount returns the number of times AnalyzeImage was called.
func (m *MockImageAnalyzer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockImageAnalyzer) Reset() {
	m.callCount = 0
	m.AnalyzeImageFunc = nil
}
