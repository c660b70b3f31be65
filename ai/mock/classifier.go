package mock

import (
	"context"
	"strings"

	"github.com/poiesic/manualflow/ai"
)

// MockClassifier is a test double for ai.DocumentClassifier.
// It allows custom behavior injection via function fields.
type MockClassifier struct {
	// ClassifyDocumentFunc is called by ClassifyDocument if set.
	// If nil, uses default keyword-based behavior.
	ClassifyDocumentFunc func(ctx context.Context, text, filename string) (*ai.Classification, error)

	callCount int
}

// NewMockClassifier creates a mock classifier with default keyword behavior.
// Note: Returns concrete type to allow test assertions on call counts.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// ClassifyDocument produces a classification from simple keyword matching.
// Default behavior: scans text and filename for doc type keywords and picks
// a manufacturer from the first capitalized word of the filename.
func (m *MockClassifier) ClassifyDocument(ctx context.Context, text, filename string) (*ai.Classification, error) {
	m.callCount++

	if m.ClassifyDocumentFunc != nil {
		return m.ClassifyDocumentFunc(ctx, text, filename)
	}

	haystack := strings.ToLower(text + " " + filename)

	docType := "other"
	for _, dt := range ai.DocTypes {
		needle := strings.ReplaceAll(dt, "_", " ")
		if strings.Contains(haystack, needle) || strings.Contains(haystack, dt) {
			docType = dt
			break
		}
	}

	manufacturer := "Unknown"
	base := strings.TrimSuffix(filename, ".pdf")
	if fields := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}); len(fields) > 0 {
		manufacturer = fields[0]
	}

	return &ai.Classification{
		Manufacturer: manufacturer,
		DocType:      docType,
		Models:       []string{},
		Confidence:   0.9,
	}, nil
}

// CallCount returns the number of times ClassifyDocument was called.
func (m *MockClassifier) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockClassifier) Reset() {
	m.callCount = 0
	m.ClassifyDocumentFunc = nil
}
