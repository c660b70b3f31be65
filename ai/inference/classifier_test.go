package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/manualflow/ai"
)

func testConfig(inferenceHost string) *ai.Config {
	return ai.NewConfig(
		ai.WithInferenceHost(inferenceHost),
		ai.WithEmbeddingHost("http://localhost:11434"),
	)
}

func TestClassifyDocument(t *testing.T) {
	var gotReq classifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/classify-document", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(classifyResponse{
			Manufacturer: "Kubota",
			DocType:      "service_manual",
			Models:       []string{"L3301", "L3901"},
			Confidence:   0.94,
		})
	}))
	defer server.Close()

	classifier, err := NewClassifier(testConfig(server.URL))
	require.NoError(t, err)

	result, err := classifier.ClassifyDocument(context.Background(), "workshop manual for tractors", "kubota_l3301_wsm.pdf")
	require.NoError(t, err)

	assert.Equal(t, "kubota_l3301_wsm.pdf", gotReq.Filename)
	assert.Equal(t, "Kubota", result.Manufacturer)
	assert.Equal(t, "service_manual", result.DocType)
	assert.Equal(t, []string{"L3301", "L3901"}, result.Models)
	assert.InDelta(t, 0.94, result.Confidence, 0.001)
}

func TestClassifyDocumentUnknownDocType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{
			Manufacturer: "Stihl",
			DocType:      "Maintenance Guide",
			Confidence:   0.5,
		})
	}))
	defer server.Close()

	classifier, err := NewClassifier(testConfig(server.URL))
	require.NoError(t, err)

	result, err := classifier.ClassifyDocument(context.Background(), "chain tensioning", "ms250.pdf")
	require.NoError(t, err)

	// Doc types outside the known set are coerced, not rejected
	assert.Equal(t, "other", result.DocType)
	assert.NotNil(t, result.Models)
	assert.Empty(t, result.Models)
}

func TestClassifyDocumentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	classifier, err := NewClassifier(testConfig(server.URL))
	require.NoError(t, err)

	_, err = classifier.ClassifyDocument(context.Background(), "text", "file.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model overloaded")
}
