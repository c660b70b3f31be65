package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeImage(t *testing.T) {
	imageData := []byte{0x89, 0x50, 0x4e, 0x47}

	var gotReq analyzeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/analyze-image", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(analyzeResponse{
			ImageType:    "exploded_view",
			Description:  "exploded view of a carburetor assembly",
			Confidence:   0.88,
			ContainsText: true,
			Tags:         []string{"carburetor", "parts"},
		})
	}))
	defer server.Close()

	analyzer, err := NewAnalyzer(testConfig(server.URL))
	require.NoError(t, err)

	result, err := analyzer.AnalyzeImage(context.Background(), imageData, "carburetor rebuild section")
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(gotReq.ImageBase64)
	require.NoError(t, err)
	assert.Equal(t, imageData, decoded)
	assert.Equal(t, "carburetor rebuild section", gotReq.Context)

	assert.Equal(t, "exploded_view", result.ImageType)
	assert.True(t, result.ContainsText)
	assert.Equal(t, []string{"carburetor", "parts"}, result.Tags)
}

func TestAnalyzeImageNilTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(analyzeResponse{
			ImageType:   "photo",
			Description: "a photo",
			Confidence:  0.7,
		})
	}))
	defer server.Close()

	analyzer, err := NewAnalyzer(testConfig(server.URL))
	require.NoError(t, err)

	result, err := analyzer.AnalyzeImage(context.Background(), []byte("img"), "")
	require.NoError(t, err)
	assert.NotNil(t, result.Tags)
	assert.Empty(t, result.Tags)
}
