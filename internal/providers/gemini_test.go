package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiTestProvider(t *testing.T, handler http.HandlerFunc) *GeminiProvider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewGeminiProvider(
		&config.GeminiConfig{APIKey: "gk-test", BaseURL: server.URL},
		registry.MustGetModel("gemini-2.5-flash-image"),
	)
}

func TestGeminiGenerateParsesCamelCaseResponse(t *testing.T) {
	imageBytes := []byte("generated-png")

	var requestBody []byte
	provider := geminiTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		requestBody, _ = io.ReadAll(r.Body)
		assert.Equal(t, "gk-test", r.Header.Get("x-goog-api-key"))

		// The API answers with proto3 camelCase keys.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{
				"content": {
					"parts": [
						{"text": "here is your image"},
						{"inlineData": {"mimeType": "image/png", "data": "` + base64.StdEncoding.EncodeToString(imageBytes) + `"}}
					]
				}
			}]
		}`))
	})

	result, err := provider.Generate(context.Background(), "a lighthouse", [][]byte{[]byte("ref-png")}, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, imageBytes, result)

	// The request side keeps snake_case inline parts.
	var sent struct {
		Contents []struct {
			Parts []map[string]json.RawMessage `json:"parts"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(requestBody, &sent))
	require.Len(t, sent.Contents, 1)
	require.Len(t, sent.Contents[0].Parts, 2)
	assert.Contains(t, sent.Contents[0].Parts[1], "inline_data")
}

func TestGeminiGenerateNoImageInResponse(t *testing.T) {
	provider := geminiTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "cannot help with that"}]}}]}`))
	})

	_, err := provider.Generate(context.Background(), "a lighthouse", nil, GenerateOptions{})
	require.Error(t, err)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 502, provErr.Status)
}

func TestGeminiGenerateResourceExhaustedIsRateLimit(t *testing.T) {
	provider := geminiTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`))
	})

	_, err := provider.Generate(context.Background(), "a lighthouse", nil, GenerateOptions{})
	require.Error(t, err)

	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.True(t, provErr.IsRateLimit())
	assert.Equal(t, "quota exceeded", provErr.Message)
}
