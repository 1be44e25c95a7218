package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
	"github.com/gabriel-vasile/mimetype"
)

const geminiCallTimeout = 2 * time.Minute

// GeminiProvider calls the generateContent endpoint with the prompt as a text
// part and each reference buffer as an inline base64 part. The response
// carries the generated image inline the same way.
type GeminiProvider struct {
	httpClient *http.Client
	cfg        *config.GeminiConfig
	model      registry.AIModel
}

func NewGeminiProvider(cfg *config.GeminiConfig, model registry.AIModel) *GeminiProvider {
	return &GeminiProvider{
		httpClient: &http.Client{},
		cfg:        cfg,
		model:      model,
	}
}

func (p *GeminiProvider) Name() string {
	return registry.ProviderGemini
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// Responses serialize proto3 camelCase keys, unlike the snake_case the request
// side accepts, so the part types cannot be shared.
type geminiResponsePart struct {
	Text       string                    `json:"text,omitempty"`
	InlineData *geminiResponseInlineData `json:"inlineData,omitempty"`
}

type geminiResponseInlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiResponsePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, refs [][]byte, opts GenerateOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiCallTimeout)
	defer cancel()

	parts := []geminiPart{{Text: prompt}}
	for _, ref := range refs {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: mimetype.Detect(ref).String(),
			Data:     ref,
		}})
	}

	payload, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: parts}}})
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimSuffix(p.cfg.BaseURL, "/")
	url := fmt.Sprintf("%s/models/%s:generateContent", baseURL, p.model.ID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &Error{Provider: p.Name(), Status: resp.StatusCode, Message: string(body)}
		if parsed.Error != nil {
			perr.Message = parsed.Error.Message
			perr.Code = parsed.Error.Status
			perr.RateLimit = parsed.Error.Status == "RESOURCE_EXHAUSTED"
		}
		return nil, perr
	}

	for _, candidate := range parsed.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, &Error{Provider: p.Name(), Status: 502, Message: "no image returned by model"}
}

var _ ImageProvider = (*GeminiProvider)(nil)
