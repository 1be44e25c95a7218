package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/registry"
	"github.com/sashabaranov/go-openai"
)

const openaiCallTimeout = 2 * time.Minute

// OpenAIProvider generates images through the OpenAI images API. Plain
// text-to-image goes through the client library; edits go through a
// hand-built multipart request because the edit endpoint accepts several
// image parts and the client library only takes a single *os.File.
type OpenAIProvider struct {
	client     *openai.Client
	httpClient *http.Client
	cfg        *config.OpenAIConfig
	model      registry.AIModel
}

func NewOpenAIProvider(cfg *config.OpenAIConfig, model registry.AIModel) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		httpClient: &http.Client{},
		cfg:        cfg,
		model:      model,
	}
}

func (p *OpenAIProvider) Name() string {
	return registry.ProviderOpenAI
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, refs [][]byte, opts GenerateOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, openaiCallTimeout)
	defer cancel()

	if len(refs) == 0 {
		return p.textToImage(ctx, prompt, opts)
	}

	return p.editImage(ctx, prompt, refs, opts)
}

func (p *OpenAIProvider) textToImage(ctx context.Context, prompt string, opts GenerateOptions) ([]byte, error) {
	req := openai.ImageRequest{
		Model:          p.model.ID,
		Prompt:         prompt,
		N:              1,
		Size:           SizeForAspectRatio(opts.AspectRatio),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}
	if opts.Quality != "" {
		req.Quality = opts.Quality
	}

	resp, err := p.client.CreateImage(ctx, req)
	if err != nil {
		return nil, p.translateError(err)
	}

	if len(resp.Data) == 0 {
		return nil, &Error{Provider: p.Name(), Status: 502, Message: "empty image response"}
	}

	data := resp.Data[0]
	if data.B64JSON != "" {
		return base64.StdEncoding.DecodeString(data.B64JSON)
	}
	if data.URL != "" {
		return p.download(ctx, data.URL)
	}

	return nil, &Error{Provider: p.Name(), Status: 502, Message: "image response carries neither data nor url"}
}

// editImage posts a multipart form to /images/edits with one image part per
// reference buffer, ordered as given.
func (p *OpenAIProvider) editImage(ctx context.Context, prompt string, refs [][]byte, opts GenerateOptions) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", p.model.ID); err != nil {
		return nil, err
	}
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, err
	}
	if err := writer.WriteField("size", SizeForAspectRatio(opts.AspectRatio)); err != nil {
		return nil, err
	}
	if opts.Quality != "" {
		if err := writer.WriteField("quality", opts.Quality); err != nil {
			return nil, err
		}
	}

	for i, ref := range refs {
		part, err := writer.CreateFormFile("image[]", fmt.Sprintf("reference-%d.png", i))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(ref); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	baseURL := strings.TrimSuffix(p.cfg.BaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/images/edits", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.parseErrorBody(resp.StatusCode, respBody)
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
			URL     string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse edit response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, &Error{Provider: p.Name(), Status: 502, Message: "empty edit response"}
	}

	if parsed.Data[0].B64JSON != "" {
		return base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	}
	if parsed.Data[0].URL != "" {
		return p.download(ctx, parsed.Data[0].URL)
	}

	return nil, &Error{Provider: p.Name(), Status: 502, Message: "edit response carries neither data nor url"}
}

func (p *OpenAIProvider) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Provider: p.Name(), Status: resp.StatusCode, Message: "failed to download generated image"}
	}

	return io.ReadAll(resp.Body)
}

func (p *OpenAIProvider) parseErrorBody(status int, body []byte) error {
	var parsed struct {
		Error struct {
			Message string      `json:"message"`
			Type    string      `json:"type"`
			Code    interface{} `json:"code"`
		} `json:"error"`
	}

	perr := &Error{Provider: p.Name(), Status: status, Message: string(body)}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		perr.Message = parsed.Error.Message
		perr.Type = parsed.Error.Type
		perr.Code = fmt.Sprintf("%v", parsed.Error.Code)
	}

	return perr
}

func (p *OpenAIProvider) translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Provider: p.Name(),
			Status:   apiErr.HTTPStatusCode,
			Code:     fmt.Sprintf("%v", apiErr.Code),
			Type:     apiErr.Type,
			Message:  apiErr.Message,
		}
	}

	return err
}

var _ ImageProvider = (*OpenAIProvider)(nil)
