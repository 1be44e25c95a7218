// Package filestorage stores generated images and participant selfies. The
// engine depends only on this narrow contract, never on backend internals.
package filestorage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
)

type Storage interface {
	// UploadResult stores the final image buffer under the generation's key
	// and returns its public URL.
	UploadResult(ctx context.Context, buffer []byte, generationID string) (string, error)
	// UploadSelfie stores a base64-encoded selfie under the generation's key.
	UploadSelfie(ctx context.Context, encoded string, generationID string) (string, error)
	// UploadReference stores an operator-provided reference image under a
	// content-derived name and returns its URL.
	UploadReference(ctx context.Context, buffer []byte, name string) (string, error)
	// GetResultSasURL mints a time-limited download URL for a result.
	GetResultSasURL(ctx context.Context, generationID string, expiry time.Duration) (string, error)
}

func NewStorage(cfg *config.Config) (Storage, error) {
	switch strings.ToLower(cfg.Filesystem) {
	case config.FilesystemLocal:
		return NewLocalStorage(cfg)
	case config.FilesystemS3:
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("invalid filesystem type %s", cfg.Filesystem)
	}
}

func resultKey(folder, generationID string) string {
	if folder != "" {
		return fmt.Sprintf("%s/results/%s.png", strings.TrimSuffix(folder, "/"), generationID)
	}
	return fmt.Sprintf("results/%s.png", generationID)
}

func selfieKey(folder, generationID string) string {
	if folder != "" {
		return fmt.Sprintf("%s/selfies/%s.png", strings.TrimSuffix(folder, "/"), generationID)
	}
	return fmt.Sprintf("selfies/%s.png", generationID)
}

func referenceKey(folder, name string) string {
	if folder != "" {
		return fmt.Sprintf("%s/references/%s", strings.TrimSuffix(folder, "/"), name)
	}
	return fmt.Sprintf("references/%s", name)
}

func decodeSelfie(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ","); idx != -1 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+1:]
	}

	buffer, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid selfie encoding: %w", err)
	}

	return buffer, nil
}
