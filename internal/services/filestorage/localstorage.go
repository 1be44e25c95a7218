package filestorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
)

// LocalStorage keeps files under the assets directory and serves them through
// the /file endpoint. SAS expiry is not enforceable on plain files, so the
// minted URL is simply the public one.
type LocalStorage struct {
	assetsDir string
	publicURL string
}

func NewLocalStorage(cfg *config.Config) (*LocalStorage, error) {
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	return &LocalStorage{
		assetsDir: cfg.AssetsDir,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s *LocalStorage) UploadResult(ctx context.Context, buffer []byte, generationID string) (string, error) {
	return s.write(resultKey("", generationID), buffer)
}

func (s *LocalStorage) UploadSelfie(ctx context.Context, encoded string, generationID string) (string, error) {
	buffer, err := decodeSelfie(encoded)
	if err != nil {
		return "", err
	}

	return s.write(selfieKey("", generationID), buffer)
}

func (s *LocalStorage) UploadReference(ctx context.Context, buffer []byte, name string) (string, error) {
	return s.write(referenceKey("", name), buffer)
}

func (s *LocalStorage) GetResultSasURL(ctx context.Context, generationID string, expiry time.Duration) (string, error) {
	key := resultKey("", generationID)
	if _, err := os.Stat(filepath.Join(s.assetsDir, filepath.FromSlash(key))); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/file/%s", s.publicURL, key), nil
}

func (s *LocalStorage) write(key string, buffer []byte) (string, error) {
	dest := filepath.Join(s.assetsDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}

	if err := os.WriteFile(dest, buffer, os.FileMode(0644)); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/file/%s", s.publicURL, key), nil
}

// Resolve maps a /file request path back to a file on disk.
func (s *LocalStorage) Resolve(key string) (string, error) {
	resolved := filepath.Join(s.assetsDir, filepath.FromSlash(key))
	if !strings.HasPrefix(resolved, filepath.Clean(s.assetsDir)) {
		return "", fmt.Errorf("invalid file path")
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}

	return resolved, nil
}

var _ Storage = (*LocalStorage)(nil)
