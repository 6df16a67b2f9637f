package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StoredAsset is the {url, publicId} pair persisted on content records.
type StoredAsset struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// AssetStore persists uploaded lesson files on disk under a base directory
// and hands back an opaque public identifier plus a servable URL.
type AssetStore struct {
	baseDir string
	baseURL string
}

// NewAssetStore ensures the base directory exists and returns a handle.
func NewAssetStore(baseDir, baseURL string) (*AssetStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &AssetStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save streams an uploaded file to disk. The public id embeds a random
// prefix so original filenames never collide.
func (s *AssetStore) Save(filename string, r io.Reader) (*StoredAsset, error) {
	publicID := fmt.Sprintf("%s/%s", uuid.NewString(), sanitize(filename))
	path := s.resolve(publicID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return nil, fmt.Errorf("write upload stream: %w", err)
	}
	return &StoredAsset{
		URL:      s.baseURL + "/" + publicID,
		PublicID: publicID,
	}, nil
}

// Open returns a read-only handle for a stored asset.
func (s *AssetStore) Open(publicID string) (*os.File, error) {
	file, err := os.Open(s.resolve(publicID))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored asset if present.
func (s *AssetStore) Delete(publicID string) error {
	if publicID == "" {
		return nil
	}
	if err := os.Remove(s.resolve(publicID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

func (s *AssetStore) resolve(publicID string) string {
	cleaned := filepath.Clean("/" + publicID)
	return filepath.Join(s.baseDir, cleaned)
}

func sanitize(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == "" {
		return "file"
	}
	return base
}
