package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// fileStore writes images below a local media directory.
type fileStore struct {
	root      string
	urlPrefix string
	logger    zerolog.Logger
}

// NewFileStore creates an ImageStore rooted at dir whose URLs start with urlPrefix.
func NewFileStore(dir, urlPrefix string, logger zerolog.Logger) ImageStore {
	return &fileStore{
		root:      dir,
		urlPrefix: urlPrefix,
		logger:    logger.With().Str("component", "file-image-store").Logger(),
	}
}

// Put writes body to <root>/<key>, creating parent directories as needed.
func (s *fileStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", dest).Msg("failed to create media directory")
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		s.logger.Error().Err(err).Str("path", dest).Msg("failed to create image file")
		return "", fmt.Errorf("failed to create image file %s: %w", dest, err)
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		s.logger.Error().Err(err).Str("path", dest).Msg("failed to write image file")
		return "", fmt.Errorf("failed to write image file %s: %w", dest, err)
	}

	s.logger.Info().
		Str("path", dest).
		Str("content_type", contentType).
		Int64("bytes", n).
		Msg("image stored on local file system")

	return joinURL(s.urlPrefix, key), nil
}
