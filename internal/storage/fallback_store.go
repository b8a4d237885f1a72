package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// maxImageSize bounds how much of an upload is buffered for a retry.
const maxImageSize = 10 << 20

// fallbackStore tries S3 first, then falls back to the local file system.
type fallbackStore struct {
	primary  ImageStore
	fallback ImageStore
	logger   zerolog.Logger
}

// NewFallbackStore creates a store that writes to primary and, when that
// fails or primary is nil, to fallback.
func NewFallbackStore(primary, fallback ImageStore, logger zerolog.Logger) ImageStore {
	return &fallbackStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "fallback-image-store").Logger(),
	}
}

// Put buffers body so the same bytes can be replayed against the fallback.
func (s *fallbackStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if s.primary == nil {
		s.logger.Debug().Msg("S3 disabled or not configured, using local file system")
		return s.fallback.Put(ctx, key, contentType, body)
	}

	data, err := io.ReadAll(io.LimitReader(body, maxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("image exceeds %d bytes", maxImageSize)
	}

	url, err := s.primary.Put(ctx, key, contentType, bytes.NewReader(data))
	if err == nil {
		return url, nil
	}

	s.logger.Warn().
		Err(err).
		Str("key", key).
		Msg("failed to store image in S3, falling back to local file system")

	return s.fallback.Put(ctx, key, contentType, bytes.NewReader(data))
}
