// Package storage persists uploaded product images and returns the URL
// clients use to fetch them.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageStore saves an image under key and returns its public URL.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// allowedImageTypes maps accepted content types to file extensions.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension returns the file extension for an accepted image content
// type, or false when the type is not an image we store.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// ProductImageKey builds a key of the form products/YYYY/MM/<uuid><ext>.
func ProductImageKey(now time.Time, ext string) string {
	return path.Join("products", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.NewString()+ext)
}

// joinURL joins a base URL and a key with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
