package service

import (
	"context"
	"fmt"

	"shopfront/internal/slug"
)

// slugExistsFunc reports whether slug is taken by a record other than excludeID.
type slugExistsFunc func(ctx context.Context, slug string, excludeID int64) (bool, error)

// uniqueSlug derives a slug from name, appending -2, -3, ... until it is free.
func uniqueSlug(ctx context.Context, exists slugExistsFunc, name, fallback string, maxLen int, excludeID int64) (string, error) {
	base := slug.Make(name, maxLen)
	if base == "" {
		base = fallback
	}

	candidate := base
	for n := 2; ; n++ {
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}

		suffix := fmt.Sprintf("-%d", n)
		trimmed := base
		if len(trimmed)+len(suffix) > maxLen {
			trimmed = trimmed[:maxLen-len(suffix)]
		}
		candidate = trimmed + suffix
	}
}
