// Package gallery enumerates and reads image files from a local folder.
package gallery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Register stdlib decoders for validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
)

// supportedExtensions is the image extension allow-list (lowercase, with dot).
var supportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".webp": {},
	".gif":  {},
}

// Image is one enumerated image file. Index records the enumeration
// position so ranking can break score ties deterministically.
type Image struct {
	Path  string
	Name  string
	Index int
}

// Repository lists and loads images from the filesystem.
type Repository struct {
	validate bool
}

// New creates a gallery repository.
// When validate is true, Load rejects files stdlib decoders cannot parse.
func New(validate bool) *Repository {
	return &Repository{validate: validate}
}

// List returns image files directly inside dir (non-recursive), in
// directory-listing order. A missing dir maps to domain.ErrDirectoryNotFound;
// other filesystem errors propagate unmodified.
func (r *Repository) List(ctx context.Context, dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	images := make([]Image, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := supportedExtensions[ext]; !ok {
			continue
		}
		images = append(images, Image{
			Path:  filepath.Join(dir, entry.Name()),
			Name:  entry.Name(),
			Index: len(images),
		})
	}

	return images, nil
}

// Load reads an image file. With validation enabled, files the stdlib
// decoders recognize but cannot parse map to domain.ErrImageDecode.
// Formats without a registered decoder (bmp, webp) pass through untouched;
// the embedding provider does the real decoding.
func (r *Repository) Load(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}

	if r.validate {
		if err := validateImage(path, data); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func validateImage(path string, data []byte) error {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil && err != image.ErrFormat {
		return fmt.Errorf("%w: %s: %v", domain.ErrImageDecode, path, err)
	}
	return nil
}
