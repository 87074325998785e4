package gallery

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestList_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", []byte("x"))
	writeFile(t, dir, "b.PNG", []byte("x"))
	writeFile(t, dir, "c.webp", []byte("x"))
	writeFile(t, dir, "notes.txt", []byte("x"))
	writeFile(t, dir, "d.jpeg.bak", []byte("x"))
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	repo := New(false)
	images, err := repo.List(context.Background(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	for i, img := range images {
		if img.Index != i {
			t.Errorf("expected contiguous enumeration index, got %d at %d", img.Index, i)
		}
		if img.Name == "" || img.Path == "" {
			t.Errorf("incomplete image entry: %+v", img)
		}
	}
}

func TestList_EmptyFolder(t *testing.T) {
	repo := New(false)
	images, err := repo.List(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected no images, got %d", len(images))
	}
}

func TestList_MissingDirectory(t *testing.T) {
	repo := New(false)
	_, err := repo.List(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, domain.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
}

func TestLoad_ValidPNG(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ok.png", pngBytes(t))

	repo := New(true)
	data, err := repo.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected image bytes")
	}
}

func TestLoad_CorruptPNG(t *testing.T) {
	dir := t.TempDir()
	corrupt := pngBytes(t)[:8] // magic bytes only, truncated header
	path := writeFile(t, dir, "bad.png", corrupt)

	repo := New(true)
	_, err := repo.Load(context.Background(), path)
	if !errors.Is(err, domain.ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
}

func TestLoad_UnregisteredFormatPassesThrough(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pic.webp", []byte("RIFF....WEBP"))

	repo := New(true)
	if _, err := repo.Load(context.Background(), path); err != nil {
		t.Fatalf("expected webp bytes to pass through, got %v", err)
	}
}

func TestLoad_ValidationDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.png", []byte("not a png"))

	repo := New(false)
	if _, err := repo.Load(context.Background(), path); err != nil {
		t.Fatalf("unexpected error with validation off: %v", err)
	}
}
