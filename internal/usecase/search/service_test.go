package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/eitan-ker/photo-selector-poc/internal/domain"
	domsearch "github.com/eitan-ker/photo-selector-poc/internal/domain/search"
	"github.com/eitan-ker/photo-selector-poc/internal/repository/gallery"
	"github.com/eitan-ker/photo-selector-poc/internal/usecase/labels"
)

type mockGallery struct {
	images  []gallery.Image
	files   map[string][]byte
	listErr error
	loadErr map[string]error
}

func (m *mockGallery) List(_ context.Context, _ string) ([]gallery.Image, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.images, nil
}

func (m *mockGallery) Load(_ context.Context, path string) ([]byte, error) {
	if err, ok := m.loadErr[path]; ok {
		return nil, err
	}
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("unexpected load: %s", path)
	}
	return data, nil
}

// mockEmbedder maps query text and image content to fixed vectors.
type mockEmbedder struct {
	texts      map[string][]float32
	images     map[string][]float32
	embedCalls int
	imageCalls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.embedCalls++
	v, ok := m.texts[text]
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("unexpected text: %q", text)
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func (m *mockEmbedder) EmbedImage(_ context.Context, image []byte) (domain.EmbeddingResult, error) {
	m.imageCalls++
	v, ok := m.images[string(image)]
	if !ok {
		return domain.EmbeddingResult{}, fmt.Errorf("unexpected image: %q", image)
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

// mockBatchEmbedder adds native image batching on top of mockEmbedder.
type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
	override   [][]float32
}

func (m *mockBatchEmbedder) BatchEmbedImages(ctx context.Context, images [][]byte) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.override != nil {
		return domain.BatchEmbeddingResult{Embeddings: m.override}, nil
	}
	return domain.BatchImageFallback(ctx, &m.mockEmbedder, images)
}

// stubClassifier recognizes images by the second vector component and
// returns canned predictions.
type stubClassifier struct {
	table     *labels.Table
	predicted map[string][]string
	names     map[float32]string
}

func (c *stubClassifier) Classify(imageVec []float32, _ int) []string {
	return c.predicted[c.names[imageVec[1]]]
}

func (c *stubClassifier) Table() *labels.Table { return c.table }

func newRequest(t *testing.T, folder, query string, threshold float64, maxResults int) *domsearch.Request {
	t.Helper()
	req, err := domsearch.NewRequest(folder, query, threshold, maxResults, false, domsearch.DefaultFusionWeight, 0)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return &req
}

func newClassifyRequest(t *testing.T, folder, query string, weight float64) *domsearch.Request {
	t.Helper()
	req, err := domsearch.NewRequest(folder, query, 0.0, 100, true, weight, 3)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return &req
}

func TestSearch_EmptyFolder(t *testing.T) {
	emb := &mockEmbedder{}
	svc := New(&mockGallery{}, emb, nil, zap.NewNop())

	resp, err := svc.Search(context.Background(), newRequest(t, "/photos", "sunset", 0.3, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected no results, got %d", len(resp.Results))
	}
	if resp.Stats.TotalImages() != 0 {
		t.Errorf("expected 0 total images, got %d", resp.Stats.TotalImages())
	}
	if emb.embedCalls != 0 {
		t.Errorf("empty folder must not reach the provider, got %d calls", emb.embedCalls)
	}
}

func TestSearch_RanksByVisualSimilarity(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{
			{Path: "/photos/cat.jpg", Name: "cat.jpg", Index: 0},
			{Path: "/photos/alps.jpg", Name: "alps.jpg", Index: 1},
		},
		files: map[string][]byte{
			"/photos/cat.jpg":  []byte("cat-bytes"),
			"/photos/alps.jpg": []byte("alps-bytes"),
		},
	}
	emb := &mockEmbedder{
		texts: map[string][]float32{"mountain": {1, 0}},
		images: map[string][]float32{
			"cat-bytes":  {0.2, 0.9},
			"alps-bytes": {0.95, 0.1},
		},
	}
	svc := New(g, emb, nil, zap.NewNop())

	resp, err := svc.Search(context.Background(), newRequest(t, "/photos", "mountain", 0.1, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].FileName() != "alps.jpg" {
		t.Errorf("expected alps.jpg first, got %s", resp.Results[0].FileName())
	}
	if resp.Results[0].Rank() != 1 || resp.Results[1].Rank() != 2 {
		t.Errorf("expected ranks 1,2; got %d,%d", resp.Results[0].Rank(), resp.Results[1].Rank())
	}
	if resp.Stats.TotalImages() != 2 || resp.Stats.MatchingImages() != 2 {
		t.Errorf("unexpected stats: total %d matching %d",
			resp.Stats.TotalImages(), resp.Stats.MatchingImages())
	}
}

func TestSearch_MaxResultsTruncation(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{
			{Path: "/photos/a.jpg", Name: "a.jpg"},
			{Path: "/photos/b.jpg", Name: "b.jpg"},
			{Path: "/photos/c.jpg", Name: "c.jpg"},
		},
		files: map[string][]byte{
			"/photos/a.jpg": []byte("a"),
			"/photos/b.jpg": []byte("b"),
			"/photos/c.jpg": []byte("c"),
		},
	}
	emb := &mockEmbedder{
		texts: map[string][]float32{"q": {1, 0}},
		images: map[string][]float32{
			"a": {0.5, 0},
			"b": {0.9, 0},
			"c": {0.7, 0},
		},
	}
	svc := New(g, emb, nil, zap.NewNop())

	resp, err := svc.Search(context.Background(), newRequest(t, "/photos", "q", 0.0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	if resp.Results[0].FileName() != "b.jpg" {
		t.Errorf("expected the top hit b.jpg, got %s", resp.Results[0].FileName())
	}
	// TotalImages counts everything scanned, not just what survived the cap.
	if resp.Stats.TotalImages() != 3 || resp.Stats.MatchingImages() != 1 {
		t.Errorf("unexpected stats: total %d matching %d",
			resp.Stats.TotalImages(), resp.Stats.MatchingImages())
	}
}

func TestSearch_MissingFolder(t *testing.T) {
	g := &mockGallery{listErr: domain.ErrDirectoryNotFound}
	svc := New(g, &mockEmbedder{}, nil, zap.NewNop())

	resp, err := svc.Search(context.Background(), newRequest(t, "/nope", "q", 0.3, 100))
	if !errors.Is(err, domain.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("failed search must not return partial results")
	}
}

func TestSearch_DecodeErrorAborts(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{
			{Path: "/photos/ok.jpg", Name: "ok.jpg"},
			{Path: "/photos/bad.jpg", Name: "bad.jpg"},
		},
		files:   map[string][]byte{"/photos/ok.jpg": []byte("ok")},
		loadErr: map[string]error{"/photos/bad.jpg": fmt.Errorf("bad.jpg: %w", domain.ErrImageDecode)},
	}
	emb := &mockEmbedder{
		texts:  map[string][]float32{"q": {1, 0}},
		images: map[string][]float32{"ok": {1, 0}},
	}
	svc := New(g, emb, nil, zap.NewNop())

	_, err := svc.Search(context.Background(), newRequest(t, "/photos", "q", 0.0, 100))
	if !errors.Is(err, domain.ErrImageDecode) {
		t.Fatalf("expected ErrImageDecode, got %v", err)
	}
}

func TestSearch_DecodeErrorSkipPolicy(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{
			{Path: "/photos/ok.jpg", Name: "ok.jpg"},
			{Path: "/photos/bad.jpg", Name: "bad.jpg"},
		},
		files:   map[string][]byte{"/photos/ok.jpg": []byte("ok")},
		loadErr: map[string]error{"/photos/bad.jpg": fmt.Errorf("bad.jpg: %w", domain.ErrImageDecode)},
	}
	emb := &mockEmbedder{
		texts:  map[string][]float32{"q": {1, 0}},
		images: map[string][]float32{"ok": {1, 0}},
	}
	svc := New(g, emb, nil, zap.NewNop()).WithDecodePolicy(true)

	resp, err := svc.Search(context.Background(), newRequest(t, "/photos", "q", 0.0, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].FileName() != "ok.jpg" {
		t.Fatalf("expected only ok.jpg, got %v", resp.Results)
	}
	// The skipped file still counts as scanned.
	if resp.Stats.TotalImages() != 2 {
		t.Errorf("expected 2 total images, got %d", resp.Stats.TotalImages())
	}
}

func TestSearch_DimensionMismatchAborts(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{{Path: "/photos/a.jpg", Name: "a.jpg"}},
		files:  map[string][]byte{"/photos/a.jpg": []byte("a")},
	}
	emb := &mockEmbedder{
		texts:  map[string][]float32{"q": {1, 0, 0}},
		images: map[string][]float32{"a": {1, 0}},
	}
	svc := New(g, emb, nil, zap.NewNop())

	_, err := svc.Search(context.Background(), newRequest(t, "/photos", "q", 0.0, 100))
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestSearch_BatchVectorCountMismatch(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{{Path: "/photos/a.jpg", Name: "a.jpg"}},
		files:  map[string][]byte{"/photos/a.jpg": []byte("a")},
	}
	emb := &mockBatchEmbedder{
		mockEmbedder: mockEmbedder{texts: map[string][]float32{"q": {1, 0}}},
		override:     [][]float32{{1, 0}, {0, 1}},
	}
	svc := New(g, emb, nil, zap.NewNop())

	_, err := svc.Search(context.Background(), newRequest(t, "/photos", "q", 0.0, 100))
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestSearch_PrefersNativeBatching(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{
			{Path: "/photos/a.jpg", Name: "a.jpg"},
			{Path: "/photos/b.jpg", Name: "b.jpg"},
		},
		files: map[string][]byte{
			"/photos/a.jpg": []byte("a"),
			"/photos/b.jpg": []byte("b"),
		},
	}
	emb := &mockBatchEmbedder{mockEmbedder: mockEmbedder{
		texts:  map[string][]float32{"q": {1, 0}},
		images: map[string][]float32{"a": {1, 0}, "b": {0, 1}},
	}}
	svc := New(g, emb, nil, zap.NewNop())

	if _, err := svc.Search(context.Background(), newRequest(t, "/photos", "q", 0.0, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.batchCalls != 1 {
		t.Errorf("expected a single batch call, got %d", emb.batchCalls)
	}
}

func TestSearch_ClassificationShiftsFusedScore(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{
			{Path: "/photos/peak.jpg", Name: "peak.jpg"},
			{Path: "/photos/cat.jpg", Name: "cat.jpg"},
		},
		files: map[string][]byte{
			"/photos/peak.jpg": []byte("peak"),
			"/photos/cat.jpg":  []byte("cat"),
		},
	}
	emb := &mockEmbedder{
		texts: map[string][]float32{"mountain": {1, 0, 0}},
		images: map[string][]float32{
			"peak": {0.6, 0.8, 0},
			"cat":  {0.6, 0, 0.8},
		},
	}
	table := buildTable(t, map[string][]float32{
		"mountain": {1, 0, 0},
		"cat":      {0, 0, 1},
	}, "mountain", "cat")
	cls := &stubClassifier{
		table: table,
		predicted: map[string][]string{
			"peak.jpg": {"mountain"},
			"cat.jpg":  {"cat"},
		},
		names: map[float32]string{0.8: "peak.jpg", 0: "cat.jpg"},
	}
	svc := New(g, emb, cls, zap.NewNop())

	resp, err := svc.Search(context.Background(), newClassifyRequest(t, "/photos", "mountain", 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}

	// Both share visual 0.6; the label match lifts peak.jpg to the top.
	top := resp.Results[0]
	if top.FileName() != "peak.jpg" {
		t.Fatalf("expected peak.jpg first, got %s", top.FileName())
	}
	if top.Similarity() <= top.VisualScore() {
		t.Errorf("label match must raise the fused score above visual: fused %g visual %g",
			top.Similarity(), top.VisualScore())
	}
	if got := top.Labels(); len(got) != 1 || got[0] != "mountain" {
		t.Errorf("expected predicted labels to surface in the result, got %v", got)
	}
	bottom := resp.Results[1]
	if bottom.Similarity() >= bottom.VisualScore() {
		t.Errorf("off-query label must lower the fused score: fused %g visual %g",
			bottom.Similarity(), bottom.VisualScore())
	}
}

func TestSearch_ClassifyRequestedWithoutClassifier(t *testing.T) {
	g := &mockGallery{
		images: []gallery.Image{{Path: "/photos/a.jpg", Name: "a.jpg"}},
		files:  map[string][]byte{"/photos/a.jpg": []byte("a")},
	}
	emb := &mockEmbedder{
		texts:  map[string][]float32{"q": {1, 0}},
		images: map[string][]float32{"a": {0.9, 0}},
	}
	svc := New(g, emb, nil, zap.NewNop())

	resp, err := svc.Search(context.Background(), newClassifyRequest(t, "/photos", "q", 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := resp.Results[0]
	if r.Similarity() != r.VisualScore() {
		t.Errorf("without a classifier the fused score must equal visual: %g vs %g",
			r.Similarity(), r.VisualScore())
	}
	if len(r.Labels()) != 0 {
		t.Errorf("expected no labels, got %v", r.Labels())
	}
}
