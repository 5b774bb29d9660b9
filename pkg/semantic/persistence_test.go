package semantic

import (
	"path/filepath"
	"testing"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/xerrors"
)

func TestOpenFreshDirectoryCreatesEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, NewHashEmbedder(8, "test-hash-v1"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(idx.vectors) != 0 {
		t.Errorf("expected empty index, got %d vectors", len(idx.vectors))
	}
}

func TestSaveAndReopenRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "semantic")
	embedder := NewHashEmbedder(8, "test-hash-v1")

	idx, err := Open(dir, embedder)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.IndexDocComment(1, "reads a config file from disk", "go"); err != nil {
		t.Fatalf("IndexDocComment: %v", err)
	}
	if err := idx.IndexDocComment(2, "serializes a struct to JSON", "python"); err != nil {
		t.Fatalf("IndexDocComment: %v", err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(dir, embedder)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(reopened.vectors) != 2 {
		t.Fatalf("reopened index has %d vectors, want 2", len(reopened.vectors))
	}
	if reopened.languages[ids.SymbolId(2)] != "python" {
		t.Errorf("languages[2] = %q, want python", reopened.languages[ids.SymbolId(2)])
	}

	hits, err := reopened.Search("reads a config file from disk", 1)
	if err != nil {
		t.Fatalf("Search after reopen: %v", err)
	}
	if len(hits) == 0 || hits[0].SymbolId != ids.SymbolId(1) {
		t.Errorf("Search after reopen = %v, want top hit symbol 1", hits)
	}
}

func TestOpenRejectsModelMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "semantic")
	idx, err := Open(dir, NewHashEmbedder(8, "model-a"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.IndexDocComment(1, "some text", "go"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err = Open(dir, NewHashEmbedder(8, "model-b"))
	if err == nil {
		t.Fatal("expected error opening with a different model name")
	}
	if kindOf(t, err) != xerrors.VersionMismatch {
		t.Errorf("kind = %v, want VersionMismatch", kindOf(t, err))
	}
}

func TestOpenRejectsDimensionMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "semantic")
	idx, err := Open(dir, NewHashEmbedder(8, "model-a"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := idx.IndexDocComment(1, "some text", "go"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err = Open(dir, NewHashEmbedder(16, "model-a"))
	if err == nil {
		t.Fatal("expected error opening with a different dimension")
	}
	if kindOf(t, err) != xerrors.DimensionMismatch {
		t.Errorf("kind = %v, want DimensionMismatch", kindOf(t, err))
	}
}

func TestRemoveEmbeddingsPersistsAcrossSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "semantic")
	embedder := NewHashEmbedder(8, "test-hash-v1")

	idx, err := Open(dir, embedder)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocComment(1, "some text", "go"); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocComment(2, "other text", "go"); err != nil {
		t.Fatal(err)
	}
	idx.RemoveEmbeddings([]ids.SymbolId{1})
	if err := idx.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(dir, embedder)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := reopened.vectors[ids.SymbolId(1)]; ok {
		t.Error("expected symbol 1 to stay removed after save/reopen")
	}
	if _, ok := reopened.vectors[ids.SymbolId(2)]; !ok {
		t.Error("expected symbol 2 to survive save/reopen")
	}
}
