package semantic

import (
	"testing"

	"github.com/codelens-dev/codelens/pkg/ids"
)

func TestIndexDocCommentSkipsEmptyText(t *testing.T) {
	idx := New(NewHashEmbedder(8, "test-hash-v1"))
	if err := idx.IndexDocComment(1, "", "go"); err != nil {
		t.Fatalf("IndexDocComment with empty text should be a no-op, got error: %v", err)
	}
	if len(idx.vectors) != 0 {
		t.Errorf("expected no vectors indexed, got %d", len(idx.vectors))
	}
}

func TestSearchEmptyIndexReturnsEmpty(t *testing.T) {
	idx := New(NewHashEmbedder(8, "test-hash-v1"))
	hits, err := idx.Search("something", 5)
	if err != nil {
		t.Fatalf("Search on empty index returned error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestIndexDocCommentAndSearchFindsExactMatch(t *testing.T) {
	idx := New(NewHashEmbedder(16, "test-hash-v1"))

	if err := idx.IndexDocComment(1, "parses a JSON payload into a struct", "go"); err != nil {
		t.Fatalf("IndexDocComment: %v", err)
	}
	if err := idx.IndexDocComment(2, "writes bytes to a network socket", "go"); err != nil {
		t.Fatalf("IndexDocComment: %v", err)
	}

	hits, err := idx.Search("parses a JSON payload into a struct", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].SymbolId != ids.SymbolId(1) {
		t.Errorf("top hit = %v, want symbol 1", hits[0].SymbolId)
	}
	if hits[0].Score < VerySimilar {
		t.Errorf("exact-text match score = %v, want >= VerySimilar (%v)", hits[0].Score, VerySimilar)
	}
}

func TestSearchWithLanguageFiltersBeforeSimilarity(t *testing.T) {
	idx := New(NewHashEmbedder(16, "test-hash-v1"))
	if err := idx.IndexDocComment(1, "parses a JSON payload", "go"); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocComment(2, "parses a JSON payload", "python"); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.SearchWithLanguage("parses a JSON payload", 5, "python")
	if err != nil {
		t.Fatalf("SearchWithLanguage: %v", err)
	}
	for _, h := range hits {
		if h.SymbolId != ids.SymbolId(2) {
			t.Errorf("SearchWithLanguage(lang=python) returned symbol %v, want only symbol 2", h.SymbolId)
		}
	}
	if len(hits) != 1 {
		t.Errorf("got %d hits, want exactly 1", len(hits))
	}
}

func TestRemoveEmbeddingsDropsFromBothMaps(t *testing.T) {
	idx := New(NewHashEmbedder(8, "test-hash-v1"))
	if err := idx.IndexDocComment(1, "some text", "go"); err != nil {
		t.Fatal(err)
	}
	idx.RemoveEmbeddings([]ids.SymbolId{1})

	if _, ok := idx.vectors[1]; ok {
		t.Error("expected vector for symbol 1 to be removed")
	}
	if _, ok := idx.languages[1]; ok {
		t.Error("expected language entry for symbol 1 to be removed")
	}

	hits, err := idx.Search("some text", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after removal, got %v", hits)
	}
}
