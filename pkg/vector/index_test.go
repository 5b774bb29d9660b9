package vector

import (
	"path/filepath"
	"testing"

	"github.com/codelens-dev/codelens/pkg/ids"
)

func TestIndexSearchReturnsNearestNeighbours(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.cvec")
	s, err := Create(path, 3)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()

	entries := []VectorEntry{
		{ID: 1, Vector: []float32{1, 0, 0}},
		{ID: 2, Vector: []float32{0.9, 0.1, 0}},
		{ID: 3, Vector: []float32{0, 1, 0}},
		{ID: 4, Vector: []float32{0, 0.9, 0.1}},
	}
	if err := s.WriteBatch(entries); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}

	idx := NewIndex(s)
	if err := idx.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	hits, err := idx.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("Search returned no hits")
	}
	if hits[0].ID != ids.VectorId(1) {
		t.Errorf("top hit = %v, want id 1", hits[0].ID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not sorted descending: %+v", hits)
		}
	}
	if len(hits) > 2 {
		t.Errorf("Search(k=2) returned %d hits, want <= 2", len(hits))
	}
}

func TestIndexSearchDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.cvec")
	s, err := Create(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.WriteBatch([]VectorEntry{{ID: 1, Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatal(err)
	}

	idx := NewIndex(s)
	if err := idx.Rebuild(); err != nil {
		t.Fatal(err)
	}

	if _, err := idx.Search([]float32{1, 0}, 1); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
