package vector

import (
	"sort"
	"sync"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/xerrors"
)

// SearchHit is one ranked nearest-neighbour result.
type SearchHit struct {
	ID    ids.VectorId
	Score float32
}

// Index wraps a mmap'd Storage segment with an in-memory IVF-Flat cluster
// index, rebuilt from the segment's contents rather than persisted — the
// segment file is the source of truth, the clustering is a derived,
// rebuildable artifact (mirroring the document index's bleve-from-bbolt
// rebuild contract).
type Index struct {
	mu      sync.RWMutex
	storage *Storage

	entries     []VectorEntry
	assignments []ids.ClusterId
	centroids   [][]float32
}

// NewIndex wraps an already-open Storage segment.
func NewIndex(storage *Storage) *Index {
	return &Index{storage: storage}
}

// WriteBatch appends vectors to the underlying segment. The cluster index is
// left stale until the next Rebuild.
func (idx *Index) WriteBatch(entries []VectorEntry) error {
	return idx.storage.WriteBatch(entries)
}

// ReadVector reads a single vector straight from the segment.
func (idx *Index) ReadVector(id ids.VectorId) ([]float32, bool) {
	return idx.storage.ReadVector(id)
}

// Rebuild reclusters the index from the segment's current contents. Safe to
// call after any batch of writes; a caller that never rebuilds still gets
// correct (if cluster-stale) results because Search falls back to however
// many clusters currently exist — an empty index searches nothing rather
// than erroring.
func (idx *Index) Rebuild() error {
	entries := idx.storage.ReadAll()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = entries
	if len(entries) == 0 {
		idx.assignments = nil
		idx.centroids = nil
		return nil
	}

	vectors := make([][]float32, len(entries))
	for i, e := range entries {
		vectors[i] = e.Vector
	}

	k := ChooseK(len(vectors))
	result, err := BuildClusters(vectors, k)
	if err != nil {
		return err
	}
	idx.assignments = result.Assignments
	idx.centroids = result.Centroids
	return nil
}

// Search returns the k nearest neighbours of query by cosine similarity.
// An empty index returns an empty result, not an error.
func (idx *Index) Search(query []float32, k int) ([]SearchHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(query) != idx.storage.Dimension() && idx.storage.Dimension() != 0 {
		return nil, xerrors.New(xerrors.DimensionMismatch, "embed the query with the same model as the index", "expected dim %d, got %d", idx.storage.Dimension(), len(query))
	}
	if len(idx.centroids) == 0 {
		return nil, nil
	}

	bestCentroid := 0
	bestSim := CosineSimilarity(query, idx.centroids[0])
	for i := 1; i < len(idx.centroids); i++ {
		sim := CosineSimilarity(query, idx.centroids[i])
		if sim > bestSim {
			bestSim = sim
			bestCentroid = i
		}
	}
	targetCluster := ids.ClusterId(bestCentroid + 1)

	var hits []SearchHit
	for i, e := range idx.entries {
		if idx.assignments[i] != targetCluster {
			continue
		}
		score := CosineSimilarity(query, e.Vector)
		if score != score { // NaN
			continue
		}
		hits = append(hits, SearchHit{ID: e.ID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Close releases the underlying segment.
func (idx *Index) Close() error {
	return idx.storage.Close()
}
