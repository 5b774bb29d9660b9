package semantic

import (
	"sort"
	"sync"
	"time"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/vector"
	"github.com/codelens-dev/codelens/pkg/xerrors"
)

// Advisory similarity thresholds a caller can bucket a Score against. The
// index itself never filters on these — they're a convention for callers
// presenting results.
const (
	VerySimilar = 0.75
	Similar     = 0.60
	Related     = 0.40
)

// SearchResult pairs a symbol with its similarity score.
type SearchResult struct {
	SymbolId ids.SymbolId
	Score    float32
}

// Index is the doc-comment semantic search façade: an embedder, an
// in-memory symbol→vector map (the source of truth between flushes), a
// symbol→language side map, and an IVF-Flat cluster rebuilt lazily before
// the next whole-index Search.
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	dir      string

	vectors   map[ids.SymbolId][]float32
	languages map[ids.SymbolId]string
	metadata  Metadata

	dirty      bool
	clusters   *vector.ClusterResult
	clusterIDs []ids.SymbolId
}

// New wraps an embedder with a fresh, empty in-memory index — no
// persistence directory, nothing to load.
func New(embedder Embedder) *Index {
	return &Index{
		embedder:  embedder,
		vectors:   make(map[ids.SymbolId][]float32),
		languages: make(map[ids.SymbolId]string),
		metadata: Metadata{
			ModelName: embedder.ModelName(),
			Dimension: embedder.Dimension(),
			Version:   MetadataVersion,
		},
	}
}

// IndexDocComment embeds text and records it under symbolID. An empty text
// is a deliberate no-op, not an error — most symbols have no doc comment.
func (idx *Index) IndexDocComment(symbolID ids.SymbolId, text, language string) error {
	if text == "" {
		return nil
	}

	embeddings, err := idx.embedder.Embed([]string{text})
	if err != nil {
		return xerrors.Wrap(xerrors.EmbeddingFailed, "check the embedder implementation", err, "failed to embed doc comment for symbol %d", symbolID)
	}
	vec := embeddings[0]
	if len(vec) != idx.embedder.Dimension() {
		return xerrors.New(xerrors.DimensionMismatch, "fix the embedder to honor its declared Dimension()", "embedder returned %d dims, declared %d", len(vec), idx.embedder.Dimension())
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[symbolID] = vec
	idx.languages[symbolID] = language
	idx.metadata.EmbeddingCount = len(idx.vectors)
	idx.metadata.UpdatedAt = time.Now().Unix()
	idx.dirty = true
	return nil
}

// RemoveEmbeddings drops the given symbols from both the vector map and the
// language map.
func (idx *Index) RemoveEmbeddings(symbolIDs []ids.SymbolId) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range symbolIDs {
		delete(idx.vectors, id)
		delete(idx.languages, id)
	}
	idx.metadata.EmbeddingCount = len(idx.vectors)
	idx.metadata.UpdatedAt = time.Now().Unix()
	idx.dirty = true
}

// rebuildClustersLocked reclusters from the current vector map if dirty.
// Caller must hold idx.mu for writing.
func (idx *Index) rebuildClustersLocked() error {
	if !idx.dirty {
		return nil
	}
	if len(idx.vectors) == 0 {
		idx.clusters = nil
		idx.clusterIDs = nil
		idx.dirty = false
		return nil
	}

	ordered := make([]ids.SymbolId, 0, len(idx.vectors))
	for id := range idx.vectors {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	vecs := make([][]float32, len(ordered))
	for i, id := range ordered {
		vecs[i] = idx.vectors[id]
	}

	k := vector.ChooseK(len(vecs))
	result, err := vector.BuildClusters(vecs, k)
	if err != nil {
		return err
	}
	idx.clusters = result
	idx.clusterIDs = ordered
	idx.dirty = false
	return nil
}

// Search embeds query and returns the k nearest doc comments by cosine
// similarity, scanning only the cluster nearest to the query.
func (idx *Index) Search(query string, k int) ([]SearchResult, error) {
	embeddings, err := idx.embedder.Embed([]string{query})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.EmbeddingFailed, "check the embedder implementation", err, "failed to embed search query")
	}
	q := embeddings[0]

	idx.mu.Lock()
	if err := idx.rebuildClustersLocked(); err != nil {
		idx.mu.Unlock()
		return nil, err
	}
	idx.mu.Unlock()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.clusters == nil || len(idx.clusters.Centroids) == 0 {
		return nil, nil
	}

	best := 0
	bestSim := vector.CosineSimilarity(q, idx.clusters.Centroids[0])
	for i := 1; i < len(idx.clusters.Centroids); i++ {
		sim := vector.CosineSimilarity(q, idx.clusters.Centroids[i])
		if sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	targetCluster := ids.ClusterId(best + 1)

	var hits []SearchResult
	for i, id := range idx.clusterIDs {
		if idx.clusters.Assignments[i] != targetCluster {
			continue
		}
		score := vector.CosineSimilarity(q, idx.vectors[id])
		if score != score { // NaN
			continue
		}
		hits = append(hits, SearchResult{SymbolId: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchWithLanguage filters candidates by language *before* computing
// similarity, so cost scales with the filtered subset rather than the whole
// index — it bypasses the cluster structure entirely since the candidate
// set is usually already much smaller than a single cluster.
func (idx *Index) SearchWithLanguage(query string, k int, language string) ([]SearchResult, error) {
	embeddings, err := idx.embedder.Embed([]string{query})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.EmbeddingFailed, "check the embedder implementation", err, "failed to embed search query")
	}
	q := embeddings[0]

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []SearchResult
	for id, lang := range idx.languages {
		if lang != language {
			continue
		}
		vec, ok := idx.vectors[id]
		if !ok {
			continue
		}
		score := vector.CosineSimilarity(q, vec)
		if score != score {
			continue
		}
		hits = append(hits, SearchResult{SymbolId: id, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
