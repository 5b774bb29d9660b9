// Package semantic layers embedding-backed doc-comment search over the
// vector store: a pluggable Embedder, a symbol→language side index so
// language-scoped search never pays for vectors outside the filter, and the
// on-disk metadata/segment bookkeeping needed to detect a model change.
package semantic

import (
	"hash/fnv"
	"math"

	"github.com/codelens-dev/codelens/pkg/xerrors"
)

// Embedder turns text into fixed-dimension embeddings. Implementations are
// expected to be safe for concurrent use.
type Embedder interface {
	// Embed returns one embedding per input text, in order.
	Embed(texts []string) ([][]float32, error)
	// Dimension reports the fixed width of every embedding this Embedder
	// produces.
	Dimension() int
	// ModelName identifies the embedding model, used to detect a stale
	// on-disk index at load time.
	ModelName() string
}

// HashEmbedder is a small, deterministic stand-in Embedder used where no
// concrete embedding model is wired in — it hash-projects each text into a
// unit vector. It produces no semantically meaningful similarity beyond
// exact/near-duplicate text, but exercises the full index/search/persist
// path without bundling a real model (out of scope per the index's own
// embedding-model-download boundary).
type HashEmbedder struct {
	dim  int
	name string
}

// NewHashEmbedder returns a HashEmbedder producing vectors of the given
// dimension, tagged with name for version-guard purposes.
func NewHashEmbedder(dim int, name string) *HashEmbedder {
	return &HashEmbedder{dim: dim, name: name}
}

func (h *HashEmbedder) Dimension() int    { return h.dim }
func (h *HashEmbedder) ModelName() string { return h.name }

// Embed deterministically hash-projects each text into a unit-length vector
// of Dimension(). Returns an EmbeddingFailed error for an empty text.
func (h *HashEmbedder) Embed(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, xerrors.New(xerrors.EmbeddingFailed, "skip empty text before calling Embed", "cannot embed an empty string")
		}
		out[i] = h.project(text)
	}
	return out, nil
}

func (h *HashEmbedder) project(text string) []float32 {
	v := make([]float32, h.dim)
	for bucket := 0; bucket < h.dim; bucket++ {
		hasher := fnv.New32a()
		hasher.Write([]byte(text))
		hasher.Write([]byte{byte(bucket)})
		sum := hasher.Sum32()
		v[bucket] = float32(int32(sum)) / float32(math.MaxInt32)
	}
	normalize(v)
	return v
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
