package semantic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/vector"
	"github.com/codelens-dev/codelens/pkg/xerrors"
)

// MetadataVersion is the current on-disk metadata schema version.
const MetadataVersion = 1

const (
	metadataFileName  = "metadata.json"
	languagesFileName = "languages.json"
	segmentFileName   = "embeddings.cvec"
)

// Metadata is the semantic index's persisted sidecar: enough to detect a
// stale index (wrong model, wrong dimension, newer schema) before trusting
// the segment file next to it.
type Metadata struct {
	ModelName      string    `json:"model_name"`
	Dimension      int       `json:"dimension"`
	EmbeddingCount int       `json:"embedding_count"`
	CreatedAt      int64     `json:"created_at"`
	UpdatedAt      int64     `json:"updated_at"`
	Version        int       `json:"version"`
}

// Open loads a semantic index from dir, or creates a fresh empty one if dir
// has no metadata.json yet. Refuses to load if the stored model name
// doesn't match the active embedder, or the stored dimension disagrees.
func Open(dir string, embedder Embedder) (*Index, error) {
	metaPath := filepath.Join(dir, metadataFileName)
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		idx := New(embedder)
		idx.dir = dir
		idx.metadata.CreatedAt = time.Now().Unix()
		return idx, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.LoadError, "check filesystem permissions on the index directory", err, "failed to read %s", metaPath)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, xerrors.Wrap(xerrors.LoadError, "the metadata file is corrupt; remove it to rebuild from scratch", err, "failed to parse %s", metaPath)
	}
	if meta.Version > MetadataVersion {
		return nil, xerrors.New(xerrors.VersionMismatch, "upgrade to a newer binary that understands this metadata version", "stored semantic metadata version %d is newer than supported version %d", meta.Version, MetadataVersion)
	}
	if meta.ModelName != embedder.ModelName() {
		return nil, xerrors.New(xerrors.VersionMismatch, "re-embed with the stored model, or delete the index to switch models", "semantic index was built with model %q, active embedder is %q", meta.ModelName, embedder.ModelName())
	}
	if meta.Dimension != embedder.Dimension() {
		return nil, xerrors.New(xerrors.DimensionMismatch, "the active embedder's dimension must match the stored index", "stored dimension %d, active embedder dimension %d", meta.Dimension, embedder.Dimension())
	}

	idx := New(embedder)
	idx.dir = dir
	idx.metadata = meta

	langData, err := os.ReadFile(filepath.Join(dir, languagesFileName))
	if err == nil {
		if err := json.Unmarshal(langData, &idx.languages); err != nil {
			return nil, xerrors.Wrap(xerrors.LoadError, "the languages file is corrupt; remove it to rebuild from scratch", err, "failed to parse languages.json")
		}
	} else if !os.IsNotExist(err) {
		return nil, xerrors.Wrap(xerrors.LoadError, "check filesystem permissions on the index directory", err, "failed to read languages.json")
	}

	segmentPath := filepath.Join(dir, segmentFileName)
	if _, err := os.Stat(segmentPath); err == nil {
		storage, err := vector.Open(segmentPath)
		if err != nil {
			return nil, err
		}
		defer storage.Close()
		for _, entry := range storage.ReadAll() {
			idx.vectors[entry.ID] = entry.Vector
		}
	} else if !os.IsNotExist(err) {
		return nil, xerrors.Wrap(xerrors.LoadError, "check filesystem permissions on the index directory", err, "failed to stat %s", segmentPath)
	}

	idx.dirty = true
	return idx, nil
}

// Save persists metadata.json, languages.json, and a freshly rewritten
// segment file under dir. The segment is rewritten wholesale rather than
// appended to, since RemoveEmbeddings can shrink the live vector set and
// the on-disk format has no delete.
func (idx *Index) Save(dir string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Wrap(xerrors.PersistenceError, "check filesystem permissions on the index directory", err, "failed to create %s", dir)
	}

	idx.metadata.EmbeddingCount = len(idx.vectors)
	if idx.metadata.CreatedAt == 0 {
		idx.metadata.CreatedAt = time.Now().Unix()
	}
	idx.metadata.UpdatedAt = time.Now().Unix()
	idx.metadata.Version = MetadataVersion

	metaBytes, err := json.MarshalIndent(idx.metadata, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFileName), metaBytes, 0o644); err != nil {
		return xerrors.Wrap(xerrors.PersistenceError, "check filesystem permissions on the index directory", err, "failed to write metadata.json")
	}

	langBytes, err := json.MarshalIndent(idx.languages, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, languagesFileName), langBytes, 0o644); err != nil {
		return xerrors.Wrap(xerrors.PersistenceError, "check filesystem permissions on the index directory", err, "failed to write languages.json")
	}

	ordered := make([]ids.SymbolId, 0, len(idx.vectors))
	for id := range idx.vectors {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	segmentPath := filepath.Join(dir, segmentFileName)
	storage, err := vector.Create(segmentPath, idx.embedder.Dimension())
	if err != nil {
		return xerrors.Wrap(xerrors.PersistenceError, "check filesystem permissions on the index directory", err, "failed to create %s", segmentPath)
	}
	defer storage.Close()

	entries := make([]vector.VectorEntry, len(ordered))
	for i, id := range ordered {
		entries[i] = vector.VectorEntry{ID: id, Vector: idx.vectors[id]}
	}
	if len(entries) > 0 {
		if err := storage.WriteBatch(entries); err != nil {
			return err
		}
	}

	idx.dir = dir
	return nil
}
