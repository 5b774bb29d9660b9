// Package store implements the persistent document index: a bbolt-backed
// record store paired with a bleve full-text/field index over symbol names,
// kinds, files, and languages. Mutations accumulate in-process and are
// applied atomically by CommitBatch; deletes are soft (tombstoned) until a
// later compaction.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/edgengram"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/oklog/ulid/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/symbol"
)

var storeLog = log.New(os.Stderr, "[codelens:store] ", log.Ltime)

// ErrNotFound is returned when a lookup by id or path finds no live record.
var ErrNotFound = errors.New("not found")

// Code store bucket names.
var (
	BucketSymbols   = []byte("symbols")
	BucketFiles     = []byte("files")
	BucketCodeMeta  = []byte("code_meta")
	BucketRelations = []byte("relations")
)

// Store is the persistent symbol/file document index for one project.
type Store struct {
	db         *bolt.DB
	search     bleve.Index
	dbPath     string
	searchPath string

	mu      sync.Mutex
	pending []pendingOp
}

type pendingOpKind int

const (
	opUpsertSymbol pendingOpKind = iota
	opDeleteFileSymbols
	opSetFile
	opSetRelations
)

type pendingOp struct {
	kind      pendingOpKind
	symbol    *symbol.Symbol
	file      *symbol.File
	fileID    ids.FileId
	relations *symbol.FileRelations
}

// SearchResult pairs a symbol with its match score.
type SearchResult struct {
	Symbol *symbol.Symbol
	Score  float64
}

// New opens (or creates) a Store rooted at dbPath (the bbolt database file)
// and searchPath (the bleve index directory).
func New(dbPath, searchPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(searchPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating search directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening code store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{BucketSymbols, BucketFiles, BucketCodeMeta, BucketRelations} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}

	if err := RunCodeMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("code schema migration: %w", err)
	}

	index, err := openOrCreateSearchIndex(searchPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	s := &Store{db: db, search: index, dbPath: dbPath, searchPath: searchPath}

	if err := s.ensureSearchMapping(); err != nil {
		index.Close()
		db.Close()
		return nil, fmt.Errorf("checking search mapping: %w", err)
	}

	return s, nil
}

// openOrCreateSearchIndex opens the bleve index at path, recreating it from
// scratch if it exists but fails to open (corruption).
func openOrCreateSearchIndex(path string) (bleve.Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createSearchIndex(path)
	}

	index, err := bleve.Open(path)
	if err == nil {
		return index, nil
	}

	storeLog.Printf("search index corrupted at %s (%v), rebuilding", path, err)
	if rmErr := os.RemoveAll(path); rmErr != nil {
		return nil, fmt.Errorf("removing corrupted search index: %w (original: %v)", rmErr, err)
	}
	return createSearchIndex(path)
}

func createSearchIndex(path string) (bleve.Index, error) {
	m, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}
	return bleve.New(path, m)
}

// buildIndexMapping defines the symbol document's searchable fields: a
// lower-cased standard analyzer for full-text matches, an edge-ngram
// analyzer for prefix search, and plain keyword fields for exact filtering.
func buildIndexMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer("standard_lower", map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, err
	}

	if err := im.AddCustomTokenFilter("edge_ngram_filter", map[string]interface{}{
		"type": edgengram.Name,
		"min":  2.0,
		"max":  15.0,
	}); err != nil {
		return nil, err
	}

	if err := im.AddCustomAnalyzer("edge_ngram", map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			"edge_ngram_filter",
		},
	}); err != nil {
		return nil, err
	}

	sm := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = "standard_lower"
	nameField.Store = true
	sm.AddFieldMappingsAt("name", nameField)

	nameEdge := bleve.NewTextFieldMapping()
	nameEdge.Analyzer = "edge_ngram"
	nameEdge.Store = false
	nameEdge.IncludeInAll = false
	sm.AddFieldMappingsAt("name_edge", nameEdge)

	sigField := bleve.NewTextFieldMapping()
	sigField.Analyzer = "standard_lower"
	sigField.Store = true
	sm.AddFieldMappingsAt("signature", sigField)

	docField := bleve.NewTextFieldMapping()
	docField.Analyzer = "standard_lower"
	docField.Store = true
	sm.AddFieldMappingsAt("doc", docField)

	kindField := bleve.NewTextFieldMapping()
	kindField.Analyzer = keyword.Name
	sm.AddFieldMappingsAt("kind", kindField)

	langField := bleve.NewTextFieldMapping()
	langField.Analyzer = keyword.Name
	sm.AddFieldMappingsAt("lang", langField)

	fileField := bleve.NewTextFieldMapping()
	fileField.Analyzer = keyword.Name
	sm.AddFieldMappingsAt("file", fileField)

	deletedField := bleve.NewTextFieldMapping()
	deletedField.Analyzer = keyword.Name
	deletedField.IncludeInAll = false
	sm.AddFieldMappingsAt("deleted", deletedField)

	im.AddDocumentMapping("symbol", sm)
	im.DefaultMapping = sm

	return im, nil
}

// ensureSearchMapping rebuilds the search index from the durable bbolt
// records whenever the mapping definition has changed since it was last
// built, so an ambient-stack change (e.g. a new indexed field) takes effect
// without requiring a full reindex of the source tree.
func (s *Store) ensureSearchMapping() error {
	m, err := buildIndexMapping()
	if err != nil {
		return err
	}
	hash := MappingHash(m)

	var stored string
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(BucketCodeMeta)
		if data := b.Get([]byte("search_mapping_hash")); data != nil {
			stored = string(data)
		}
		return nil
	})

	if hash == stored {
		return nil
	}
	if stored != "" {
		storeLog.Printf("search mapping changed, rebuilding index")
	}

	s.search.Close()
	os.RemoveAll(s.searchPath)

	index, err := createSearchIndex(s.searchPath)
	if err != nil {
		return err
	}
	s.search = index

	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(BucketSymbols)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var sym symbol.Symbol
			if err := json.Unmarshal(v, &sym); err != nil {
				continue
			}
			if err := s.search.Index(symbolDocID(sym.ID), symbolDoc(&sym)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(BucketCodeMeta)
		return b.Put([]byte("search_mapping_hash"), []byte(hash))
	})
}

func symbolKey(id ids.SymbolId) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

func fileKey(id ids.FileId) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

func symbolDocID(id ids.SymbolId) string {
	return fmt.Sprintf("sym:%d", id)
}

func symbolDoc(sym *symbol.Symbol) map[string]interface{} {
	deleted := "false"
	if sym.Deleted {
		deleted = "true"
	}
	return map[string]interface{}{
		"name":      sym.Name,
		"name_edge": sym.Name,
		"signature": sym.Signature,
		"doc":       sym.DocComment,
		"kind":      string(sym.Kind),
		"lang":      sym.Language,
		"file":      fmt.Sprintf("%d", sym.FileId),
		"deleted":   deleted,
	}
}

// Close releases the search index and database handles.
func (s *Store) Close() error {
	if s.search != nil {
		s.search.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// UpsertSymbol queues sym for storage, overwriting any existing record with
// the same id. The write becomes durable and searchable on the next
// CommitBatch.
func (s *Store) UpsertSymbol(sym *symbol.Symbol) error {
	if sym.ID == 0 {
		return &ids.ExhaustedError{Counter: "symbol (zero id supplied)"}
	}
	if sym.CreatedAt.IsZero() {
		sym.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.pending = append(s.pending, pendingOp{kind: opUpsertSymbol, symbol: sym})
	s.mu.Unlock()
	return nil
}

// SetFileInfo queues a file record (path, language, hash, mtime, and its
// symbol ids) for storage, applied on the next CommitBatch.
func (s *Store) SetFileInfo(f *symbol.File) error {
	s.mu.Lock()
	s.pending = append(s.pending, pendingOp{kind: opSetFile, file: f})
	s.mu.Unlock()
	return nil
}

// SetFileRelations queues the full set of edges extracted from one file
// (references, imports, calls, implements, defines, variable types) for
// storage, applied on the next CommitBatch. A later call for the same
// FileId replaces the prior set wholesale rather than merging, since the
// parser always re-extracts the complete set for a file it reparses.
func (s *Store) SetFileRelations(rel *symbol.FileRelations) error {
	s.mu.Lock()
	s.pending = append(s.pending, pendingOp{kind: opSetRelations, relations: rel})
	s.mu.Unlock()
	return nil
}

// DeleteFileSymbols tombstones every symbol belonging to fileID. The records
// remain on disk (compacted later) but are excluded from every query once
// the pending batch commits.
func (s *Store) DeleteFileSymbols(fileID ids.FileId) error {
	s.mu.Lock()
	s.pending = append(s.pending, pendingOp{kind: opDeleteFileSymbols, fileID: fileID})
	s.mu.Unlock()
	return nil
}

// CommitBatch atomically installs every queued mutation: bbolt records are
// written in a single transaction (fsynced by bbolt on commit), and only on
// that transaction's success are the corresponding bleve documents written.
// It returns an opaque, time-sortable commit token identifying this batch.
func (s *Store) CommitBatch() (string, error) {
	s.mu.Lock()
	ops := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(ops) == 0 {
		return "", nil
	}

	searchBatch := s.search.NewBatch()

	err := s.db.Update(func(tx *bolt.Tx) error {
		symbols := tx.Bucket(BucketSymbols)
		files := tx.Bucket(BucketFiles)
		relations := tx.Bucket(BucketRelations)

		for _, op := range ops {
			switch op.kind {
			case opUpsertSymbol:
				data, err := json.Marshal(op.symbol)
				if err != nil {
					return err
				}
				if err := symbols.Put(symbolKey(op.symbol.ID), data); err != nil {
					return err
				}
				searchBatch.Index(symbolDocID(op.symbol.ID), symbolDoc(op.symbol))

			case opSetFile:
				data, err := json.Marshal(op.file)
				if err != nil {
					return err
				}
				if err := files.Put(fileKey(op.file.ID), data); err != nil {
					return err
				}

			case opSetRelations:
				data, err := json.Marshal(op.relations)
				if err != nil {
					return err
				}
				if err := relations.Put(fileKey(op.relations.FileId), data); err != nil {
					return err
				}

			case opDeleteFileSymbols:
				if err := relations.Delete(fileKey(op.fileID)); err != nil {
					return err
				}
				f, err := getFileLocked(files, op.fileID)
				if err != nil {
					if errors.Is(err, ErrNotFound) {
						continue
					}
					return err
				}
				for _, sid := range f.SymbolIDs {
					raw := symbols.Get(symbolKey(sid))
					if raw == nil {
						continue
					}
					var sym symbol.Symbol
					if err := json.Unmarshal(raw, &sym); err != nil {
						continue
					}
					if sym.Deleted {
						continue
					}
					sym.Deleted = true
					sym.DeletedAt = time.Now()
					data, err := json.Marshal(&sym)
					if err != nil {
						return err
					}
					if err := symbols.Put(symbolKey(sid), data); err != nil {
						return err
					}
					searchBatch.Delete(symbolDocID(sid))
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("committing batch: %w", err)
	}

	if err := s.search.Batch(searchBatch); err != nil {
		// The text index is the transaction of record; a vector-side or
		// search-side failure here does not unwind the already-durable
		// bbolt state, matching the orchestrator's commit-ordering contract.
		return "", fmt.Errorf("applying search batch: %w", err)
	}

	return ulid.Make().String(), nil
}

func getFileLocked(files *bolt.Bucket, id ids.FileId) (*symbol.File, error) {
	data := files.Get(fileKey(id))
	if data == nil {
		return nil, ErrNotFound
	}
	var f symbol.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetSymbol returns a live (non-tombstoned) symbol by id.
func (s *Store) GetSymbol(id ids.SymbolId) (*symbol.Symbol, error) {
	var sym symbol.Symbol
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(BucketSymbols).Get(symbolKey(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &sym)
	})
	if err != nil {
		return nil, err
	}
	if sym.Deleted {
		return nil, ErrNotFound
	}
	return &sym, nil
}

// GetFileInfo returns the tracked record for fileID, including tombstoned
// files (callers check mtime/hash before re-parsing regardless).
func (s *Store) GetFileInfo(id ids.FileId) (*symbol.File, error) {
	var f *symbol.File
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		f, err = getFileLocked(tx.Bucket(BucketFiles), id)
		return err
	})
	return f, err
}

// FindFileByPath scans the file bucket for a record whose Path matches.
// Multi-root indexing keeps the file count modest enough that a linear scan
// is adequate; a path->id secondary index is unnecessary machinery here.
func (s *Store) FindFileByPath(path string) (*symbol.File, error) {
	var found *symbol.File
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketFiles).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var f symbol.File
			if err := json.Unmarshal(v, &f); err != nil {
				continue
			}
			if f.Path == path {
				found = &f
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// AllFiles returns every tracked file record, live or tombstoned.
func (s *Store) AllFiles() ([]*symbol.File, error) {
	var files []*symbol.File
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketFiles).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var f symbol.File
			if err := json.Unmarshal(v, &f); err != nil {
				continue
			}
			files = append(files, &f)
		}
		return nil
	})
	return files, err
}

// GetFileSymbols returns every live symbol declared in fileID.
func (s *Store) GetFileSymbols(fileID ids.FileId) ([]*symbol.Symbol, error) {
	f, err := s.GetFileInfo(fileID)
	if err != nil {
		return nil, err
	}
	out := make([]*symbol.Symbol, 0, len(f.SymbolIDs))
	for _, id := range f.SymbolIDs {
		sym, err := s.GetSymbol(id)
		if err != nil {
			continue
		}
		out = append(out, sym)
	}
	return out, nil
}

// GetFileRelations returns the edges extracted for fileID, or ErrNotFound if
// the file has never had relations recorded (e.g. it declares no symbols
// that reference anything).
func (s *Store) GetFileRelations(fileID ids.FileId) (*symbol.FileRelations, error) {
	var rel symbol.FileRelations
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(BucketRelations).Get(fileKey(fileID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rel)
	})
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// allRelations walks every stored FileRelations record, live or belonging to
// a tombstoned file. Callers filter by the live symbols they care about;
// there is no secondary index over these edges, matching the low-cardinality
// expectation for a single project's call/implements graph.
func (s *Store) allRelations() ([]*symbol.FileRelations, error) {
	var all []*symbol.FileRelations
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketRelations).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rel symbol.FileRelations
			if err := json.Unmarshal(v, &rel); err != nil {
				continue
			}
			all = append(all, &rel)
		}
		return nil
	})
	return all, err
}

// FindReferences returns reference records matching symbolName, optionally
// narrowed by kind and file path.
func (s *Store) FindReferences(symbolName string, opts symbol.ReferenceSearchOptions) ([]*symbol.Reference, error) {
	all, err := s.allRelations()
	if err != nil {
		return nil, err
	}
	var out []*symbol.Reference
	for _, rel := range all {
		for _, ref := range rel.References {
			if ref.SymbolName != symbolName {
				continue
			}
			if opts.Kind != "" && ref.Kind != opts.Kind {
				continue
			}
			out = append(out, ref)
			if opts.Limit > 0 && len(out) >= opts.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// FindCallers returns every recorded direct call targeting callee.
func (s *Store) FindCallers(callee ids.SymbolId) ([]*symbol.Calls, error) {
	all, err := s.allRelations()
	if err != nil {
		return nil, err
	}
	var out []*symbol.Calls
	for _, rel := range all {
		for _, c := range rel.Calls {
			if c.Callee == callee {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// FindImplementations returns every recorded Type that implements or
// extends base.
func (s *Store) FindImplementations(base ids.SymbolId) ([]*symbol.Implements, error) {
	all, err := s.allRelations()
	if err != nil {
		return nil, err
	}
	var out []*symbol.Implements
	for _, rel := range all {
		for _, impl := range rel.Implements {
			if impl.Base == base {
				out = append(out, impl)
			}
		}
	}
	return out, nil
}

// FindByName returns live symbols with an exact name match, optionally
// filtered by language.
func (s *Store) FindByName(name, language string) ([]*symbol.Symbol, error) {
	nameQ := bleve.NewMatchQuery(name)
	nameQ.SetField("name")
	nameQ.Analyzer = "standard_lower"

	req := bleve.NewSearchRequest(nameQ)
	req.Size = 10000
	res, err := s.search.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var out []*symbol.Symbol
	for _, hit := range res.Hits {
		sym, err := s.symbolFromDocID(hit.ID)
		if err != nil {
			continue
		}
		if !strings.EqualFold(sym.Name, name) {
			continue
		}
		if language != "" && sym.Language != language {
			continue
		}
		out = append(out, sym)
	}
	return out, nil
}

// SearchPrefix finds live symbols whose name starts with prefix.
func (s *Store) SearchPrefix(prefix string, opts symbol.SearchOptions) ([]*SearchResult, error) {
	q := bleve.NewPrefixQuery(strings.ToLower(prefix))
	q.SetField("name")
	return s.runSearch(q, opts)
}

// SearchFuzzy finds live symbols whose name is within edit-distance 2 of
// query or contains it, or whose signature or doc matches query, so
// partial/typo'd names still surface results.
func (s *Store) SearchFuzzy(query string, opts symbol.SearchOptions) ([]*SearchResult, error) {
	fuzzy := bleve.NewFuzzyQuery(strings.ToLower(query))
	fuzzy.SetField("name")
	fuzzy.Fuzziness = 2

	wildcard := bleve.NewWildcardQuery("*" + strings.ToLower(query) + "*")
	wildcard.SetField("name")

	sig := bleve.NewMatchQuery(query)
	sig.SetField("signature")

	doc := bleve.NewMatchQuery(query)
	doc.SetField("doc")

	q := bleve.NewDisjunctionQuery(fuzzy, wildcard, sig, doc)
	return s.runSearch(q, opts)
}

func (s *Store) runSearch(q bleve.Query, opts symbol.SearchOptions) ([]*SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit * 4
	res, err := s.search.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]*SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		sym, err := s.symbolFromDocID(hit.ID)
		if err != nil {
			continue
		}
		if opts.Kind != "" && sym.Kind != opts.Kind {
			continue
		}
		if opts.Language != "" && sym.Language != opts.Language {
			continue
		}
		if opts.FilePath != "" && !strings.Contains(fmt.Sprintf("%d", sym.FileId), opts.FilePath) {
			continue
		}
		out = append(out, &SearchResult{Symbol: sym, Score: hit.Score})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) symbolFromDocID(docID string) (*symbol.Symbol, error) {
	var n uint32
	if _, err := fmt.Sscanf(docID, "sym:%d", &n); err != nil {
		return nil, err
	}
	sym, err := s.GetSymbol(ids.SymbolId(n))
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Stats reports live (non-tombstoned) counts.
func (s *Store) Stats() (*symbol.IndexStats, error) {
	stats := &symbol.IndexStats{}
	err := s.db.View(func(tx *bolt.Tx) error {
		sc := tx.Bucket(BucketSymbols).Cursor()
		for k, v := sc.First(); k != nil; k, v = sc.Next() {
			var sym symbol.Symbol
			if err := json.Unmarshal(v, &sym); err != nil {
				continue
			}
			if !sym.Deleted {
				stats.Symbols++
			}
		}
		fc := tx.Bucket(BucketFiles).Cursor()
		for k, _ := fc.First(); k != nil; k, _ = fc.Next() {
			stats.Files++
		}
		return nil
	})
	return stats, err
}

// Clear wipes every record and rebuilds an empty search index.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{BucketSymbols, BucketFiles, BucketRelations} {
			bucket := tx.Bucket(b)
			c := bucket.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := bucket.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.search.Close()
	os.RemoveAll(s.searchPath)
	index, err := createSearchIndex(s.searchPath)
	if err != nil {
		return err
	}
	s.search = index
	return nil
}

// Compact rebuilds the bbolt symbol bucket keeping only live records and
// rewrites the search index to match, reclaiming tombstone disk footprint.
// Nothing calls this automatically — the triggering policy is left to the
// operator (see DESIGN.md open question on compaction).
func (s *Store) Compact() error {
	var live []*symbol.Symbol
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(BucketSymbols).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var sym symbol.Symbol
			if err := json.Unmarshal(v, &sym); err != nil {
				continue
			}
			if !sym.Deleted {
				live = append(live, &sym)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(BucketSymbols)
		if err := tx.DeleteBucket(BucketSymbols); err != nil {
			return err
		}
		newB, err := tx.CreateBucket(BucketSymbols)
		if err != nil {
			return err
		}
		b = newB
		for _, sym := range live {
			data, err := json.Marshal(sym)
			if err != nil {
				return err
			}
			if err := b.Put(symbolKey(sym.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.search.Close()
	os.RemoveAll(s.searchPath)
	index, err := createSearchIndex(s.searchPath)
	if err != nil {
		return err
	}
	s.search = index

	batch := s.search.NewBatch()
	for _, sym := range live {
		batch.Index(symbolDocID(sym.ID), symbolDoc(sym))
	}
	return s.search.Batch(batch)
}
