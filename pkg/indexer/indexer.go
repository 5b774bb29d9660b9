package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/lang"
	"github.com/codelens-dev/codelens/pkg/resolve"
	"github.com/codelens-dev/codelens/pkg/semantic"
	"github.com/codelens-dev/codelens/pkg/store"
	"github.com/codelens-dev/codelens/pkg/symbol"
	"github.com/codelens-dev/codelens/pkg/watcher"
	"github.com/codelens-dev/codelens/pkg/xerrors"
)

var indexLog = log.New(os.Stderr, "[codelens:indexer] ", log.Ltime)

const (
	settingsFileName = "roots.json"
	semanticDirName  = "semantic"
)

// Settings is the persisted, canonicalised, duplicate-free set of indexed
// root paths — spec component H's "configured roots".
type Settings struct {
	Roots []string `json:"roots"`
}

func loadSettings(dir string) (Settings, error) {
	if dir == "" {
		return Settings{}, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, settingsFileName))
	if os.IsNotExist(err) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, xerrors.Wrap(xerrors.LoadError, "check filesystem permissions on the index directory", err, "reading %s", settingsFileName)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, xerrors.Wrap(xerrors.LoadError, "the roots file is corrupt; remove it to start with an empty root set", err, "parsing %s", settingsFileName)
	}
	return s, nil
}

func (s Settings) save(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Wrap(xerrors.PersistenceError, "check filesystem permissions on the index directory", err, "creating %s", dir)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, settingsFileName), data, 0o644); err != nil {
		return xerrors.Wrap(xerrors.PersistenceError, "check filesystem permissions on the index directory", err, "writing %s", settingsFileName)
	}
	return nil
}

// queuedDoc is a doc comment waiting to be embedded once the owning text
// commit has durably landed.
type queuedDoc struct {
	SymbolId ids.SymbolId
	Text     string
	Language string
}

// Indexer is the multi-root orchestrator described by spec component H: it
// owns the indexed-root set, walks and dispatches files to the language
// parser, funnels extracted symbols into the document index, queues doc
// comments for semantic embedding, and enforces the commit-ordering
// contract between the two stores (text index commits first; only on its
// success are queued embeddings flushed through the semantic index).
type Indexer struct {
	dir      string
	parser   *lang.Parser
	docs     store.DocumentIndex
	semantic *semantic.Index
	fileIDs  *ids.FileCounter
	ignore   *Matcher

	concurrency int

	mu       sync.Mutex
	settings Settings

	cancel atomic.Bool

	pendingMu         sync.Mutex
	pendingDocs       []queuedDoc
	pendingImplements []lang.PendingImplements
	pendingCalls      []lang.PendingCall

	inheritance *resolve.InheritanceResolver
}

// New builds an Indexer rooted at dir (where roots.json and the semantic
// index's sidecars live), backed by parser for extraction, docs for
// persistent symbol storage, and sem for doc-comment semantic search (nil
// disables semantic indexing entirely). fileIDs is shared with any other
// component allocating FileIds so identifiers stay unique process-wide.
func New(dir string, parser *lang.Parser, docs store.DocumentIndex, sem *semantic.Index, fileIDs *ids.FileCounter) (*Indexer, error) {
	settings, err := loadSettings(dir)
	if err != nil {
		return nil, err
	}
	concurrency := runtime.NumCPU()
	if concurrency < 1 {
		concurrency = 1
	}
	return &Indexer{
		dir:         dir,
		parser:      parser,
		docs:        docs,
		semantic:    sem,
		fileIDs:     fileIDs,
		ignore:      NewFromDefaults(),
		settings:    settings,
		concurrency: concurrency,
		inheritance: resolve.NewInheritanceResolver(),
	}, nil
}

// Inheritance returns the orchestrator's InheritanceResolver, populated
// incrementally as files are indexed (method declarations immediately,
// extends/implements/uses edges once their parent type resolves across
// files at the next commit).
func (ix *Indexer) Inheritance() *resolve.InheritanceResolver {
	return ix.inheritance
}

// SetIgnoreMatcher overrides the default ignore rules, e.g. with one loaded
// from a specific project's .codelensignore via New(projectRoot).
func (ix *Indexer) SetIgnoreMatcher(m *Matcher) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ignore = m
}

// SetConcurrency overrides the file-level parallelism worker count (default
// runtime.NumCPU()).
func (ix *Indexer) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.concurrency = n
}

// Roots returns a copy of the currently configured, canonicalised root set.
func (ix *Indexer) Roots() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make([]string, len(ix.settings.Roots))
	copy(out, ix.settings.Roots)
	return out
}

// Cancel requests that any in-flight or future walk stop at the next
// file/commit-phase boundary. It is cooperative, not preemptive.
func (ix *Indexer) Cancel() {
	ix.cancel.Store(true)
}

// ResetCancel clears a prior Cancel so the Indexer can be reused.
func (ix *Indexer) ResetCancel() {
	ix.cancel.Store(false)
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", xerrors.Wrap(xerrors.ConfigError, "provide a valid filesystem path", err, "resolving %s", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Best effort: a path that no longer exists (already removed from
		// disk) is still a valid canonical key for bookkeeping purposes.
		return abs, nil
	}
	return resolved, nil
}

// AddRoot canonicalises path (resolving symlinks) and adds it to the
// indexed root set, rejecting an exact duplicate. It does not index the
// root's contents — call IndexRoot for that.
func (ix *Indexer) AddRoot(path string) error {
	canon, err := canonicalize(path)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range ix.settings.Roots {
		if r == canon {
			return xerrors.New(xerrors.ConfigError, "remove the existing root before re-adding it, or choose a different path", "root %s is already indexed", canon)
		}
	}
	ix.settings.Roots = append(ix.settings.Roots, canon)
	sort.Strings(ix.settings.Roots)
	return ix.settings.save(ix.dir)
}

// RemoveRoot drops path from the indexed root set and runs cleanup:
// symbols belonging to files no longer under any remaining root are
// soft-deleted and their embeddings removed, unless a still-active root
// protects them (a nested root like project/submodule survives removal of
// its ancestor project/).
func (ix *Indexer) RemoveRoot(path string) error {
	canon, err := canonicalize(path)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	found := false
	kept := make([]string, 0, len(ix.settings.Roots))
	for _, r := range ix.settings.Roots {
		if r == canon {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		ix.mu.Unlock()
		return xerrors.New(xerrors.ConfigError, "check the configured roots with Roots() before removing", "root %s is not indexed", canon)
	}
	ix.settings.Roots = kept
	saveErr := ix.settings.save(ix.dir)
	active := make([]string, len(kept))
	copy(active, kept)
	ix.mu.Unlock()

	if saveErr != nil {
		return saveErr
	}
	_, err = ix.CleanRemovedFolders(active)
	return err
}

func isDescendantOfAny(path string, roots []string) bool {
	for _, r := range roots {
		if path == r {
			return true
		}
		if strings.HasPrefix(path, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// CleanRemovedFolders soft-deletes every indexed file whose canonical path
// does not descend from any root in activeRoots, removing their embeddings
// too, then commits the batch. It returns the number of files cleaned.
func (ix *Indexer) CleanRemovedFolders(activeRoots []string) (int, error) {
	canonActive := make([]string, 0, len(activeRoots))
	for _, r := range activeRoots {
		c, err := canonicalize(r)
		if err != nil {
			continue
		}
		canonActive = append(canonActive, c)
	}

	files, err := ix.docs.AllFiles()
	if err != nil {
		return 0, xerrors.Wrap(xerrors.PersistenceError, "check the document index for corruption", err, "listing indexed files")
	}

	removed := 0
	for _, f := range files {
		if f.Path == "" || isDescendantOfAny(f.Path, canonActive) {
			continue
		}
		if err := ix.docs.DeleteFileSymbols(f.ID); err != nil {
			return removed, err
		}
		if ix.semantic != nil {
			ix.semantic.RemoveEmbeddings(f.SymbolIDs)
		}
		removed++
	}

	if removed == 0 {
		return 0, nil
	}
	if err := ix.commit(); err != nil {
		return removed, err
	}
	return removed, nil
}

// IndexAll walks every configured root, dispatching files in parallel, and
// commits once at the end. Returns the resulting index-wide statistics.
func (ix *Indexer) IndexAll(ctx context.Context) (*symbol.IndexStats, error) {
	for _, root := range ix.Roots() {
		if ix.cancel.Load() {
			break
		}
		if err := ix.walkAndDispatch(ctx, root); err != nil {
			return nil, err
		}
	}
	if err := ix.commit(); err != nil {
		return nil, err
	}
	return ix.docs.Stats()
}

// IndexRoot walks and indexes a single root (which need not already be a
// member of Roots()), committing at the end.
func (ix *Indexer) IndexRoot(ctx context.Context, root string) error {
	if err := ix.walkAndDispatch(ctx, root); err != nil {
		return err
	}
	return ix.commit()
}

func (ix *Indexer) walkAndDispatch(ctx context.Context, root string) error {
	root, err := canonicalize(root)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	matcher := ix.ignore
	concurrency := ix.concurrency
	ix.mu.Unlock()

	shouldSkip := matcher.WalkFunc(root)

	var files []string
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// A single unreadable entry degrades the walk, not the batch.
			return nil
		}
		if ix.cancel.Load() {
			return filepath.SkipAll
		}
		if skip, skipDir := shouldSkip(path, info); skip {
			if skipDir {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !lang.SupportedFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return xerrors.Wrap(xerrors.FileReadError, "check that the root directory exists and is readable", walkErr, "walking %s", root)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, f := range files {
		path := f
		g.Go(func() error {
			if ix.cancel.Load() || gctx.Err() != nil {
				return nil
			}
			if err := ix.indexFile(path, root); err != nil {
				indexLog.Printf("indexing %s: %v", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// indexFile hashes path's content, skips it if unchanged since the last
// index, and otherwise reparses it: prior symbols and embeddings for the
// file are removed before the new ones are staged. Per-file parse errors
// degrade to a best-effort skip rather than failing the caller.
func (ix *Indexer) indexFile(path, root string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return xerrors.Wrap(xerrors.FileReadError, "check file permissions and that the path still exists", err, "reading %s", path)
	}
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	var fileID ids.FileId
	existing, err := ix.docs.FindFileByPath(path)
	switch {
	case err == nil:
		if existing.Hash == hash {
			return nil
		}
		fileID = existing.ID
		if err := ix.docs.DeleteFileSymbols(fileID); err != nil {
			return err
		}
		if ix.semantic != nil {
			ix.semantic.RemoveEmbeddings(existing.SymbolIDs)
		}
	case errors.Is(err, store.ErrNotFound):
		fid, ferr := ix.fileIDs.Next()
		if ferr != nil {
			return xerrors.Wrap(xerrors.FileIdExhausted, "the file id counter is exhausted; restart with a fresh index", ferr, "allocating file id for %s", path)
		}
		fileID = fid
	default:
		return err
	}

	result, err := ix.parser.ParseFile(path, fileID, root)
	if err != nil {
		indexLog.Printf("parse error for %s: %v (degrading to empty extraction)", path, err)
		return nil
	}
	if result == nil || result.File == nil {
		return nil
	}

	result.File.Hash = hash
	if err := ix.docs.SetFileInfo(result.File); err != nil {
		return err
	}
	for _, sym := range result.Symbols {
		if err := ix.docs.UpsertSymbol(sym); err != nil {
			return err
		}
		if sym.DocComment != "" {
			ix.queueDoc(sym.ID, sym.DocComment, sym.Language)
		}
	}

	rel := &symbol.FileRelations{
		FileId:        fileID,
		References:    result.References,
		Imports:       result.Imports,
		Defines:       result.Defines,
		Calls:         result.Calls,
		MethodCalls:   result.MethodCalls,
		VariableTypes: result.VariableTypes,
	}
	if err := ix.docs.SetFileRelations(rel); err != nil {
		return err
	}

	ix.declareMethods(result)
	ix.queueRelationships(result)
	return nil
}

// declareMethods feeds the inheritance resolver every method a type in this
// file directly declares, via the same Defines edges that record structural
// containment. This needs no cross-file lookup (container and member both
// come from this file's just-parsed symbol set), so it runs synchronously
// rather than waiting for the deferred resolution pass.
func (ix *Indexer) declareMethods(result *lang.Result) {
	byID := make(map[ids.SymbolId]*symbol.Symbol, len(result.Symbols))
	for _, s := range result.Symbols {
		byID[s.ID] = s
	}
	for _, d := range result.Defines {
		container, ok := byID[d.Container]
		if !ok {
			continue
		}
		switch container.Kind {
		case symbol.KindClass, symbol.KindStruct, symbol.KindInterface, symbol.KindTrait:
		default:
			continue
		}
		member, ok := byID[d.Member]
		if !ok || member.Kind != symbol.KindMethod {
			continue
		}
		ix.inheritance.DeclareMethod(d.Container, member.Name, member.ID)
	}
}

// queueRelationships stages this file's cross-file-dependent edges
// (extends/implements/uses parent names, receiver-less calls with no local
// candidate) for resolution once the whole batch's symbols are committed
// and queryable via FindByName.
func (ix *Indexer) queueRelationships(result *lang.Result) {
	if len(result.PendingImplements) == 0 && len(result.PendingCalls) == 0 {
		return
	}
	ix.pendingMu.Lock()
	ix.pendingImplements = append(ix.pendingImplements, result.PendingImplements...)
	ix.pendingCalls = append(ix.pendingCalls, result.PendingCalls...)
	ix.pendingMu.Unlock()
}

func (ix *Indexer) queueDoc(id ids.SymbolId, text, language string) {
	ix.pendingMu.Lock()
	ix.pendingDocs = append(ix.pendingDocs, queuedDoc{SymbolId: id, Text: text, Language: language})
	ix.pendingMu.Unlock()
}

// commit flushes the text-index batch first; only on its success are
// queued doc comments embedded and written through the semantic index. A
// vector-side failure does not roll back the already-durable text commit —
// the failed entries stay queued and retry on the next commit.
func (ix *Indexer) commit() error {
	if _, err := ix.docs.CommitBatch(); err != nil {
		return xerrors.Wrap(xerrors.TransactionFailed, "the prior durable state remains authoritative; fix the underlying storage error and retry", err, "committing text index batch")
	}
	ix.resolvePendingRelationships()
	ix.flushPendingDocs()
	return nil
}

// resolvePendingRelationships runs once a batch's symbols are durably
// committed and therefore queryable via FindByName: it resolves every
// queued extends/implements/uses parent name and every queued cross-file
// bare call, feeds resolved edges into the InheritanceResolver, and
// persists resolved Implements/Calls edges back into their owning file's
// FileRelations. Entries that still don't resolve (parent or callee not
// yet indexed) are dropped rather than retried indefinitely — the next
// full reindex of the relevant files re-queues them.
func (ix *Indexer) resolvePendingRelationships() {
	ix.pendingMu.Lock()
	implements := ix.pendingImplements
	calls := ix.pendingCalls
	ix.pendingImplements = nil
	ix.pendingCalls = nil
	ix.pendingMu.Unlock()

	if len(implements) == 0 && len(calls) == 0 {
		return
	}

	dirty := make(map[ids.FileId]*symbol.FileRelations)
	getRel := func(fileID ids.FileId) *symbol.FileRelations {
		if r, ok := dirty[fileID]; ok {
			return r
		}
		r, err := ix.docs.GetFileRelations(fileID)
		if err != nil {
			r = &symbol.FileRelations{FileId: fileID}
		}
		dirty[fileID] = r
		return r
	}

	for _, pi := range implements {
		typeSym, err := ix.docs.GetSymbol(pi.TypeID)
		if err != nil {
			continue
		}
		candidates, err := ix.docs.FindByName(pi.BaseName, "")
		if err != nil || len(candidates) == 0 {
			continue
		}
		base := pickTypeCandidate(candidates, typeSym.Language)
		if base == nil {
			continue
		}
		kind := resolve.Extends
		switch pi.Kind {
		case "implements":
			kind = resolve.Implements
		case "uses":
			kind = resolve.Uses
		}
		ix.inheritance.AddEdge(pi.TypeID, kind, base.ID)

		rel := getRel(typeSym.FileId)
		rel.Implements = append(rel.Implements, &symbol.Implements{Type: pi.TypeID, Base: base.ID, Range: pi.Range})
	}

	for _, pc := range calls {
		callerSym, err := ix.docs.GetSymbol(pc.CallerID)
		if err != nil {
			continue
		}
		candidates, err := ix.docs.FindByName(pc.Name, "")
		if err != nil {
			continue
		}
		var callees []*symbol.Symbol
		for _, c := range candidates {
			if c.Kind == symbol.KindFunction || c.Kind == symbol.KindMethod {
				callees = append(callees, c)
			}
		}
		if len(callees) != 1 {
			continue
		}
		rel := getRel(callerSym.FileId)
		rel.Calls = append(rel.Calls, &symbol.Calls{Caller: pc.CallerID, Callee: callees[0].ID, Range: pc.Range})
	}

	if len(dirty) == 0 {
		return
	}
	for _, rel := range dirty {
		if err := ix.docs.SetFileRelations(rel); err != nil {
			indexLog.Printf("persisting resolved relationships for file %d: %v", rel.FileId, err)
		}
	}
	if _, err := ix.docs.CommitBatch(); err != nil {
		indexLog.Printf("committing resolved relationships: %v", err)
	}
}

// pickTypeCandidate prefers a same-language match (a PHP class named
// "Model" should not resolve to an unrelated Python "Model") but falls
// back to the first candidate of a type-like kind otherwise.
func pickTypeCandidate(candidates []*symbol.Symbol, language string) *symbol.Symbol {
	isTypeLike := func(s *symbol.Symbol) bool {
		switch s.Kind {
		case symbol.KindClass, symbol.KindStruct, symbol.KindInterface, symbol.KindTrait, symbol.KindEnum:
			return true
		default:
			return false
		}
	}
	var fallback *symbol.Symbol
	for _, c := range candidates {
		if !isTypeLike(c) {
			continue
		}
		if c.Language == language {
			return c
		}
		if fallback == nil {
			fallback = c
		}
	}
	return fallback
}

func (ix *Indexer) flushPendingDocs() {
	ix.pendingMu.Lock()
	docs := ix.pendingDocs
	ix.pendingDocs = nil
	ix.pendingMu.Unlock()

	if ix.semantic == nil || len(docs) == 0 {
		return
	}

	var retry []queuedDoc
	for _, d := range docs {
		if err := ix.semantic.IndexDocComment(d.SymbolId, d.Text, d.Language); err != nil {
			indexLog.Printf("embedding symbol %d: %v", d.SymbolId, err)
			retry = append(retry, d)
		}
	}

	if ix.dir != "" {
		if err := ix.semantic.Save(filepath.Join(ix.dir, semanticDirName)); err != nil {
			indexLog.Printf("saving semantic index: %v", err)
			retry = docs
		}
	}

	if len(retry) > 0 {
		ix.pendingMu.Lock()
		ix.pendingDocs = append(ix.pendingDocs, retry...)
		ix.pendingMu.Unlock()
	}
}

// Save persists the root set and flushes the semantic index to disk.
func (ix *Indexer) Save() error {
	ix.mu.Lock()
	settings := ix.settings
	ix.mu.Unlock()

	if err := settings.save(ix.dir); err != nil {
		return err
	}
	if ix.semantic != nil && ix.dir != "" {
		return ix.semantic.Save(filepath.Join(ix.dir, semanticDirName))
	}
	return nil
}

var _ watcher.Trigger = (*Indexer)(nil)

// OnPathsChanged implements watcher.Trigger: a debounced batch of filesystem
// changes triggers a targeted reindex (Modified) or removal (Removed) of
// just the affected paths, followed by one commit.
func (ix *Indexer) OnPathsChanged(changes map[string]watcher.ChangeKind) {
	roots := ix.Roots()
	rootFor := func(path string) (string, bool) {
		for _, r := range roots {
			if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
				return r, true
			}
		}
		return "", false
	}

	for path, kind := range changes {
		canon, err := canonicalize(path)
		if err != nil {
			canon = path
		}
		switch kind {
		case watcher.Removed:
			f, err := ix.docs.FindFileByPath(canon)
			if err != nil {
				continue
			}
			if err := ix.docs.DeleteFileSymbols(f.ID); err != nil {
				indexLog.Printf("removing symbols for %s: %v", canon, err)
				continue
			}
			if ix.semantic != nil {
				ix.semantic.RemoveEmbeddings(f.SymbolIDs)
			}
		case watcher.Modified:
			root, ok := rootFor(canon)
			if !ok {
				continue
			}
			if err := ix.indexFile(canon, root); err != nil {
				indexLog.Printf("reindexing %s: %v", canon, err)
			}
		}
	}

	if err := ix.commit(); err != nil {
		indexLog.Printf("commit after watch trigger: %v", err)
	}
}
