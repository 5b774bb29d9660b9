package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/symbol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "index.db"), filepath.Join(dir, "search.bleve"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mkSymbol(id ids.SymbolId, name string, fileID ids.FileId) *symbol.Symbol {
	return &symbol.Symbol{
		ID:         id,
		Name:       name,
		Kind:       symbol.KindFunction,
		FileId:     fileID,
		Visibility: symbol.VisibilityPublic,
		Language:   "go",
		CreatedAt:  time.Now(),
	}
}

func TestUpsertAndGetSymbol(t *testing.T) {
	s := newTestStore(t)

	sym := mkSymbol(1, "DoThing", 1)
	if err := s.UpsertSymbol(sym); err != nil {
		t.Fatalf("UpsertSymbol: %v", err)
	}
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	got, err := s.GetSymbol(1)
	if err != nil {
		t.Fatalf("GetSymbol: %v", err)
	}
	if got.Name != "DoThing" {
		t.Errorf("Name = %q, want DoThing", got.Name)
	}
}

func TestCommitBatchIsAtomic(t *testing.T) {
	s := newTestStore(t)

	s.UpsertSymbol(mkSymbol(1, "Alpha", 1))
	s.UpsertSymbol(mkSymbol(2, "Beta", 1))

	// Before commit, nothing is durable.
	if _, err := s.GetSymbol(1); err != ErrNotFound {
		t.Errorf("expected ErrNotFound before commit, got %v", err)
	}

	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	if _, err := s.GetSymbol(1); err != nil {
		t.Errorf("GetSymbol(1) after commit: %v", err)
	}
	if _, err := s.GetSymbol(2); err != nil {
		t.Errorf("GetSymbol(2) after commit: %v", err)
	}
}

func TestDeleteFileSymbolsIsSoftDelete(t *testing.T) {
	s := newTestStore(t)

	sym := mkSymbol(1, "Gone", 1)
	s.UpsertSymbol(sym)
	s.SetFileInfo(&symbol.File{ID: 1, Path: "a.go", Language: "go", SymbolIDs: []ids.SymbolId{1}})
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	if err := s.DeleteFileSymbols(1); err != nil {
		t.Fatalf("DeleteFileSymbols: %v", err)
	}
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	if _, err := s.GetSymbol(1); err != ErrNotFound {
		t.Errorf("expected tombstoned symbol to read as ErrNotFound, got %v", err)
	}

	found, err := s.FindByName("Gone", "")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected tombstoned symbol excluded from search, got %d hits", len(found))
	}
}

func TestFindByNameFiltersByLanguage(t *testing.T) {
	s := newTestStore(t)

	goSym := mkSymbol(1, "Handler", 1)
	goSym.Language = "go"
	pySym := mkSymbol(2, "Handler", 2)
	pySym.Language = "python"

	s.UpsertSymbol(goSym)
	s.UpsertSymbol(pySym)
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	got, err := s.FindByName("Handler", "python")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(got) != 1 || got[0].Language != "python" {
		t.Errorf("FindByName(lang=python) = %+v, want one python hit", got)
	}
}

func TestSearchPrefix(t *testing.T) {
	s := newTestStore(t)

	s.UpsertSymbol(mkSymbol(1, "getUser", 1))
	s.UpsertSymbol(mkSymbol(2, "getUserByID", 1))
	s.UpsertSymbol(mkSymbol(3, "setUser", 1))
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	res, err := s.SearchPrefix("get", symbol.SearchOptions{})
	if err != nil {
		t.Fatalf("SearchPrefix: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("SearchPrefix(get) returned %d hits, want 2", len(res))
	}
}

func TestGetFileSymbols(t *testing.T) {
	s := newTestStore(t)

	s.UpsertSymbol(mkSymbol(1, "A", 1))
	s.UpsertSymbol(mkSymbol(2, "B", 1))
	s.SetFileInfo(&symbol.File{ID: 1, Path: "f.go", SymbolIDs: []ids.SymbolId{1, 2}})
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	got, err := s.GetFileSymbols(1)
	if err != nil {
		t.Fatalf("GetFileSymbols: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetFileSymbols returned %d symbols, want 2", len(got))
	}
}

func TestStatsExcludesTombstones(t *testing.T) {
	s := newTestStore(t)

	s.UpsertSymbol(mkSymbol(1, "A", 1))
	s.UpsertSymbol(mkSymbol(2, "B", 1))
	s.SetFileInfo(&symbol.File{ID: 1, Path: "f.go", SymbolIDs: []ids.SymbolId{1, 2}})
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	s.DeleteFileSymbols(1)
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Symbols != 0 {
		t.Errorf("Stats.Symbols = %d, want 0 after tombstoning", stats.Symbols)
	}
}

func TestCompactRemovesTombstones(t *testing.T) {
	s := newTestStore(t)

	s.UpsertSymbol(mkSymbol(1, "A", 1))
	s.SetFileInfo(&symbol.File{ID: 1, Path: "f.go", SymbolIDs: []ids.SymbolId{1}})
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	s.DeleteFileSymbols(1)
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	if err := s.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Symbols != 0 {
		t.Errorf("Stats.Symbols after compact = %d, want 0", stats.Symbols)
	}
}

func TestFileRelationsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	caller := mkSymbol(1, "main", 1)
	callee := mkSymbol(2, "Helper", 1)
	base := mkSymbol(3, "Base", 1)
	variable := mkSymbol(4, "count", 1)
	s.UpsertSymbol(caller)
	s.UpsertSymbol(callee)
	s.UpsertSymbol(base)
	s.UpsertSymbol(variable)
	s.SetFileInfo(&symbol.File{ID: 1, Path: "a.go", Language: "go", SymbolIDs: []ids.SymbolId{1, 2, 3, 4}})
	s.SetFileRelations(&symbol.FileRelations{
		FileId:        1,
		Calls:         []*symbol.Calls{{Caller: 1, Callee: 2}},
		Imports:       []*symbol.Import{{FileId: 1, Path: "fmt"}},
		References:    []*symbol.Reference{{SymbolName: "Helper", Kind: symbol.RefKindCall, FileId: 1}},
		Implements:    []*symbol.Implements{{Type: 1, Base: 3}},
		VariableTypes: []*symbol.VariableType{{Variable: 4, TypeName: "int"}},
	})
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	rel, err := s.GetFileRelations(1)
	if err != nil {
		t.Fatalf("GetFileRelations: %v", err)
	}
	if len(rel.Calls) != 1 || rel.Calls[0].Callee != 2 {
		t.Errorf("GetFileRelations.Calls = %v; want one edge to symbol 2", rel.Calls)
	}

	callers, err := s.FindCallers(2)
	if err != nil {
		t.Fatalf("FindCallers: %v", err)
	}
	if len(callers) != 1 || callers[0].Caller != 1 {
		t.Errorf("FindCallers(2) = %v; want one caller (symbol 1)", callers)
	}

	refs, err := s.FindReferences("Helper", symbol.ReferenceSearchOptions{})
	if err != nil {
		t.Fatalf("FindReferences: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("FindReferences(Helper) = %v; want one match", refs)
	}

	impls, err := s.FindImplementations(3)
	if err != nil {
		t.Fatalf("FindImplementations: %v", err)
	}
	if len(impls) != 1 || impls[0].Type != 1 {
		t.Errorf("FindImplementations(3) = %v; want one edge from symbol 1", impls)
	}

	if len(rel.VariableTypes) != 1 || rel.VariableTypes[0].TypeName != "int" {
		t.Errorf("GetFileRelations.VariableTypes = %v; want count:int", rel.VariableTypes)
	}

	if err := s.DeleteFileSymbols(1); err != nil {
		t.Fatalf("DeleteFileSymbols: %v", err)
	}
	if _, err := s.CommitBatch(); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if _, err := s.GetFileRelations(1); err != ErrNotFound {
		t.Errorf("expected relations removed after DeleteFileSymbols, got %v", err)
	}
}
