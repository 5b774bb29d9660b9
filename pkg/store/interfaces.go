package store

import (
	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/symbol"
)

// DocumentIndex is the persistent, keyed symbol/file store contract
// described in spec component E: batched mutation, soft delete, and
// name/kind/file/language search.
type DocumentIndex interface {
	UpsertSymbol(sym *symbol.Symbol) error
	SetFileInfo(f *symbol.File) error
	SetFileRelations(rel *symbol.FileRelations) error
	DeleteFileSymbols(fileID ids.FileId) error
	CommitBatch() (string, error)

	GetSymbol(id ids.SymbolId) (*symbol.Symbol, error)
	GetFileInfo(id ids.FileId) (*symbol.File, error)
	FindFileByPath(path string) (*symbol.File, error)
	AllFiles() ([]*symbol.File, error)
	GetFileSymbols(fileID ids.FileId) ([]*symbol.Symbol, error)
	GetFileRelations(fileID ids.FileId) (*symbol.FileRelations, error)

	FindReferences(symbolName string, opts symbol.ReferenceSearchOptions) ([]*symbol.Reference, error)
	FindCallers(callee ids.SymbolId) ([]*symbol.Calls, error)
	FindImplementations(base ids.SymbolId) ([]*symbol.Implements, error)

	FindByName(name, language string) ([]*symbol.Symbol, error)
	SearchPrefix(prefix string, opts symbol.SearchOptions) ([]*SearchResult, error)
	SearchFuzzy(query string, opts symbol.SearchOptions) ([]*SearchResult, error)

	Stats() (*symbol.IndexStats, error)
	Compact() error
	Clear() error
	Close() error
}

var _ DocumentIndex = (*Store)(nil)
