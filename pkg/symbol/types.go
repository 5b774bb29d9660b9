// Package symbol defines the data model shared by the parser, resolver,
// document store, and semantic index: symbols, files, imports, and the
// relationship edges extracted from source.
package symbol

import (
	"time"

	"github.com/codelens-dev/codelens/pkg/ids"
)

// Kind classifies what a Symbol declares.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindTrait     Kind = "trait"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindTypeAlias Kind = "type_alias"
	KindVariable  Kind = "variable"
	KindConstant  Kind = "constant"
	KindModule    Kind = "module"
	KindMacro     Kind = "macro"
	KindField     Kind = "field"
	KindParameter Kind = "parameter"
)

// Visibility classifies how widely a Symbol can be referenced.
type Visibility string

const (
	// VisibilityPublic symbols are reachable from any module or package.
	VisibilityPublic Visibility = "public"
	// VisibilityModule symbols are reachable only within their declaring module.
	VisibilityModule Visibility = "module"
	// VisibilityPrivate symbols are reachable only within their declaring scope.
	VisibilityPrivate Visibility = "private"
)

// ScopeKind tags which variant of ScopeContext is populated.
type ScopeKind string

const (
	ScopeModule      ScopeKind = "module"
	ScopeClassMember ScopeKind = "class_member"
	ScopeParameter   ScopeKind = "parameter"
	ScopeLocal       ScopeKind = "local"
	ScopeGlobal      ScopeKind = "global"
	ScopePackage     ScopeKind = "package"
)

// ScopeContext describes where a symbol lives relative to its enclosing
// declarations. It behaves as a tagged union: Kind selects which of the
// remaining fields are meaningful, mirroring the handful of payload shapes
// a resolver needs (a bare tag for Module/Global/Package/Parameter, a richer
// payload for ClassMember and Local).
type ScopeContext struct {
	Kind ScopeKind

	// ParentName and ParentKind apply to ScopeClassMember: the enclosing
	// type's name and kind.
	ParentName string
	ParentKind Kind

	// Hoisted and the Parent* fields apply to ScopeLocal: whether the
	// declaration is hoisted to the top of its enclosing function, and the
	// optional enclosing function's name/kind.
	Hoisted bool
}

// Symbol is a single named declaration extracted from a source file.
type Symbol struct {
	ID            ids.SymbolId
	Name          string
	Kind          Kind
	FileId        ids.FileId
	Range         ids.Range
	Signature     string
	DocComment    string
	Visibility    Visibility
	ScopeContext  *ScopeContext
	Language      string
	Complexity    int
	CreatedAt     time.Time
	Deleted       bool
	DeletedAt     time.Time
}

// File tracks one indexed source file.
type File struct {
	ID         ids.FileId
	Path       string
	Language   string
	ModulePath string
	ModTime    time.Time
	Hash       string
	SymbolIDs  []ids.SymbolId
}

// Import is a single import/use/include statement.
type Import struct {
	FileId     ids.FileId
	Path       string
	Alias      string
	IsGlob     bool
	IsTypeOnly bool
	Range      ids.Range
}

// Calls records that Caller invokes Callee by direct name.
type Calls struct {
	Caller ids.SymbolId
	Callee ids.SymbolId
	Range  ids.Range
}

// MethodCall records a method invocation where the callee could not be
// resolved to a single symbol at parse time (the receiver's type is
// resolved later, if at all).
type MethodCall struct {
	Caller     ids.SymbolId
	MethodName string
	Receiver   string
	Range      ids.Range
}

// Implements records that Type implements or extends Base.
type Implements struct {
	Type  ids.SymbolId
	Base  ids.SymbolId
	Range ids.Range
}

// Defines records that Container declares Member as a direct child
// (a class defining a method, a module defining a function).
type Defines struct {
	Container ids.SymbolId
	Member    ids.SymbolId
	Range     ids.Range
}

// VariableType records the declared or inferred type name of a variable.
type VariableType struct {
	Variable ids.SymbolId
	TypeName string
	Range    ids.Range
}

// ReferenceKind classifies a use-site distinct from a declaration.
type ReferenceKind string

const (
	RefKindCall    ReferenceKind = "call"
	RefKindTypeRef ReferenceKind = "type_ref"
	RefKindImport  ReferenceKind = "import"
)

// Reference is a use-site of a symbol that may not yet be resolvable to a
// SymbolId (e.g. a call whose target lives in a file not yet indexed).
type Reference struct {
	ID         ids.SymbolId
	SymbolName string
	Kind       ReferenceKind
	FileId     ids.FileId
	Range      ids.Range
	Context    string
	Language   string
	CreatedAt  time.Time
}

// SearchOptions filters a symbol search.
type SearchOptions struct {
	Kind     Kind
	Language string
	FilePath string
	Limit    int
}

// ReferenceSearchOptions filters a reference search.
type ReferenceSearchOptions struct {
	SymbolName string
	Kind       ReferenceKind
	FilePath   string
	Limit      int
}

// FileRelations bundles every edge the parser extracted from one file, so
// the document index can replace them as a unit each time the file is
// reparsed rather than reconciling individual edges.
type FileRelations struct {
	FileId        ids.FileId
	References    []*Reference
	Imports       []*Import
	Defines       []*Defines
	Calls         []*Calls
	MethodCalls   []*MethodCall
	Implements    []*Implements
	VariableTypes []*VariableType
}

// IndexStats summarizes the contents of a document index.
type IndexStats struct {
	Files      int
	Symbols    int
	References int
}
