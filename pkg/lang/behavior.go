package lang

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/codelens-dev/codelens/pkg/symbol"
)

// Behavior captures the handful of per-language conventions the resolver
// needs but that tree-sitter grammars don't encode structurally: what makes
// a declaration visible outside its file, how a file path maps to the
// language's notion of a module, and whether an import statement's path
// refers to a given module.
type Behavior interface {
	// Visibility classifies a declaration given its name and the source
	// text of its signature (which may carry an explicit modifier such as
	// `pub`, `public`, `export`, or a leading underscore convention).
	Visibility(name, signature string) symbol.Visibility

	// ModulePath derives the language's module identifier for a file,
	// relative to projectRoot.
	ModulePath(filePath, projectRoot string) string

	// MatchesImport reports whether importPath refers to modulePath.
	MatchesImport(importPath, modulePath string) bool
}

// For gets the Behavior for a language name, falling back to a permissive
// default for languages without a dedicated policy.
func For(language string) Behavior {
	if b, ok := behaviors[language]; ok {
		return b
	}
	return defaultBehavior{}
}

var behaviors = map[string]Behavior{
	Go:         goBehavior{},
	Rust:       rustBehavior{},
	Python:     pythonBehavior{},
	TypeScript: jsFamilyBehavior{},
	Tsx:        jsFamilyBehavior{},
	JavaScript: jsFamilyBehavior{},
	Java:       javaBehavior{},
	C:          cFamilyBehavior{},
	CPP:        cFamilyBehavior{},
	CSharp:     javaBehavior{},
	PHP:        phpBehavior{},
}

func dirModulePath(filePath, projectRoot, sep string) string {
	rel := filePath
	if projectRoot != "" {
		if r, err := filepath.Rel(projectRoot, filePath); err == nil {
			rel = r
		}
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = filepath.ToSlash(rel)
	return strings.ReplaceAll(rel, "/", sep)
}

// goBehavior: exported identifiers (leading uppercase) are public; all
// others are module-visible (package-private in Go terms).
type goBehavior struct{}

func (goBehavior) Visibility(name, _ string) symbol.Visibility {
	if name == "" {
		return symbol.VisibilityModule
	}
	r := []rune(name)[0]
	if unicode.IsUpper(r) {
		return symbol.VisibilityPublic
	}
	return symbol.VisibilityModule
}

func (goBehavior) ModulePath(filePath, projectRoot string) string {
	dir := filepath.Dir(filePath)
	if projectRoot != "" {
		if r, err := filepath.Rel(projectRoot, dir); err == nil {
			dir = r
		}
	}
	return filepath.ToSlash(dir)
}

func (goBehavior) MatchesImport(importPath, modulePath string) bool {
	return strings.HasSuffix(importPath, modulePath) || strings.HasSuffix(modulePath, importPath)
}

// rustBehavior: `pub` prefix in the signature marks public; everything else
// is private to its enclosing module.
type rustBehavior struct{}

func (rustBehavior) Visibility(_, signature string) symbol.Visibility {
	sig := strings.TrimSpace(signature)
	if strings.HasPrefix(sig, "pub ") || strings.HasPrefix(sig, "pub(") || strings.HasPrefix(sig, "pub\n") {
		return symbol.VisibilityPublic
	}
	return symbol.VisibilityPrivate
}

func (rustBehavior) ModulePath(filePath, projectRoot string) string {
	return dirModulePath(filePath, projectRoot, "::")
}

func (rustBehavior) MatchesImport(importPath, modulePath string) bool {
	return strings.Contains(importPath, modulePath)
}

// pythonBehavior: dunder names (__x__) are public; a double leading
// underscore without the trailing pair marks a private, name-mangled member;
// a single leading underscore marks a module-private name; everything else
// is public.
type pythonBehavior struct{}

func (pythonBehavior) Visibility(name, _ string) symbol.Visibility {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return symbol.VisibilityPublic
	}
	if strings.HasPrefix(name, "__") {
		return symbol.VisibilityPrivate
	}
	if strings.HasPrefix(name, "_") {
		return symbol.VisibilityModule
	}
	return symbol.VisibilityPublic
}

func (pythonBehavior) ModulePath(filePath, projectRoot string) string {
	return dirModulePath(filePath, projectRoot, ".")
}

func (pythonBehavior) MatchesImport(importPath, modulePath string) bool {
	return importPath == modulePath || strings.HasSuffix(modulePath, "."+importPath)
}

// jsFamilyBehavior: an `export` keyword in the signature marks public.
// TypeScript/JavaScript have no module-private tier distinct from file
// scope, so anything un-exported is treated as private to its file.
type jsFamilyBehavior struct{}

func (jsFamilyBehavior) Visibility(_, signature string) symbol.Visibility {
	if strings.Contains(signature, "export ") || strings.HasPrefix(strings.TrimSpace(signature), "export") {
		return symbol.VisibilityPublic
	}
	return symbol.VisibilityPrivate
}

func (jsFamilyBehavior) ModulePath(filePath, projectRoot string) string {
	return dirModulePath(filePath, projectRoot, "/")
}

func (jsFamilyBehavior) MatchesImport(importPath, modulePath string) bool {
	clean := strings.TrimSuffix(importPath, ".js")
	clean = strings.TrimSuffix(clean, ".ts")
	clean = strings.TrimPrefix(clean, "./")
	clean = strings.TrimPrefix(clean, "../")
	return strings.HasSuffix(modulePath, clean)
}

// javaBehavior: `public` in the signature marks public, `private` marks
// private, otherwise package (module) visibility applies.
type javaBehavior struct{}

func (javaBehavior) Visibility(_, signature string) symbol.Visibility {
	fields := strings.Fields(signature)
	for _, f := range fields {
		switch f {
		case "public":
			return symbol.VisibilityPublic
		case "private":
			return symbol.VisibilityPrivate
		}
	}
	return symbol.VisibilityModule
}

func (javaBehavior) ModulePath(filePath, projectRoot string) string {
	return dirModulePath(filePath, projectRoot, ".")
}

func (javaBehavior) MatchesImport(importPath, modulePath string) bool {
	return strings.HasSuffix(importPath, modulePath)
}

// cFamilyBehavior: `static` in the signature marks translation-unit-private
// (treated as module); everything else is public (external linkage).
type cFamilyBehavior struct{}

func (cFamilyBehavior) Visibility(_, signature string) symbol.Visibility {
	if strings.Contains(signature, "static ") || strings.HasPrefix(strings.TrimSpace(signature), "static") {
		return symbol.VisibilityModule
	}
	return symbol.VisibilityPublic
}

func (cFamilyBehavior) ModulePath(filePath, projectRoot string) string {
	return dirModulePath(filePath, projectRoot, "/")
}

func (cFamilyBehavior) MatchesImport(importPath, modulePath string) bool {
	return strings.HasSuffix(modulePath, strings.TrimSuffix(importPath, filepath.Ext(importPath)))
}

// phpBehavior: `public`/`private`/`protected` modifiers on class members;
// top-level functions and classes have no visibility keyword and default to
// public. Namespaces use a backslash separator.
type phpBehavior struct{}

func (phpBehavior) Visibility(_, signature string) symbol.Visibility {
	fields := strings.Fields(signature)
	for _, f := range fields {
		switch f {
		case "public":
			return symbol.VisibilityPublic
		case "private":
			return symbol.VisibilityPrivate
		case "protected":
			return symbol.VisibilityModule
		}
	}
	return symbol.VisibilityPublic
}

func (phpBehavior) ModulePath(filePath, projectRoot string) string {
	return dirModulePath(filePath, projectRoot, `\`)
}

func (phpBehavior) MatchesImport(importPath, modulePath string) bool {
	clean := strings.TrimPrefix(importPath, `\`)
	return strings.HasSuffix(modulePath, clean) || strings.HasSuffix(clean, modulePath)
}

// defaultBehavior treats every symbol as public and matches imports by
// suffix; used for languages without a dedicated policy.
type defaultBehavior struct{}

func (defaultBehavior) Visibility(string, string) symbol.Visibility { return symbol.VisibilityPublic }

func (defaultBehavior) ModulePath(filePath, projectRoot string) string {
	return dirModulePath(filePath, projectRoot, "/")
}

func (defaultBehavior) MatchesImport(importPath, modulePath string) bool {
	return strings.HasSuffix(modulePath, importPath)
}
