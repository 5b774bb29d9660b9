package grammar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// ABI compatibility window for dynamically loaded grammars. tree-sitter's ABI
// version is bumped when the on-disk parse-table format changes; a grammar
// built outside this window cannot be safely handed to the linked runtime.
// Builtin grammars never hit this check — they are compiled against the same
// go-tree-sitter release as the runtime, so their ABI always matches.
const (
	minSupportedABI uint32 = 13
	maxSupportedABI uint32 = 15
)

// checkABICompatibility reports an IncompatibleABIError if abiVersion is
// known (non-zero) and falls outside [minSupportedABI, maxSupportedABI].
func checkABICompatibility(name string, abiVersion uint32) error {
	if abiVersion == 0 {
		return nil
	}
	if abiVersion < minSupportedABI || abiVersion > maxSupportedABI {
		return &IncompatibleABIError{
			Name:       name,
			AbiVersion: abiVersion,
			MinVersion: minSupportedABI,
			MaxVersion: maxSupportedABI,
		}
	}
	return nil
}

// LibraryOpenError wraps a failure to open or resolve a symbol in a grammar's
// shared library, giving it the same typed, suggestion-carrying shape as the
// other grammar errors instead of a bare fmt.Errorf.
type LibraryOpenError struct {
	Name string
	Path string
	Err  error
}

func (e *LibraryOpenError) Error() string {
	return fmt.Sprintf("grammar %q: opening %s: %v", e.Name, e.Path, e.Err)
}

func (e *LibraryOpenError) Unwrap() error { return e.Err }

// Suggestion returns an actionable next step for the caller.
func (e *LibraryOpenError) Suggestion() string {
	return fmt.Sprintf("the grammar library for %q may be corrupt or built for a different platform; try `codelens grammar install %s --force`", e.Name, e.Name)
}

// DynamicGrammarDef describes a grammar that can be dynamically loaded.
type DynamicGrammarDef struct {
	// SourceRepo is the GitHub repository (e.g., "tree-sitter/tree-sitter-ruby").
	SourceRepo string
	// CSymbol is the C function name exported by the shared library
	// (e.g., "tree_sitter_ruby").
	CSymbol string
	// LatestVersion is the latest known version of the grammar.
	// Used for downloads when no version is specified.
	LatestVersion string
}

// DynamicGrammars lists all grammars that can be dynamically loaded.
// These are NOT compiled into the binary — they are downloaded as shared
// libraries and loaded via purego.
//
// csharp and php are deliberately absent here even though upstream tree-sitter
// hosts standalone grammar repos for both: this build links them in via
// BuiltinRegistry (see builtin.go), so listing them again would let the same
// language resolve through two loader tiers with two different ABI stories.
var DynamicGrammars = map[string]*DynamicGrammarDef{
	"kotlin": {
		SourceRepo: "tree-sitter-grammars/tree-sitter-kotlin",
		CSymbol:    "tree_sitter_kotlin",
	},
	"scala": {
		SourceRepo: "tree-sitter/tree-sitter-scala",
		CSymbol:    "tree_sitter_scala",
	},
	"groovy": {
		SourceRepo: "amaanq/tree-sitter-groovy",
		CSymbol:    "tree_sitter_groovy",
	},
	"ruby": {
		SourceRepo: "tree-sitter/tree-sitter-ruby",
		CSymbol:    "tree_sitter_ruby",
	},
	"lua": {
		SourceRepo: "tree-sitter-grammars/tree-sitter-lua",
		CSymbol:    "tree_sitter_lua",
	},
	"elixir": {
		SourceRepo: "tree-sitter/tree-sitter-elixir",
		CSymbol:    "tree_sitter_elixir",
	},
	"bash": {
		SourceRepo: "tree-sitter/tree-sitter-bash",
		CSymbol:    "tree_sitter_bash",
	},
	"swift": {
		SourceRepo: "alex-pinkus/tree-sitter-swift",
		CSymbol:    "tree_sitter_swift",
	},
	"ocaml": {
		SourceRepo: "tree-sitter/tree-sitter-ocaml",
		CSymbol:    "tree_sitter_ocaml",
	},
	"elm": {
		SourceRepo: "elm-tooling/tree-sitter-elm",
		CSymbol:    "tree_sitter_elm",
	},
	"sql": {
		SourceRepo: "DerekStride/tree-sitter-sql",
		CSymbol:    "tree_sitter_sql",
	},
	"yaml": {
		SourceRepo: "tree-sitter-grammars/tree-sitter-yaml",
		CSymbol:    "tree_sitter_yaml",
	},
	"toml": {
		SourceRepo: "tree-sitter-grammars/tree-sitter-toml",
		CSymbol:    "tree_sitter_toml",
	},
	"hcl": {
		SourceRepo: "tree-sitter-grammars/tree-sitter-hcl",
		CSymbol:    "tree_sitter_hcl",
	},
	"protobuf": {
		SourceRepo: "coder3101/tree-sitter-proto",
		CSymbol:    "tree_sitter_proto",
	},
	"html": {
		SourceRepo: "tree-sitter/tree-sitter-html",
		CSymbol:    "tree_sitter_html",
	},
	"css": {
		SourceRepo: "tree-sitter/tree-sitter-css",
		CSymbol:    "tree_sitter_css",
	},
}

// DynamicLoader loads tree-sitter grammars from shared libraries at runtime.
// On Unix it uses purego (dlopen); on Windows it uses syscall.LoadDLL.
type DynamicLoader struct {
	mu       sync.RWMutex
	dir      string // Directory containing .so/.dylib/.dll files
	baseURL  string // URL template for downloads
	version  string // Version tag for downloads (e.g. "v0.0.39", "snapshot")
	manifest *manifestStore
	loaded   map[string]*tree_sitter.Language // Cache of loaded languages
	handles  map[string]uintptr               // Open library handles
}

// NewDynamicLoader creates a loader for the given grammar directory.
// If dir is empty, it defaults to ".codelens/grammars/" relative to cwd.
func NewDynamicLoader(dir string) *DynamicLoader {
	if dir == "" {
		dir = filepath.Join(".codelens", "grammars")
	}

	dl := &DynamicLoader{
		dir:      dir,
		baseURL:  DefaultGrammarURL,
		manifest: newManifestStore(dir),
		loaded:   make(map[string]*tree_sitter.Language),
		handles:  make(map[string]uintptr),
	}

	// Load manifest (ignore errors — it might not exist yet)
	_ = dl.manifest.load()

	return dl
}

// Load returns a Language by loading the shared library from disk.
// If the loader has a version set (from the running codelens release) and the
// installed grammar's version differs, Load returns GrammarStaleError so the
// caller can re-download. Snapshot versions are not checked for staleness.
func (dl *DynamicLoader) Load(name string) (*tree_sitter.Language, error) {
	dl.mu.RLock()
	if lang, ok := dl.loaded[name]; ok {
		dl.mu.RUnlock()
		return lang, nil
	}
	dl.mu.RUnlock()

	dl.mu.Lock()
	defer dl.mu.Unlock()

	// Double-check after acquiring write lock
	if lang, ok := dl.loaded[name]; ok {
		return lang, nil
	}

	// Check manifest for the grammar
	entry := dl.manifest.get(name)
	if entry == nil {
		return nil, &GrammarNotFoundError{Name: name}
	}

	// Check version staleness: if the loader has a non-snapshot version set
	// and the installed grammar was built for a different version, report it
	// as stale so the CompositeLoader can re-download.
	if dl.version != "" && dl.version != "snapshot" &&
		entry.Version != "" && entry.Version != "snapshot" &&
		entry.Version != dl.version {
		return nil, &GrammarStaleError{
			Name:             name,
			InstalledVersion: entry.Version,
			WantVersion:      dl.version,
		}
	}

	// Reject before ever touching the shared library if the manifest recorded
	// an ABI version outside this runtime's compatible window.
	if err := checkABICompatibility(name, entry.AbiVersion); err != nil {
		return nil, err
	}

	// Load the shared library
	libPath := filepath.Join(dl.dir, entry.File)
	if _, err := os.Stat(libPath); err != nil {
		return nil, &LibraryOpenError{Name: name, Path: libPath, Err: err}
	}

	// openAndLoadLanguage is platform-specific (dynamic_unix.go / dynamic_windows.go).
	lang, handle, err := openAndLoadLanguage(libPath, entry.CSymbol)
	if err != nil {
		return nil, &LibraryOpenError{Name: name, Path: libPath, Err: err}
	}

	dl.loaded[name] = lang
	dl.handles[name] = handle
	return lang, nil
}

// Download fetches a grammar pack archive (.tar.gz) from GitHub and extracts
// it locally. The archive contains the shared library and a pack.json with
// language metadata. If a grammar is already installed, it is replaced.
func (dl *DynamicLoader) Download(ctx context.Context, name string, def *DynamicGrammarDef) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	// Determine version — prefer loader-level version (from codelens release),
	// then grammar-specific version, then "snapshot" as a safe fallback.
	version := dl.version
	if version == "" {
		version = def.LatestVersion
	}
	if version == "" {
		version = "snapshot"
	}

	// Clean up any existing installation before re-downloading.
	if dl.manifest.get(name) != nil {
		_ = os.RemoveAll(filepath.Join(dl.dir, name))
	}

	// Evict from in-memory cache so the new library gets loaded fresh.
	delete(dl.loaded, name)
	delete(dl.handles, name)

	// Download and extract the archive.
	sha256sum, hasPack, err := downloadAndExtractGrammarPack(ctx, dl.baseURL, name, version, dl.dir)
	if err != nil {
		return &DownloadFailedError{Name: name, Err: err}
	}

	// Load pack.json into the PackRegistry if present, picking up its ABI
	// version so Load can refuse the grammar without ever opening the library.
	var abiVersion uint32
	if hasPack {
		packDir := filepath.Join(dl.dir, name)
		if loadErr := DefaultPackRegistry().LoadFromDir(packDir); loadErr != nil {
			// Non-fatal: pack metadata is supplementary. Log but continue.
			_ = loadErr
		} else if pack := DefaultPackRegistry().Get(name); pack != nil {
			abiVersion = pack.AbiVersion
		}
	}

	if err := checkABICompatibility(name, abiVersion); err != nil {
		_ = os.RemoveAll(filepath.Join(dl.dir, name))
		return err
	}

	// Update manifest.
	dl.manifest.set(name, &ManifestEntry{
		Version:     version,
		File:        LibraryFilename(name),
		SHA256:      sha256sum,
		CSymbol:     def.CSymbol,
		HasPack:     hasPack,
		AbiVersion:  abiVersion,
		InstalledAt: time.Now(),
	})
	dl.manifest.setAppVersion(dl.version)

	return dl.manifest.save()
}

// Installed returns info about all locally installed dynamic grammars.
func (dl *DynamicLoader) Installed() []GrammarInfo {
	entries := dl.manifest.entries()
	infos := make([]GrammarInfo, 0, len(entries))
	for name, entry := range entries {
		infos = append(infos, GrammarInfo{
			Name:        name,
			Version:     entry.Version,
			BuiltIn:     false,
			Path:        filepath.Join(dl.dir, entry.File),
			InstalledAt: entry.InstalledAt,
		})
	}
	return infos
}

// Remove deletes a grammar's shared library, pack data, and manifest entry.
func (dl *DynamicLoader) Remove(name string) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	// Drop the cached language and handle; the loaded library is not closed.
	delete(dl.loaded, name)
	delete(dl.handles, name)

	// Remove the grammar subdirectory (contains library + pack.json).
	grammarDir := filepath.Join(dl.dir, name)
	_ = os.RemoveAll(grammarDir)

	// Remove from manifest
	dl.manifest.remove(name)
	return dl.manifest.save()
}
