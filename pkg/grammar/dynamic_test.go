package grammar

import (
	"testing"
)

// ---------------------------------------------------------------------------
// DynamicLoader basics — without actually loading shared libraries
// ---------------------------------------------------------------------------

func TestNewDynamicLoaderDefaults(t *testing.T) {
	dl := NewDynamicLoader("")
	if dl.dir == "" {
		t.Error("dir should have a default value")
	}
	if dl.baseURL != DefaultGrammarURL {
		t.Errorf("baseURL = %q; want %q", dl.baseURL, DefaultGrammarURL)
	}
}

func TestNewDynamicLoaderCustomDir(t *testing.T) {
	dir := t.TempDir()
	dl := NewDynamicLoader(dir)
	if dl.dir != dir {
		t.Errorf("dir = %q; want %q", dl.dir, dir)
	}
}

func TestDynamicLoaderInstalledEmpty(t *testing.T) {
	dl := NewDynamicLoader(t.TempDir())
	infos := dl.Installed()
	if len(infos) != 0 {
		t.Errorf("Installed on empty loader: got %d, want 0", len(infos))
	}
}

func TestDynamicLoaderLoadNotFound(t *testing.T) {
	dl := NewDynamicLoader(t.TempDir())
	_, err := dl.Load("ruby")
	if err == nil {
		t.Fatal("expected error loading non-installed grammar")
	}
	if _, ok := err.(*GrammarNotFoundError); !ok {
		t.Errorf("error type = %T; want *GrammarNotFoundError", err)
	}
}

func TestDynamicLoaderRemoveNonexistent(t *testing.T) {
	dl := NewDynamicLoader(t.TempDir())
	// Removing a grammar that was never installed should not error.
	if err := dl.Remove("nonexistent"); err != nil {
		t.Errorf("Remove(nonexistent): %v", err)
	}
}

// ---------------------------------------------------------------------------
// Dynamic packs — sanity checks via PackRegistry
// ---------------------------------------------------------------------------

func TestDynamicPacksMap(t *testing.T) {
	// csharp and php are intentionally absent: both ship as builtin grammars
	// (see builtin.go), so DynamicGrammars must not list them too.
	expected := []string{
		"bash", "css", "elixir", "elm", "groovy", "hcl",
		"html", "kotlin", "lua", "ocaml", "protobuf", "ruby",
		"scala", "sql", "swift", "toml", "yaml",
	}

	dynPacks := DefaultPackRegistry().DynamicPacks()
	if len(dynPacks) != len(expected) {
		t.Errorf("DynamicPacks has %d entries, want %d", len(dynPacks), len(expected))
	}

	for _, name := range expected {
		pack, ok := dynPacks[name]
		if !ok {
			t.Errorf("DynamicPacks[%q] missing", name)
			continue
		}
		if pack.SourceRepo == "" {
			t.Errorf("DynamicPacks[%q].SourceRepo is empty", name)
		}
		if pack.CSymbol == "" {
			t.Errorf("DynamicPacks[%q].CSymbol is empty", name)
		}
	}
}

func TestDynamicPacksNoOverlapWithBuiltins(t *testing.T) {
	r := NewBuiltinRegistry()
	for name := range DefaultPackRegistry().DynamicPacks() {
		if r.Has(name) {
			t.Errorf("DynamicPacks[%q] overlaps with builtin — should be one or the other", name)
		}
	}
}

// ---------------------------------------------------------------------------
// ABI compatibility
// ---------------------------------------------------------------------------

func TestCheckABICompatibilityUnknownVersionSkipsCheck(t *testing.T) {
	if err := checkABICompatibility("ruby", 0); err != nil {
		t.Errorf("checkABICompatibility(0) = %v, want nil (unknown ABI is not checked)", err)
	}
}

func TestCheckABICompatibilityInRange(t *testing.T) {
	if err := checkABICompatibility("ruby", minSupportedABI); err != nil {
		t.Errorf("checkABICompatibility(min) = %v, want nil", err)
	}
	if err := checkABICompatibility("ruby", maxSupportedABI); err != nil {
		t.Errorf("checkABICompatibility(max) = %v, want nil", err)
	}
}

func TestCheckABICompatibilityOutOfRange(t *testing.T) {
	err := checkABICompatibility("ruby", maxSupportedABI+1)
	if err == nil {
		t.Fatal("expected IncompatibleABIError for ABI above the supported range")
	}
	abiErr, ok := err.(*IncompatibleABIError)
	if !ok {
		t.Fatalf("error type = %T; want *IncompatibleABIError", err)
	}
	if abiErr.Name != "ruby" || abiErr.AbiVersion != maxSupportedABI+1 {
		t.Errorf("IncompatibleABIError = %+v; want Name=ruby AbiVersion=%d", abiErr, maxSupportedABI+1)
	}

	err = checkABICompatibility("ruby", minSupportedABI-1)
	if _, ok := err.(*IncompatibleABIError); !ok {
		t.Errorf("error type = %T; want *IncompatibleABIError for below-range ABI", err)
	}
}

func TestDynamicLoaderLoadRejectsIncompatibleABI(t *testing.T) {
	dir := t.TempDir()
	dl := NewDynamicLoader(dir)
	dl.manifest.set("ruby", &ManifestEntry{
		Version:    "v1.0.0",
		File:       LibraryFilename("ruby"),
		CSymbol:    "tree_sitter_ruby",
		AbiVersion: maxSupportedABI + 1,
	})

	_, err := dl.Load("ruby")
	if err == nil {
		t.Fatal("expected an error loading a grammar with an incompatible ABI version")
	}
	if _, ok := err.(*IncompatibleABIError); !ok {
		t.Errorf("error type = %T; want *IncompatibleABIError", err)
	}
}
