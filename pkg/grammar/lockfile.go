package grammar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LockFileName is the filename written alongside a project's grammar cache,
// analogous to a dependency lock file: it pins the exact version and
// checksum of every dynamic grammar so a second machine (or a CI runner)
// reproduces the same install rather than whatever happens to be latest.
const LockFileName = "grammars.lock.json"

// LockFile is the on-disk, shareable record of installed dynamic grammars.
// Unlike manifestStore (which is a private cache keyed to one machine's
// grammar directory), a LockFile is meant to be committed to version control.
type LockFile struct {
	Comment     string                `json:"comment,omitempty"`
	GeneratedAt time.Time             `json:"generated_at,omitempty"`
	Grammars    map[string]*LockEntry `json:"grammars"`
}

// LockEntry pins one grammar's version, source checksum, and C symbol.
type LockEntry struct {
	Version string `json:"version"`
	SHA256  string `json:"sha256,omitempty"`
	CSymbol string `json:"c_symbol,omitempty"`
}

// Names returns the locked grammar names in sorted order.
func (lf *LockFile) Names() []string {
	names := make([]string, 0, len(lf.Grammars))
	for name := range lf.Grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LockFileFromManifest builds a LockFile from the grammars currently
// recorded in a manifestStore, ready to be written out with WriteLockFile.
func LockFileFromManifest(ms *manifestStore) *LockFile {
	entries := ms.entries()
	lf := &LockFile{
		Grammars: make(map[string]*LockEntry, len(entries)),
	}
	for name, entry := range entries {
		lf.Grammars[name] = &LockEntry{
			Version: entry.Version,
			SHA256:  entry.SHA256,
			CSymbol: entry.CSymbol,
		}
	}
	return lf
}

// WriteLockFile writes lf to dir/grammars.lock.json, stamping Comment and
// GeneratedAt if they are not already set.
func WriteLockFile(dir string, lf *LockFile) error {
	if lf.Comment == "" {
		lf.Comment = "Generated by codelens. Do not edit by hand — run `codelens grammar lock` to regenerate."
	}
	if lf.GeneratedAt.IsZero() {
		lf.GeneratedAt = time.Now()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling lock file: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, LockFileName), data, 0o644)
}

// ReadLockFile reads dir/grammars.lock.json. If the file does not exist, it
// returns (nil, nil) rather than an error — an absent lock file means
// "nothing pinned yet", which callers commonly treat as a no-op.
func ReadLockFile(dir string) (*LockFile, error) {
	data, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var lf LockFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}
	if lf.Grammars == nil {
		lf.Grammars = make(map[string]*LockEntry)
	}
	return &lf, nil
}
