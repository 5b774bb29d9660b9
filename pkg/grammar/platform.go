package grammar

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// PlatformInfo holds the current platform details for grammar file naming.
type PlatformInfo struct {
	OS   string // "linux", "darwin", "windows"
	Arch string // "amd64", "arm64"
	Ext  string // ".so", ".dylib", ".dll"
}

// CurrentPlatform returns the platform info for the running system.
func CurrentPlatform() PlatformInfo {
	p := PlatformInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	switch p.OS {
	case "darwin":
		p.Ext = ".dylib"
	case "windows":
		p.Ext = ".dll"
	default: // linux, freebsd, etc.
		p.Ext = ".so"
	}

	return p
}

// supportedGrammarPlatforms lists the os/arch pairs the grammar release
// pipeline actually publishes shared-library assets for. Downloading on an
// unlisted combination would always 404; checking locally gives a clear
// error instead of a wasted round trip.
var supportedGrammarPlatforms = map[string]map[string]bool{
	"linux":   {"amd64": true, "arm64": true},
	"darwin":  {"amd64": true, "arm64": true},
	"windows": {"amd64": true},
}

// IsSupportedPlatform reports whether prebuilt dynamic grammar archives are
// published for the given OS/arch combination.
func IsSupportedPlatform(osName, arch string) bool {
	archs, ok := supportedGrammarPlatforms[osName]
	if !ok {
		return false
	}
	return archs[arch]
}

// UnsupportedPlatformError is returned when the current OS/arch has no
// published dynamic grammar archives.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no dynamic grammar archives are published for %s/%s", e.OS, e.Arch)
}

// Suggestion returns an actionable next step for the caller.
func (e *UnsupportedPlatformError) Suggestion() string {
	return "build and install the grammar's shared library manually, placing it under the grammar cache directory"
}

// LibraryFilename returns the expected filename for a grammar shared library
// within the grammar cache directory. Since Phase 3, grammars are stored in
// per-language subdirectories: {name}/grammar{ext}
func LibraryFilename(name string) string {
	p := CurrentPlatform()
	return filepath.Join(name, "grammar"+p.Ext)
}

// PackArchiveFilename returns the GitHub release asset name for a grammar pack
// archive. Format: codelens-grammar-{name}-{version}-{os}-{arch}.tar.gz
func PackArchiveFilename(name, version string) string {
	p := CurrentPlatform()
	return "codelens-grammar-" + name + "-" + version + "-" + p.OS + "-" + p.Arch + ".tar.gz"
}
