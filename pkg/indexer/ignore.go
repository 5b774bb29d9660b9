package indexer

import "github.com/codelens-dev/codelens/pkg/ignore"

// Matcher tests whether a path should be ignored. It is an alias for
// pkg/ignore.Matcher, kept here so existing callers of this package don't
// need to change; the implementation lives in pkg/ignore to avoid an
// import cycle with pkg/grammar (which also needs ignore-matching).
type Matcher = ignore.Matcher

// BuiltinDefaults are patterns applied even when no .codelensignore file exists.
var BuiltinDefaults = ignore.BuiltinDefaults

// New creates a Matcher from built-in defaults plus an optional .codelensignore
// file located at <projectRoot>/.codelensignore.
func New(projectRoot string) (*Matcher, error) {
	return ignore.New(projectRoot)
}

// NewFromDefaults creates a Matcher using only built-in defaults (no file).
func NewFromDefaults() *Matcher {
	return ignore.NewFromDefaults()
}

// NewEmpty creates a Matcher with no rules at all — nothing is ignored.
func NewEmpty() *Matcher {
	return ignore.NewEmpty()
}
