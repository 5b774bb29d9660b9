// Package resolve turns syntactic names into resolved SymbolIds: a layered
// scope stack for plain name lookup, and an inheritance graph walker for
// method resolution across extends/implements/uses edges.
package resolve

import (
	"sync"

	"github.com/codelens-dev/codelens/pkg/ids"
)

// Layer is one tier of a ResolutionContext's scope stack, ordered from the
// narrowest to the widest.
type Layer int

const (
	// Local holds names bound within the current function/block body.
	Local Layer = iota
	// Module holds names bound in the current class/function body in
	// object languages, or the current file's top level otherwise.
	Module
	// Package holds names bound in the current namespace or crate.
	Package
	// Global holds names visible from anywhere in the index.
	Global
)

var layerOrder = [...]Layer{Local, Module, Package, Global}

// ResolutionContext resolves bare names against a per-file layered scope
// stack: Local shadows Module, which shadows Package, which shadows Global.
// One context is built per file being analysed; ClearLocalScope is called on
// function exit to drop block-local bindings without disturbing the wider
// layers.
type ResolutionContext struct {
	mu     sync.RWMutex
	layers map[Layer]map[string]ids.SymbolId
}

// NewResolutionContext returns an empty context with all four layers ready.
func NewResolutionContext() *ResolutionContext {
	rc := &ResolutionContext{layers: make(map[Layer]map[string]ids.SymbolId, 4)}
	for _, l := range layerOrder {
		rc.layers[l] = make(map[string]ids.SymbolId)
	}
	return rc
}

// Bind records that name resolves to id within the given layer. A later
// Bind of the same name in the same layer overwrites the earlier one.
func (rc *ResolutionContext) Bind(layer Layer, name string, id ids.SymbolId) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.layers[layer][name] = id
}

// Resolve searches layers bottom-up (Local, Module, Package, Global) and
// returns the first binding found.
func (rc *ResolutionContext) Resolve(name string) (ids.SymbolId, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	for _, l := range layerOrder {
		if id, ok := rc.layers[l][name]; ok {
			return id, true
		}
	}
	return 0, false
}

// ClearLocalScope drops all Local bindings, e.g. on function exit. Module,
// Package, and Global bindings are unaffected.
func (rc *ResolutionContext) ClearLocalScope() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.layers[Local] = make(map[string]ids.SymbolId)
}
