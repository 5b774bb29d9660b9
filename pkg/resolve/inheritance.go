package resolve

import (
	"sync"

	"github.com/codelens-dev/codelens/pkg/ids"
)

// EdgeKind classifies a type-to-type inheritance edge.
type EdgeKind int

const (
	// Extends is a class/struct superclass edge (single chain in most
	// languages, but stored as a list to tolerate multiple inheritance).
	Extends EdgeKind = iota
	// Uses is a trait/mixin composition edge.
	Uses
	// Implements is an interface-conformance edge.
	Implements
)

// edgeSearchOrder is the priority resolve_method and get_inheritance_chain
// walk parents in: class chain first, then traits, then interfaces.
var edgeSearchOrder = [...]EdgeKind{Extends, Uses, Implements}

type edge struct {
	kind   EdgeKind
	parent ids.SymbolId
}

// InheritanceResolver tracks extends/implements/uses edges between types and
// the methods each type declares directly, and answers method-resolution
// and chain-walking queries over that graph.
type InheritanceResolver struct {
	mu      sync.RWMutex
	edges   map[ids.SymbolId][]edge
	methods map[ids.SymbolId]map[string]ids.SymbolId
}

// NewInheritanceResolver returns an empty resolver.
func NewInheritanceResolver() *InheritanceResolver {
	return &InheritanceResolver{
		edges:   make(map[ids.SymbolId][]edge),
		methods: make(map[ids.SymbolId]map[string]ids.SymbolId),
	}
}

// AddEdge records that child extends/implements/uses parent. Edges of the
// same kind are kept in the order they're added — declaration order.
func (r *InheritanceResolver) AddEdge(child ids.SymbolId, kind EdgeKind, parent ids.SymbolId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[child] = append(r.edges[child], edge{kind: kind, parent: parent})
}

// DeclareMethod records that typ directly declares a method named name
// resolving to methodID.
func (r *InheritanceResolver) DeclareMethod(typ ids.SymbolId, name string, methodID ids.SymbolId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[typ]
	if !ok {
		m = make(map[string]ids.SymbolId)
		r.methods[typ] = m
	}
	m[name] = methodID
}

// parentsInOrder returns typ's direct parents in class-chain, then traits,
// then interfaces order.
func (r *InheritanceResolver) parentsInOrder(typ ids.SymbolId) []ids.SymbolId {
	var out []ids.SymbolId
	for _, kind := range edgeSearchOrder {
		for _, e := range r.edges[typ] {
			if e.kind == kind {
				out = append(out, e.parent)
			}
		}
	}
	return out
}

// GetInheritanceChain returns typ and every ancestor reachable via
// extends/uses/implements edges, in breadth-first, class-chain-first order.
// A type already visited is never re-enqueued, so cyclic graphs terminate.
func (r *InheritanceResolver) GetInheritanceChain(typ ids.SymbolId) []ids.SymbolId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := map[ids.SymbolId]bool{typ: true}
	chain := []ids.SymbolId{typ}
	queue := []ids.SymbolId{typ}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range r.parentsInOrder(cur) {
			if visited[p] {
				continue
			}
			visited[p] = true
			chain = append(chain, p)
			queue = append(queue, p)
		}
	}
	return chain
}

// ResolveMethod walks typ's inheritance chain (overrides on the concrete
// type always win; among equally-ranked parents, declaration order decides;
// a diamond's first-found declarer wins without error) and returns the
// nearest declarer of name.
func (r *InheritanceResolver) ResolveMethod(typ ids.SymbolId, name string) (ids.SymbolId, bool) {
	chain := r.GetInheritanceChain(typ)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range chain {
		if m, ok := r.methods[t][name]; ok {
			return m, true
		}
	}
	return 0, false
}

// GetAllMethods unions every method declared anywhere in typ's inheritance
// chain. Where two ancestors declare the same name, the nearer one (lower
// index in the chain) wins, matching ResolveMethod's tie-break.
func (r *InheritanceResolver) GetAllMethods(typ ids.SymbolId) map[string]ids.SymbolId {
	chain := r.GetInheritanceChain(typ)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]ids.SymbolId)
	for _, t := range chain {
		for name, m := range r.methods[t] {
			if _, already := out[name]; !already {
				out[name] = m
			}
		}
	}
	return out
}
