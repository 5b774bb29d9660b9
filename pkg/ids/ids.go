// Package ids provides the non-zero integer identifier primitives and byte
// ranges shared by every other package in the index.
package ids

import (
	"fmt"
	"sync/atomic"
)

// FileId identifies a source file. Zero is never valid.
type FileId uint32

// SymbolId identifies a symbol. Zero is never valid. VectorId reuses the
// same numeric space — a symbol's embedding, if any, is stored under
// VectorId(symbolID).
type SymbolId uint32

// VectorId identifies a vector record in the vector store. It is always
// equal to the SymbolId of the symbol it embeds.
type VectorId = SymbolId

// ClusterId identifies an IVF-Flat centroid. Zero is never valid.
type ClusterId uint32

// Position is a 1-indexed line/column location.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans from Start to End, inclusive of Start, exclusive of End.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// ExhaustedError is returned when a monotone counter cannot allocate another
// non-zero id. It is a blocking, fatal condition per the index's error
// handling policy — callers should not retry without operator intervention.
type ExhaustedError struct {
	Counter string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s counter exhausted: no more non-zero ids available", e.Counter)
}

// FileCounter allocates monotonically increasing, non-zero FileIds.
// The zero value is ready to use.
type FileCounter struct {
	next uint64
}

// Next allocates the next FileId. It is safe for concurrent use.
func (c *FileCounter) Next() (FileId, error) {
	v := atomic.AddUint64(&c.next, 1)
	if v == 0 || v > uint64(^uint32(0)) {
		return 0, &ExhaustedError{Counter: "file"}
	}
	return FileId(v), nil
}

// SymbolCounter allocates monotonically increasing, non-zero SymbolIds.
// The zero value is ready to use.
type SymbolCounter struct {
	next uint64
}

// Next allocates the next SymbolId. It is safe for concurrent use.
func (c *SymbolCounter) Next() (SymbolId, error) {
	v := atomic.AddUint64(&c.next, 1)
	if v == 0 || v > uint64(^uint32(0)) {
		return 0, &ExhaustedError{Counter: "symbol"}
	}
	return SymbolId(v), nil
}

// ClusterCounter allocates monotonically increasing, non-zero ClusterIds.
// The zero value is ready to use.
type ClusterCounter struct {
	next uint64
}

// Next allocates the next ClusterId. It is safe for concurrent use.
func (c *ClusterCounter) Next() (ClusterId, error) {
	v := atomic.AddUint64(&c.next, 1)
	if v == 0 || v > uint64(^uint32(0)) {
		return 0, &ExhaustedError{Counter: "cluster"}
	}
	return ClusterId(v), nil
}
