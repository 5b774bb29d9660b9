// Package vector implements the mmap'd fixed-dimension embedding store and
// its IVF-Flat approximate nearest-neighbour index.
package vector

import (
	"encoding/binary"
	"math"
	"os"
	"sync"

	mmap "github.com/blevesearch/mmap-go"

	"github.com/codelens-dev/codelens/pkg/ids"
	"github.com/codelens-dev/codelens/pkg/xerrors"
)

const (
	magicBytes        = "CVEC"
	storageHeaderSize = 16
	storageVersion    = 1
	bytesPerID        = 4
	bytesPerF32       = 4
)

// Storage is a memory-mapped, append-only segment of fixed-dimension float32
// vectors keyed by VectorId. One segment file covers one embedding model.
type Storage struct {
	mu   sync.RWMutex
	path string
	mm   mmap.MMap
	f    *os.File

	dim   int
	count int
}

// Open opens an existing segment file at path, validating its header.
func Open(path string) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	s := &Storage{path: path, f: f}
	if err := s.remap(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Create initializes a fresh, empty segment file for vectors of the given
// dimension, overwriting any existing file at path.
func Create(path string, dim int) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := writeHeader(f, dim, 0); err != nil {
		f.Close()
		return nil, err
	}
	s := &Storage{path: path, f: f, dim: dim}
	if err := s.remap(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// OpenOrCreate opens path if it exists, otherwise creates a new segment for
// vectors of the given dimension.
func OpenOrCreate(path string, dim int) (*Storage, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Create(path, dim)
	}
	return Open(path)
}

func writeHeader(f *os.File, dim, count int) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	buf := make([]byte, storageHeaderSize)
	copy(buf[0:4], magicBytes)
	binary.LittleEndian.PutUint32(buf[4:8], storageVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(dim))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(count))
	_, err := f.Write(buf)
	return err
}

func (s *Storage) recordSize() int {
	return bytesPerID + s.dim*bytesPerF32
}

// remap (re)establishes the mmap view of the file and re-reads the header.
func (s *Storage) remap() error {
	if s.mm != nil {
		s.mm.Unmap()
		s.mm = nil
	}

	info, err := s.f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < storageHeaderSize {
		return xerrors.New(xerrors.IndexCorrupted, "recreate the vector segment", "segment %s too small for header", s.path)
	}

	mm, err := mmap.Map(s.f, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	s.mm = mm

	if string(mm[0:4]) != magicBytes {
		return xerrors.New(xerrors.IndexCorrupted, "recreate the vector segment", "segment %s has invalid magic bytes", s.path)
	}
	version := binary.LittleEndian.Uint32(mm[4:8])
	if version != storageVersion {
		return xerrors.New(xerrors.VersionMismatch, "rebuild the vector segment with the current version", "segment %s: expected version %d, got %d", s.path, storageVersion, version)
	}

	s.dim = int(binary.LittleEndian.Uint32(mm[8:12]))
	s.count = int(binary.LittleEndian.Uint32(mm[12:16]))
	return nil
}

// Dimension reports the fixed vector width of this segment.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Count reports how many vectors are currently stored.
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// VectorEntry pairs a stored vector with its id.
type VectorEntry struct {
	ID     ids.VectorId
	Vector []float32
}

// WriteBatch validates and appends vectors to the segment, updating the
// header's count field. The mmap view is re-established right after the
// append.
func (s *Storage) WriteBatch(entries []VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if len(e.Vector) != s.dim {
			return xerrors.New(xerrors.DimensionMismatch, "embed with a model matching this segment's dimension", "expected dim %d, got %d", s.dim, len(e.Vector))
		}
	}

	if s.mm != nil {
		s.mm.Unmap()
		s.mm = nil
	}

	if _, err := s.f.Seek(0, 2); err != nil {
		return err
	}
	for _, e := range entries {
		idBuf := make([]byte, bytesPerID)
		binary.LittleEndian.PutUint32(idBuf, uint32(e.ID))
		if _, err := s.f.Write(idBuf); err != nil {
			return err
		}
		vecBuf := make([]byte, len(e.Vector)*bytesPerF32)
		for i, v := range e.Vector {
			binary.LittleEndian.PutUint32(vecBuf[i*4:], math.Float32bits(v))
		}
		if _, err := s.f.Write(vecBuf); err != nil {
			return err
		}
	}
	if err := s.f.Sync(); err != nil {
		return err
	}

	s.count += len(entries)
	if err := writeHeader(s.f, s.dim, s.count); err != nil {
		return err
	}
	if err := s.f.Sync(); err != nil {
		return err
	}

	return s.remap()
}

// ReadVector returns the vector stored under id, or false if absent. Linear
// scan of the mmap — adequate at the per-segment scale this index targets.
func (s *Storage) ReadVector(id ids.VectorId) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.mm == nil || s.dim == 0 {
		return nil, false
	}
	recSize := s.recordSize()
	offset := storageHeaderSize
	for offset+recSize <= len(s.mm) {
		stored := binary.LittleEndian.Uint32(s.mm[offset : offset+4])
		if ids.VectorId(stored) == id {
			return decodeVector(s.mm[offset+bytesPerID:offset+recSize], s.dim), true
		}
		offset += recSize
	}
	return nil, false
}

// ReadAll streams every stored (id, vector) pair in append order.
func (s *Storage) ReadAll() []VectorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.mm == nil || s.dim == 0 {
		return nil
	}
	recSize := s.recordSize()
	out := make([]VectorEntry, 0, s.count)
	offset := storageHeaderSize
	for offset+recSize <= len(s.mm) {
		stored := binary.LittleEndian.Uint32(s.mm[offset : offset+4])
		vec := decodeVector(s.mm[offset+bytesPerID:offset+recSize], s.dim)
		out = append(out, VectorEntry{ID: ids.VectorId(stored), Vector: vec})
		offset += recSize
	}
	return out
}

// Close releases the mmap and underlying file handle.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mm != nil {
		s.mm.Unmap()
		s.mm = nil
	}
	return s.f.Close()
}

func decodeVector(b []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return out
}
