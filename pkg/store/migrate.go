// Package store provides the persistent document index backends.
// This file implements schema versioning and migration for the code store's
// BBolt database, and a helper for detecting bleve mapping changes.
package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"

	"github.com/blevesearch/bleve/v2/mapping"
	bolt "go.etcd.io/bbolt"
)

// CodeSchemaVersion is the current schema version for the code store.
// Increment this when adding new migrations to codeMigrations.
var CodeSchemaVersion uint64 = 1

// migration represents a single schema migration step.
type migration struct {
	version     uint64
	description string
	migrate     func(tx *bolt.Tx) error
}

// codeMigrations is the ordered list of all code store schema migrations.
var codeMigrations = []migration{
	{version: 1, description: "baseline code schema stamp", migrate: func(tx *bolt.Tx) error { return nil }},
}

// RunCodeMigrations applies pending schema migrations to the code store database.
func RunCodeMigrations(db *bolt.DB) error {
	current, err := GetCodeSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if current > CodeSchemaVersion {
		return fmt.Errorf("database schema version %d is ahead of binary version %d (downgrade not supported)", current, CodeSchemaVersion)
	}
	if current == CodeSchemaVersion {
		return nil
	}

	var pending []migration
	for _, m := range codeMigrations {
		if m.version > current {
			pending = append(pending, m)
		}
	}

	if len(pending) == 0 {
		return setSchemaVersion(db, CodeSchemaVersion)
	}

	return db.Update(func(tx *bolt.Tx) error {
		for _, m := range pending {
			log.Printf("store: applying code migration v%d: %s", m.version, m.description)
			if err := m.migrate(tx); err != nil {
				return fmt.Errorf("migration v%d (%s) failed: %w", m.version, m.description, err)
			}
		}
		meta := tx.Bucket(BucketCodeMeta)
		if meta == nil {
			return fmt.Errorf("code meta bucket not found")
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, CodeSchemaVersion)
		return meta.Put([]byte("schema_version"), buf)
	})
}

// GetCodeSchemaVersion reads the current schema version from the code store meta bucket.
func GetCodeSchemaVersion(db *bolt.DB) (uint64, error) {
	var version uint64
	err := db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(BucketCodeMeta)
		if meta == nil {
			return nil // fresh DB, no meta bucket yet
		}
		data := meta.Get([]byte("schema_version"))
		if data == nil {
			return nil
		}
		if len(data) != 8 {
			return fmt.Errorf("corrupt schema_version: expected 8 bytes, got %d", len(data))
		}
		version = binary.BigEndian.Uint64(data)
		return nil
	})
	return version, err
}

func setSchemaVersion(db *bolt.DB, version uint64) error {
	return db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(BucketCodeMeta)
		if meta == nil {
			return fmt.Errorf("code meta bucket not found")
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, version)
		return meta.Put([]byte("schema_version"), buf)
	})
}

// MappingHash computes a deterministic SHA-256 hex digest of a Bleve index
// mapping, used to detect when the mapping definition has changed and the
// search index needs rebuilding from durable records.
func MappingHash(m mapping.IndexMapping) string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}
