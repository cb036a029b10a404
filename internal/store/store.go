// Package store persists per-device action mappings in a bolt database.
// The whole device-to-mapping table lives as one JSON value under a single
// key, with a sibling flag that marks a just-performed factory reset.
package store

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/Fefe-Nayz/byteracer-sub000/internal/control"
)

const (
	bucketName   = "controller"
	mappingsKey  = "gamepad_mappings"
	resetFlagKey = "gamepad_mappings_reset"
)

// Store owns the bolt database holding every known device's mapping.
// Methods are safe for concurrent use; bolt serializes writers.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the database at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

type table map[string]control.Mapping

// loadTable decodes the stored table. A corrupt value is discarded rather
// than wedging every later read against the same undecodable bytes.
func loadTable(b *bolt.Bucket) table {
	tbl := table{}
	raw := b.Get([]byte(mappingsKey))
	if len(raw) == 0 {
		return tbl
	}
	if err := json.Unmarshal(raw, &tbl); err != nil {
		log.Printf("store: discarding corrupt mapping table: %v", err)
		return table{}
	}
	return tbl
}

func saveTable(b *bolt.Bucket, tbl table) error {
	raw, err := json.Marshal(tbl)
	if err != nil {
		return errors.Wrap(err, "encode mappings")
	}
	return b.Put([]byte(mappingsKey), raw)
}

// Mapping returns the stored mapping for a device identity, creating and
// persisting the factory default the first time the identity is seen.
// Stored entries are sanitized on the way out.
func (s *Store) Mapping(deviceID string) (control.Mapping, error) {
	var out control.Mapping
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		tbl := loadTable(b)
		if m, ok := tbl[deviceID]; ok {
			out = m.Sanitize()
			return nil
		}
		out = control.DefaultMapping()
		tbl[deviceID] = out
		return saveTable(b, tbl)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load mapping for %q", deviceID)
	}
	return out, nil
}

// PutMapping stores a device's mapping. Structurally equal writes are
// skipped so per-tick callers do not churn the file; the return reports
// whether anything was actually written.
func (s *Store) PutMapping(deviceID string, m control.Mapping) (bool, error) {
	clean := m.Sanitize()
	wrote := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		tbl := loadTable(b)
		if cur, ok := tbl[deviceID]; ok && cur.Equal(clean) {
			return nil
		}
		tbl[deviceID] = clean
		wrote = true
		return saveTable(b, tbl)
	})
	if err != nil {
		return false, errors.Wrapf(err, "store mapping for %q", deviceID)
	}
	return wrote, nil
}

// Reset restores a device to factory defaults and raises the reset flag
// in the same transaction.
func (s *Store) Reset(deviceID string) (control.Mapping, error) {
	def := control.DefaultMapping()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		tbl := loadTable(b)
		tbl[deviceID] = def
		if err := saveTable(b, tbl); err != nil {
			return err
		}
		return b.Put([]byte(resetFlagKey), []byte("1"))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "reset mapping for %q", deviceID)
	}
	return def, nil
}

// ConsumeResetFlag reports whether a reset happened since the last call
// and clears the flag.
func (s *Store) ConsumeResetFlag() (bool, error) {
	set := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b.Get([]byte(resetFlagKey)) == nil {
			return nil
		}
		set = true
		return b.Delete([]byte(resetFlagKey))
	})
	if err != nil {
		return false, errors.Wrap(err, "consume reset flag")
	}
	return set, nil
}

// Devices lists every identity with a stored mapping, sorted.
func (s *Store) Devices() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		tbl := loadTable(tx.Bucket([]byte(bucketName)))
		for id := range tbl {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list devices")
	}
	sort.Strings(ids)
	return ids, nil
}
