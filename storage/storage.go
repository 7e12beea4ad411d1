// storage package keeps the client bookkeeping in a prefixed key-value store:
// the reconciliation markers, the applied events of every local account, the
// amounts decrypted in auditor mode and the queue of submitted transactions
// waiting for their event. The following prefixes are used:
//   - 'm/' for the last applied marker of each account
//   - 'e/' for applied events
//   - 'a/' for audit records
//   - 's/' for submissions (queued)
//   - 'c/' for the chain scan cursor
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/encryptederc/eerc-client/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	markerPrefix       = []byte("m/")
	appliedEventPrefix = []byte("e/")
	auditPrefix        = []byte("a/")
	submissionPrefix   = []byte("s/")
	cursorPrefix       = []byte("c/")

	cursorKey = []byte("cursor")
)

var (
	// ErrNotFound is returned when a key is not in the storage.
	ErrNotFound = errors.New("not found")
)

// Storage wraps the key-value database. Multi-key writes are serialized by
// globalLock.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err.Error())
	}
}

// getArtifact decodes the value stored at prefix+key into out. Returns
// ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := pr.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// setArtifact encodes and stores the artifact at prefix+key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	val, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, val); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// deleteArtifact removes prefix+key. Returns ErrNotFound if the key does not
// exist.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := pr.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// iterateArtifacts calls fn for every value under prefix+subPrefix, in key
// order. The iteration stops when fn returns false.
func (s *Storage) iterateArtifacts(prefix, subPrefix []byte, fn func(key, value []byte) bool) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	if err := pr.Iterate(subPrefix, func(k, v []byte) bool {
		// the database may reuse the slices
		key := append(append([]byte{}, subPrefix...), k...)
		value := append([]byte{}, v...)
		return fn(key, value)
	}); err != nil {
		return fmt.Errorf("iterate %s: %w", prefix, err)
	}
	return nil
}

// Cursor returns the last chain block scanned for events. Returns
// ErrNotFound before the first scan.
func (s *Storage) Cursor() (uint64, error) {
	var block uint64
	if err := s.getArtifact(cursorPrefix, cursorKey, &block); err != nil {
		return 0, err
	}
	return block, nil
}

// SetCursor stores the last chain block scanned for events.
func (s *Storage) SetCursor(block uint64) error {
	return s.setArtifact(cursorPrefix, cursorKey, block)
}
