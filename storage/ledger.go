package storage

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/encryptederc/eerc-client/types"
)

// Marker is the chain position of an event.
type Marker struct {
	Block    uint64 `cbor:"1,keyasint"`
	LogIndex uint   `cbor:"2,keyasint"`
}

// Before reports whether m is strictly before o in chain order.
func (m Marker) Before(o Marker) bool {
	if m.Block != o.Block {
		return m.Block < o.Block
	}
	return m.LogIndex < o.LogIndex
}

func compareMarkers(a, b Marker) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}

func (m Marker) String() string {
	return fmt.Sprintf("%d:%d", m.Block, m.LogIndex)
}

// AppliedEvent records the deltas applied to an account balance by one
// event. Directions has one entry per delta and Delta holds the four field
// elements of each delta, in the same order.
type AppliedEvent struct {
	Kind       string          `cbor:"1,keyasint" json:"kind"`
	Directions []string        `cbor:"2,keyasint" json:"directions"`
	Block      uint64          `cbor:"3,keyasint" json:"block"`
	LogIndex   uint            `cbor:"4,keyasint" json:"logIndex"`
	TxHash     common.Hash     `cbor:"5,keyasint" json:"txHash"`
	Delta      []*types.BigInt `cbor:"6,keyasint" json:"delta"`
}

// Marker returns the position of the event.
func (e *AppliedEvent) Marker() Marker {
	return Marker{Block: e.Block, LogIndex: e.LogIndex}
}

// LastApplied returns the position of the last event applied to addr.
// Returns ErrNotFound if no event was applied yet.
func (s *Storage) LastApplied(addr common.Address) (*Marker, error) {
	m := &Marker{}
	if err := s.getArtifact(markerPrefix, addr.Bytes(), m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordApplied stores the applied event and moves the marker of addr to its
// position in a single transaction.
func (s *Storage) RecordApplied(addr common.Address, ev *AppliedEvent) error {
	if ev == nil {
		return fmt.Errorf("nil applied event")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	evData, err := encodeArtifact(ev)
	if err != nil {
		return fmt.Errorf("encode applied event: %w", err)
	}
	markerData, err := encodeArtifact(ev.Marker())
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	tx := s.db.WriteTx()
	if err := prefixeddb.NewPrefixedWriteTx(tx, appliedEventPrefix).
		Set(eventKey(addr, ev.Block, ev.LogIndex), evData); err != nil {
		tx.Discard()
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, markerPrefix).Set(addr.Bytes(), markerData); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// AppliedEvents returns the events applied to addr in chain order.
func (s *Storage) AppliedEvents(addr common.Address) ([]*AppliedEvent, error) {
	var events []*AppliedEvent
	var decodeErr error
	if err := s.iterateArtifacts(appliedEventPrefix, addr.Bytes(), func(_, v []byte) bool {
		ev := &AppliedEvent{}
		if decodeErr = decodeArtifact(v, ev); decodeErr != nil {
			return false
		}
		events = append(events, ev)
		return true
	}); err != nil {
		return nil, err
	}
	slices.SortFunc(events, func(a, b *AppliedEvent) int {
		return compareMarkers(a.Marker(), b.Marker())
	})
	return events, decodeErr
}

// AuditRecord is an amount decrypted from an auditor ciphertext.
type AuditRecord struct {
	Kind     string         `cbor:"1,keyasint" json:"kind"`
	From     common.Address `cbor:"2,keyasint" json:"from"`
	To       common.Address `cbor:"3,keyasint" json:"to"`
	Amount   *types.BigInt  `cbor:"4,keyasint" json:"amount"`
	Block    uint64         `cbor:"5,keyasint" json:"block"`
	LogIndex uint           `cbor:"6,keyasint" json:"logIndex"`
	TxHash   common.Hash    `cbor:"7,keyasint" json:"txHash"`
}

// SetAuditRecord stores r at its chain position, replacing any previous
// record for the same event.
func (s *Storage) SetAuditRecord(r *AuditRecord) error {
	if r == nil {
		return fmt.Errorf("nil audit record")
	}
	return s.setArtifact(auditPrefix, positionKey(r.Block, r.LogIndex), r)
}

// AuditRecords returns every audit record in chain order.
func (s *Storage) AuditRecords() ([]*AuditRecord, error) {
	var records []*AuditRecord
	var decodeErr error
	if err := s.iterateArtifacts(auditPrefix, nil, func(_, v []byte) bool {
		r := &AuditRecord{}
		if decodeErr = decodeArtifact(v, r); decodeErr != nil {
			return false
		}
		records = append(records, r)
		return true
	}); err != nil {
		return nil, err
	}
	slices.SortFunc(records, func(a, b *AuditRecord) int {
		return compareMarkers(Marker{a.Block, a.LogIndex}, Marker{b.Block, b.LogIndex})
	})
	return records, decodeErr
}
