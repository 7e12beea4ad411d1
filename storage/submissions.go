package storage

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/encryptederc/eerc-client/log"
)

// Submission is a proven transaction sent to the chain and not yet seen in
// an event.
type Submission struct {
	RequestID    string         `cbor:"1,keyasint" json:"requestId"`
	Type         string         `cbor:"2,keyasint" json:"type"`
	Account      common.Address `cbor:"3,keyasint" json:"account"`
	Counter      uint64         `cbor:"4,keyasint" json:"counter"`
	TxHash       common.Hash    `cbor:"5,keyasint" json:"txHash"`
	Proof        []string       `cbor:"6,keyasint" json:"proof"`
	PublicInputs []string       `cbor:"7,keyasint" json:"publicInputs"`
	SubmittedAt  time.Time      `cbor:"8,keyasint" json:"submittedAt"`
}

// PushSubmission stores a new submission into the pending queue.
func (s *Storage) PushSubmission(sub *Submission) error {
	if sub == nil {
		return fmt.Errorf("nil submission")
	}
	val, err := encodeArtifact(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), submissionPrefix)
	if err := wTx.Set(sub.TxHash.Bytes(), val); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// ConfirmSubmission removes the submission of txHash from the queue once its
// event was reconciled. Returns ErrNotFound if it is not pending.
func (s *Storage) ConfirmSubmission(txHash common.Hash) error {
	if err := s.deleteArtifact(submissionPrefix, txHash.Bytes()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}

// PendingSubmissions returns the queued submissions of addr, oldest first.
// An empty address returns all of them.
func (s *Storage) PendingSubmissions(addr common.Address) ([]*Submission, error) {
	var subs []*Submission
	if err := s.iterateArtifacts(submissionPrefix, nil, func(k, v []byte) bool {
		sub := &Submission{}
		if err := decodeArtifact(v, sub); err != nil {
			log.Warnw("failed to decode submission", "key", fmt.Sprintf("%x", k), "error", err.Error())
			return true
		}
		if addr != (common.Address{}) && sub.Account != addr {
			return true
		}
		subs = append(subs, sub)
		return true
	}); err != nil {
		return nil, err
	}
	slices.SortStableFunc(subs, func(a, b *Submission) int {
		return a.SubmittedAt.Compare(b.SubmittedAt)
	})
	return subs, nil
}
