package account

import (
	"fmt"
	"sync"

	"github.com/encryptederc/eerc-client/crypto/elgamal"
)

// Direction tells ApplyDelta whether a delta is added or subtracted.
type Direction int

const (
	Credit Direction = iota
	Debit
)

func (d Direction) String() string {
	switch d {
	case Credit:
		return "credit"
	case Debit:
		return "debit"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Snapshot is an immutable copy of the balance and the counter assigned to a
// proof.
type Snapshot struct {
	Balance *elgamal.Ciphertext
	Counter uint64
}

// BalanceState holds the encrypted balance and the transaction counter of
// one account. ApplyDelta and SnapshotForProof are the only writers and are
// serialized by the same mutex.
type BalanceState struct {
	mu      sync.Mutex
	engine  *elgamal.Engine
	balance *elgamal.Ciphertext
	counter uint64
}

// NewBalanceState returns a state with the zero balance and counter 0.
func NewBalanceState(engine *elgamal.Engine) *BalanceState {
	return &BalanceState{engine: engine, balance: engine.Zero()}
}

// RestoreBalanceState returns a state starting at a known balance and
// counter, for instance read from the chain.
func RestoreBalanceState(engine *elgamal.Engine, balance *elgamal.Ciphertext, counter uint64) *BalanceState {
	return &BalanceState{engine: engine, balance: balance.Clone(), counter: counter}
}

// ApplyDelta combines delta into the balance without decrypting: it is added
// for Credit and negated then added for Debit.
func (s *BalanceState) ApplyDelta(delta *elgamal.Ciphertext, dir Direction) error {
	if delta == nil || delta.C1 == nil || delta.C2 == nil {
		return fmt.Errorf("nil delta")
	}
	switch dir {
	case Credit:
	case Debit:
		delta = s.engine.Neg(delta)
	default:
		return fmt.Errorf("unknown direction %d", dir)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = s.engine.Add(s.balance, delta)
	return nil
}

// SnapshotForProof copies the balance and the counter and increments the
// counter. The increment is never undone.
func (s *BalanceState) SnapshotForProof() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Balance: s.balance.Clone(), Counter: s.counter}
	s.counter++
	return snap
}

// Balance returns a copy of the current encrypted balance.
func (s *BalanceState) Balance() *elgamal.Ciphertext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance.Clone()
}

// Counter returns the next counter value to be assigned.
func (s *BalanceState) Counter() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}
