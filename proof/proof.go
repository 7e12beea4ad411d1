// Package proof assembles the public inputs and private witness of the
// Register, Mint, Transfer and Burn proofs, and defines the boundary with the
// external prover.
package proof

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/elgamal"
	"github.com/encryptederc/eerc-client/crypto/pct"
)

var (
	// ErrInsufficientBalance is returned when a Transfer or Burn amount is
	// above the decrypted balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrProver wraps failures of the external prover.
	ErrProver = errors.New("prover error")
	// ErrUnsupportedType is returned for unknown proof types.
	ErrUnsupportedType = errors.New("unsupported proof type")
	// ErrMissingAuditor is returned when a value moving proof is built
	// before the auditor public key is known.
	ErrMissingAuditor = errors.New("auditor public key not set")
	// ErrRequestUsed is returned when a request is submitted twice.
	ErrRequestUsed = errors.New("proof request already used")
)

// Type is the closed set of proof kinds.
type Type int

const (
	TypeRegister Type = iota
	TypeMint
	TypeTransfer
	TypeBurn
)

var typeNames = map[Type]string{
	TypeRegister: "register",
	TypeMint:     "mint",
	TypeTransfer: "transfer",
	TypeBurn:     "burn",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType returns the Type named s (case insensitive).
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// Operation are the parameters of the operation being proven.
type Operation struct {
	Amount *big.Int
	// Recipient is the receiving address for Mint and Transfer. Mint
	// defaults to the local account.
	Recipient common.Address
	// RecipientPublicKey is the registered key of Recipient.
	RecipientPublicKey ecc.Point
}

// Outputs are the ciphertexts produced while building a request. They are
// submitted alongside the proof; the chain emits them back in the events.
type Outputs struct {
	// SenderDelta encrypts the amount under the sender key. The sender
	// balance is debited by it.
	SenderDelta *elgamal.Ciphertext
	// RecipientDelta encrypts the amount under the recipient key.
	RecipientDelta *elgamal.Ciphertext
	// NewBalance is the sender balance after the debit.
	NewBalance *elgamal.Ciphertext
	// PCT is the auditor ciphertext.
	PCT *pct.PCT
	// Nullifier is the mint nullifier or the registration hash.
	Nullifier *big.Int
	Recipient common.Address
}

// Request is a single use set of proof inputs.
type Request struct {
	ID             uuid.UUID
	Type           Type
	Account        common.Address
	Counter        uint64
	PublicInputs   []*big.Int
	PrivateWitness []*big.Int
	Outputs        *Outputs
	// Signals are the named circuit inputs consumed by witness calculators.
	Signals map[string]any

	used atomic.Bool
}

// MarkUsed flags the request as consumed. It fails if it was already used.
func (r *Request) MarkUsed() error {
	if !r.used.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrRequestUsed, r.ID)
	}
	return nil
}

// Used reports whether the request was consumed.
func (r *Request) Used() bool {
	return r.used.Load()
}

// PublicInputStrings returns the public inputs as decimal strings, as
// exchanged with provers and verifiers.
func (r *Request) PublicInputStrings() []string {
	return bigsToStrings(r.PublicInputs)
}

// Artifact is the proof produced by the external prover. Proof is opaque and
// submitted unmodified.
type Artifact struct {
	Proof        []string `json:"proof"`
	PublicInputs []string `json:"publicInputs"`
}

// Prover turns a request into a proof.
type Prover interface {
	Prove(ctx context.Context, req *Request) (*Artifact, error)
}

// Verifier checks a proof off-chain before submission.
type Verifier interface {
	Verify(ctx context.Context, typ Type, artifact *Artifact) error
}

func bigsToStrings(in []*big.Int) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.String()
	}
	return out
}
