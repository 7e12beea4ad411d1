// Package web3 connects the client with the eERC contracts: it decodes their
// events and submits proven transactions.
package web3

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/elgamal"
	"github.com/encryptederc/eerc-client/proof"
)

var (
	// ErrChain wraps every failure talking to the chain.
	ErrChain = errors.New("chain error")
	// ErrNotRegistered is returned when an address has no public key in the
	// registrar.
	ErrNotRegistered = errors.New("address not registered")
)

// EventKind identifies the contract event.
type EventKind int

const (
	EventRegister EventKind = iota
	EventMint
	EventTransfer
	EventBurn
)

func (k EventKind) String() string {
	switch k {
	case EventRegister:
		return "register"
	case EventMint:
		return "mint"
	case EventTransfer:
		return "transfer"
	case EventBurn:
		return "burn"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Event is a decoded contract event. Ciphertexts are kept as raw field
// elements; the consumer validates them.
//
// Register sets User and PublicKey. Mint sets User (the recipient) and
// RecipientDelta. Transfer sets From, To and both deltas. Burn sets User and
// From to the burner, SenderDelta to the debit and RecipientDelta to the
// amount credited to the burn sentinel.
type Event struct {
	Kind           EventKind
	From           common.Address
	To             common.Address
	User           common.Address
	PublicKey      []*big.Int
	AuditorPCT     []*big.Int
	AuditorAddress common.Address
	SenderDelta    []*big.Int
	RecipientDelta []*big.Int
	BlockNumber    uint64
	LogIndex       uint
	TxHash         common.Hash
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@%d:%d", e.Kind, e.BlockNumber, e.LogIndex)
}

// Transaction is a proven operation ready to be sent.
type Transaction struct {
	Type      proof.Type
	From      common.Address
	Recipient common.Address
	// Proof is the Groth16 proof in the layout of the Solidity verifiers.
	Proof    [SolidityProofSize]*big.Int
	Inputs   []*big.Int
	Artifact *proof.Artifact
	// SenderDelta is the amount encrypted under the sender key, debited
	// from the sender on Transfer and Burn.
	SenderDelta *elgamal.Ciphertext
	RequestID   string
}

// NewTransaction pairs a request with its proof.
func NewTransaction(req *proof.Request, artifact *proof.Artifact) (*Transaction, error) {
	if !artifact.Matches(req) {
		return nil, fmt.Errorf("artifact does not prove request %s", req.ID)
	}
	solProof, err := SolidityProof(artifact)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{
		Type:      req.Type,
		From:      req.Account,
		Proof:     solProof,
		Inputs:    req.PublicInputs,
		Artifact:  artifact,
		RequestID: req.ID.String(),
	}
	if req.Outputs != nil {
		tx.Recipient = req.Outputs.Recipient
		tx.SenderDelta = req.Outputs.SenderDelta
	}
	return tx, nil
}

// ChainClient is the access to the eERC contracts.
type ChainClient interface {
	ChainID() uint64
	// LatestBlock returns the current chain height.
	LatestBlock(ctx context.Context) (uint64, error)
	// FilterEvents returns the eERC events in [fromBlock, toBlock].
	FilterEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*Event, error)
	// Submit sends the transaction and returns its hash.
	Submit(ctx context.Context, tx *Transaction) (common.Hash, error)
	// PublicKey returns the registered key of user, or ErrNotRegistered.
	PublicKey(ctx context.Context, user common.Address) (ecc.Point, error)
	// AuditorPublicKey returns the auditor key set in the token contract.
	AuditorPublicKey(ctx context.Context) (ecc.Point, error)
}
