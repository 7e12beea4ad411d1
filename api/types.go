package api

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/elgamal"
	"github.com/encryptederc/eerc-client/proof"
	stg "github.com/encryptederc/eerc-client/storage"
	"github.com/encryptederc/eerc-client/types"
)

// Params is the response to a protocol parameters request.
type Params struct {
	ChainID          *types.BigInt  `json:"chainId"`
	CurveType        string         `json:"curveType"`
	MaxAmount        uint64         `json:"maxAmount"`
	BurnSentinel     common.Address `json:"burnSentinel"`
	AuditorPublicKey *ecc.PointEC   `json:"auditorPublicKey,omitempty"`
}

// Account is the public state of a local account. EncodedBalance is the
// balance in its fixed size binary encoding.
type Account struct {
	Address        common.Address      `json:"address"`
	PublicKey      *ecc.PointEC        `json:"publicKey"`
	Balance        *elgamal.Ciphertext `json:"balance"`
	EncodedBalance types.HexBytes      `json:"encodedBalance"`
	Counter        uint64              `json:"counter"`
}

// Accounts lists the local accounts.
type Accounts struct {
	Addresses []common.Address `json:"addresses"`
}

// Balance is the decrypted balance of an account.
type Balance struct {
	Address common.Address `json:"address"`
	Balance *types.BigInt  `json:"balance"`
}

// NewRequest asks for a proof request. Recipient is used by mint and
// transfer. With Submit set, the request is proven and sent at once.
type NewRequest struct {
	Type      proof.Type     `json:"type"`
	Amount    *types.BigInt  `json:"amount,omitempty"`
	Recipient common.Address `json:"recipient,omitempty"`
	Submit    bool           `json:"submit,omitempty"`
}

// Outputs are the ciphertexts produced with a request.
type Outputs struct {
	SenderDelta    *elgamal.Ciphertext `json:"senderDelta,omitempty"`
	RecipientDelta *elgamal.Ciphertext `json:"recipientDelta,omitempty"`
	NewBalance     *elgamal.Ciphertext `json:"newBalance,omitempty"`
	AuditorPCT     []*types.BigInt     `json:"auditorPCT,omitempty"`
	Nullifier      *types.BigInt       `json:"nullifier,omitempty"`
	Recipient      common.Address      `json:"recipient"`
}

// Request is a built proof request. Signals are the named circuit inputs,
// private ones included, ready for an external witness calculator.
type Request struct {
	ID           string          `json:"id"`
	Type         proof.Type      `json:"type"`
	Account      common.Address  `json:"account"`
	Counter      uint64          `json:"counter"`
	PublicInputs []*types.BigInt `json:"publicInputs"`
	Signals      map[string]any  `json:"signals"`
	Outputs      *Outputs        `json:"outputs,omitempty"`
}

// Submission is a proven transaction sent to the chain.
type Submission struct {
	RequestID   string      `json:"requestId"`
	Type        string      `json:"type"`
	Counter     uint64      `json:"counter"`
	TxHash      common.Hash `json:"txHash"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// Submissions lists the pending submissions of an account.
type Submissions struct {
	Submissions []*Submission `json:"submissions"`
}

// AuditRecord is an amount decrypted from an auditor ciphertext.
type AuditRecord struct {
	Kind     string         `json:"kind"`
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Amount   *types.BigInt  `json:"amount"`
	Block    uint64         `json:"block"`
	LogIndex uint           `json:"logIndex"`
	TxHash   common.Hash    `json:"txHash"`
}

// AuditRecords lists the audit records.
type AuditRecords struct {
	Records []*AuditRecord `json:"records"`
}

func pointEC(p ecc.Point) *ecc.PointEC {
	if p == nil {
		return nil
	}
	x, y := p.Point()
	return &ecc.PointEC{X: types.BigInt(*x), Y: types.BigInt(*y)}
}

func requestResponse(req *proof.Request) *Request {
	out := &Request{
		ID:           req.ID.String(),
		Type:         req.Type,
		Account:      req.Account,
		Counter:      req.Counter,
		PublicInputs: types.BigIntSlice(req.PublicInputs),
		Signals:      req.Signals,
	}
	if o := req.Outputs; o != nil {
		out.Outputs = &Outputs{
			SenderDelta:    o.SenderDelta,
			RecipientDelta: o.RecipientDelta,
			NewBalance:     o.NewBalance,
			Recipient:      o.Recipient,
		}
		if o.PCT != nil {
			out.Outputs.AuditorPCT = types.BigIntSlice(o.PCT.Elements())
		}
		if o.Nullifier != nil {
			out.Outputs.Nullifier = types.NewInt(o.Nullifier)
		}
	}
	return out
}

func amountOrZero(a *types.BigInt) *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return a.MathBigInt()
}

func submissionResponse(s *stg.Submission) *Submission {
	return &Submission{
		RequestID:   s.RequestID,
		Type:        s.Type,
		Counter:     s.Counter,
		TxHash:      s.TxHash,
		SubmittedAt: s.SubmittedAt,
	}
}
