package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/arbo/memdb"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/storage"
	"github.com/encryptederc/eerc-client/web3"
)

// Wallet drives the operations of one local account: it builds the proof
// request, has it proven, optionally verifies it and submits it to the
// chain. The balance is not touched here, it changes when the monitor
// reconciles the resulting event.
type Wallet struct {
	params   *config.Params
	builder  *proof.Builder
	prover   proof.Prover
	verifier proof.Verifier
	chain    web3.ChainClient
	storage  *storage.Storage
	account  *account.Account
}

// NewWallet returns a wallet for acc. If stg is nil, it uses a memory
// storage.
func NewWallet(params *config.Params, acc *account.Account, chain web3.ChainClient, prover proof.Prover, stg *storage.Storage) *Wallet {
	if stg == nil {
		stg = storage.New(memdb.New())
	}
	return &Wallet{
		params:  params,
		builder: proof.NewBuilder(params),
		prover:  prover,
		chain:   chain,
		storage: stg,
		account: acc,
	}
}

// WithVerifier makes the wallet check every proof before submitting it.
func (w *Wallet) WithVerifier(v proof.Verifier) *Wallet {
	w.verifier = v
	return w
}

// Account returns the wallet account.
func (w *Wallet) Account() *account.Account {
	return w.account
}

// Build resolves the recipient key of op and builds the request. Mint with
// an empty recipient mints to the wallet account.
func (w *Wallet) Build(ctx context.Context, typ proof.Type, op proof.Operation) (*proof.Request, error) {
	switch typ {
	case proof.TypeMint:
		if op.Recipient == (common.Address{}) || op.Recipient == w.account.Address {
			op.Recipient, op.RecipientPublicKey = w.account.Address, w.account.Keypair.PublicKey
			break
		}
		fallthrough
	case proof.TypeTransfer:
		if op.RecipientPublicKey == nil {
			pk, err := w.chain.PublicKey(ctx, op.Recipient)
			if err != nil {
				return nil, fmt.Errorf("cannot resolve recipient %s: %w", op.Recipient.Hex(), err)
			}
			op.RecipientPublicKey = pk
		}
	}
	return w.builder.Build(ctx, typ, w.account, op)
}

// Submit proves req and sends it. The request is consumed even if a later
// step fails.
func (w *Wallet) Submit(ctx context.Context, req *proof.Request) (*storage.Submission, error) {
	if err := req.MarkUsed(); err != nil {
		return nil, err
	}
	artifact, err := w.prover.Prove(ctx, req)
	if err != nil {
		return nil, err
	}
	if w.verifier != nil {
		if err := w.verifier.Verify(ctx, req.Type, artifact); err != nil {
			return nil, fmt.Errorf("%w: proof does not verify: %w", proof.ErrProver, err)
		}
	}
	tx, err := web3.NewTransaction(req, artifact)
	if err != nil {
		return nil, err
	}
	hash, err := w.chain.Submit(ctx, tx)
	if err != nil {
		return nil, err
	}
	sub := &storage.Submission{
		RequestID:    req.ID.String(),
		Type:         req.Type.String(),
		Account:      req.Account,
		Counter:      req.Counter,
		TxHash:       hash,
		Proof:        artifact.Proof,
		PublicInputs: artifact.PublicInputs,
		SubmittedAt:  time.Now(),
	}
	if err := w.storage.PushSubmission(sub); err != nil {
		return nil, fmt.Errorf("transaction %s sent but not stored: %w", hash.Hex(), err)
	}
	log.Infow("transaction submitted",
		"type", sub.Type,
		"account", req.Account.Hex(),
		"counter", req.Counter,
		"txHash", hash.Hex())
	return sub, nil
}

func (w *Wallet) execute(ctx context.Context, typ proof.Type, op proof.Operation) (*storage.Submission, error) {
	req, err := w.Build(ctx, typ, op)
	if err != nil {
		return nil, err
	}
	return w.Submit(ctx, req)
}

// Register publishes the account public key.
func (w *Wallet) Register(ctx context.Context) (*storage.Submission, error) {
	return w.execute(ctx, proof.TypeRegister, proof.Operation{})
}

// Mint mints amount to recipient.
func (w *Wallet) Mint(ctx context.Context, recipient common.Address, amount *big.Int) (*storage.Submission, error) {
	return w.execute(ctx, proof.TypeMint, proof.Operation{Amount: amount, Recipient: recipient})
}

// Transfer sends amount to a registered recipient.
func (w *Wallet) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*storage.Submission, error) {
	return w.execute(ctx, proof.TypeTransfer, proof.Operation{Amount: amount, Recipient: to})
}

// Burn destroys amount from the account balance.
func (w *Wallet) Burn(ctx context.Context, amount *big.Int) (*storage.Submission, error) {
	return w.execute(ctx, proof.TypeBurn, proof.Operation{Amount: amount})
}

// Balance decrypts the account balance.
func (w *Wallet) Balance() (*big.Int, error) {
	return w.account.DecryptBalance(w.params)
}
