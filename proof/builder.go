package proof

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/hash/poseidon"
	"github.com/encryptederc/eerc-client/crypto/pct"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/util"
)

// nonceBytes is the size of the random PCT nonce, below 2^128.
const nonceBytes = 16

// Builder builds proof requests for local accounts.
type Builder struct {
	params *config.Params
	// beforeSnapshot runs between the balance check and the snapshot of a
	// spending request. Tests use it to reconcile an event in between.
	beforeSnapshot func(*account.Account)
}

// NewBuilder returns a Builder bound to params.
func NewBuilder(params *config.Params) *Builder {
	return &Builder{params: params}
}

// Params returns the builder parameters.
func (b *Builder) Params() *config.Params {
	return b.params
}

// Build assembles the request of type typ for acc. Amount and balance checks
// run before the account counter is consumed, so a failed check leaves the
// account untouched. Once the counter is consumed it is never given back,
// even if ctx is cancelled afterwards. The one exception is a spending
// request whose balance changed between the check and the snapshot: the
// balance is checked again against the snapshot, after the counter was
// consumed, and an ErrInsufficientBalance from that second check leaves the
// counter incremented.
func (b *Builder) Build(ctx context.Context, typ Type, acc *account.Account, op Operation) (*Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		req *Request
		err error
	)
	switch typ {
	case TypeRegister:
		req, err = b.buildRegister(acc)
	case TypeMint:
		req, err = b.buildMint(acc, op)
	case TypeTransfer:
		req, err = b.buildTransfer(acc, op)
	case TypeBurn:
		op.Recipient = b.params.BurnSentinel
		op.RecipientPublicKey = b.params.BurnSentinelPublicKey()
		req, err = b.buildTransfer(acc, op)
		if req != nil {
			req.Type = TypeBurn
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedType, int(typ))
	}
	if err != nil {
		return nil, err
	}
	log.Debugw("proof request built",
		"id", req.ID.String(),
		"type", req.Type.String(),
		"account", acc.Address.Hex(),
		"counter", req.Counter,
		"publicInputs", len(req.PublicInputs))
	return req, nil
}

func newRequest(typ Type, acc *account.Account, counter uint64) *Request {
	return &Request{
		ID:      uuid.New(),
		Type:    typ,
		Account: acc.Address,
		Counter: counter,
	}
}

func pointElements(p ecc.Point) []*big.Int {
	x, y := p.Point()
	return []*big.Int{x, y}
}

func counterElement(counter uint64) *big.Int {
	return new(big.Int).SetUint64(counter)
}

// RegistrationHash returns Poseidon(chainID, privateKey, address), which binds
// a registration proof to one chain and one address.
func RegistrationHash(params *config.Params, privateKey *big.Int, acc *account.Account) (*big.Int, error) {
	addr := new(big.Int).SetBytes(acc.Address.Bytes())
	return poseidon.MultiPoseidon(params.Field.Reduce(params.ChainID), privateKey, addr)
}

// MintNullifier returns Poseidon(chainID, pct...), which makes every mint
// proof unique.
func MintNullifier(params *config.Params, p pct.PCT) (*big.Int, error) {
	return poseidon.MultiPoseidon(append([]*big.Int{params.Field.Reduce(params.ChainID)}, p.Elements()...)...)
}

// buildRegister: public [pk.x, pk.y, registrationHash, counter], witness [sk].
func (b *Builder) buildRegister(acc *account.Account) (*Request, error) {
	sk := acc.Keypair.PrivateKey
	regHash, err := RegistrationHash(b.params, sk, acc)
	if err != nil {
		return nil, fmt.Errorf("cannot compute registration hash: %w", err)
	}
	snap := acc.SnapshotForProof()

	req := newRequest(TypeRegister, acc, snap.Counter)
	req.PublicInputs = append(pointElements(acc.Keypair.PublicKey), regHash, counterElement(snap.Counter))
	req.PrivateWitness = []*big.Int{new(big.Int).Set(sk)}
	req.Outputs = &Outputs{Nullifier: regHash}
	req.Signals = registerSignals(req)
	return req, nil
}

// buildMint: public [rcptPK(2), mintCT(4), auditorPK(2), pct(7), nullifier,
// counter], witness [amount, r, rPCT].
func (b *Builder) buildMint(acc *account.Account, op Operation) (*Request, error) {
	if err := b.params.CheckAmount(op.Amount); err != nil {
		return nil, err
	}
	if b.params.AuditorPublicKey == nil {
		return nil, ErrMissingAuditor
	}
	recipient, recipientKey := op.Recipient, op.RecipientPublicKey
	if recipientKey == nil {
		recipient, recipientKey = acc.Address, acc.Keypair.PublicKey
	}

	engine := b.params.Engine
	mintCT, r, err := engine.EncryptRandom(op.Amount, recipientKey)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt mint amount: %w", err)
	}
	auditorPCT, rPCT, err := b.auditorCiphertext(op.Amount)
	if err != nil {
		return nil, err
	}
	nullifier, err := MintNullifier(b.params, auditorPCT)
	if err != nil {
		return nil, fmt.Errorf("cannot compute mint nullifier: %w", err)
	}
	snap := acc.SnapshotForProof()

	req := newRequest(TypeMint, acc, snap.Counter)
	req.PublicInputs = concat(
		pointElements(recipientKey),
		mintCT.FieldElements(),
		pointElements(b.params.AuditorPublicKey),
		auditorPCT.Elements(),
		[]*big.Int{nullifier, counterElement(snap.Counter)},
	)
	req.PrivateWitness = []*big.Int{new(big.Int).Set(op.Amount), r, rPCT}
	req.Outputs = &Outputs{
		RecipientDelta: mintCT,
		PCT:            &auditorPCT,
		Nullifier:      nullifier,
		Recipient:      recipient,
	}
	req.Signals = mintSignals(req)
	return req, nil
}

// buildTransfer: public [senderPK(2), rcptPK(2), balance(4), newBalance(4),
// rcptDelta(4), auditorPK(2), pct(7), counter], witness [amount, sk,
// plainBalance, rSender, rRecipient, rPCT].
func (b *Builder) buildTransfer(acc *account.Account, op Operation) (*Request, error) {
	if err := b.params.CheckAmount(op.Amount); err != nil {
		return nil, err
	}
	if b.params.AuditorPublicKey == nil {
		return nil, ErrMissingAuditor
	}
	if op.RecipientPublicKey == nil {
		return nil, fmt.Errorf("recipient public key is required")
	}
	engine := b.params.Engine
	sk := acc.Keypair.PrivateKey

	current := acc.Balance()
	plainBalance, err := engine.Decrypt(current, sk)
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt balance: %w", err)
	}
	if op.Amount.Cmp(plainBalance) > 0 {
		return nil, fmt.Errorf("%w: amount %s, balance %s", ErrInsufficientBalance, op.Amount, plainBalance)
	}

	senderDelta, rSender, err := engine.EncryptRandom(op.Amount, acc.Keypair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt sender delta: %w", err)
	}
	recipientDelta, rRecipient, err := engine.EncryptRandom(op.Amount, op.RecipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("cannot encrypt recipient delta: %w", err)
	}
	auditorPCT, rPCT, err := b.auditorCiphertext(op.Amount)
	if err != nil {
		return nil, err
	}

	if b.beforeSnapshot != nil {
		b.beforeSnapshot(acc)
	}
	snap := acc.SnapshotForProof()
	if !snap.Balance.Equal(current) {
		// an event was reconciled in between, the witness must match the
		// snapshot
		if plainBalance, err = engine.Decrypt(snap.Balance, sk); err != nil {
			return nil, fmt.Errorf("cannot decrypt balance: %w", err)
		}
		if op.Amount.Cmp(plainBalance) > 0 {
			return nil, fmt.Errorf("%w: amount %s, balance %s", ErrInsufficientBalance, op.Amount, plainBalance)
		}
	}
	newBalance := engine.Sub(snap.Balance, senderDelta)

	req := newRequest(TypeTransfer, acc, snap.Counter)
	req.PublicInputs = concat(
		pointElements(acc.Keypair.PublicKey),
		pointElements(op.RecipientPublicKey),
		snap.Balance.FieldElements(),
		newBalance.FieldElements(),
		recipientDelta.FieldElements(),
		pointElements(b.params.AuditorPublicKey),
		auditorPCT.Elements(),
		[]*big.Int{counterElement(snap.Counter)},
	)
	req.PrivateWitness = []*big.Int{
		new(big.Int).Set(op.Amount), new(big.Int).Set(sk), plainBalance,
		rSender, rRecipient, rPCT,
	}
	req.Outputs = &Outputs{
		SenderDelta:    senderDelta,
		RecipientDelta: recipientDelta,
		NewBalance:     newBalance,
		PCT:            &auditorPCT,
		Recipient:      op.Recipient,
	}
	req.Signals = transferSignals(req)
	return req, nil
}

// auditorCiphertext encrypts amount to the auditor and returns the ECDH
// randomness.
func (b *Builder) auditorCiphertext(amount *big.Int) (pct.PCT, *big.Int, error) {
	r, err := b.params.Engine.RandomScalar()
	if err != nil {
		return pct.PCT{}, nil, err
	}
	nonce := new(big.Int).SetBytes(util.RandomBytes(nonceBytes))
	p, err := pct.Encrypt(amount, b.params.AuditorPublicKey, r, nonce)
	if err != nil {
		return pct.PCT{}, nil, fmt.Errorf("cannot encrypt auditor ciphertext: %w", err)
	}
	return p, r, nil
}

func concat(parts ...[]*big.Int) []*big.Int {
	var out []*big.Int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
