package service

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/elgamal"
	"github.com/encryptederc/eerc-client/crypto/pct"
	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/util"
	"github.com/encryptederc/eerc-client/web3"
)

// MockChain implements web3.ChainClient in memory. Every accepted
// transaction is mined in its own block and emits the event the eERC
// contracts would emit, built from the public inputs of the proof.
type MockChain struct {
	params         *config.Params
	verifier       proof.Verifier
	auditorAddress common.Address

	mu         sync.Mutex
	block      uint64
	events     []*web3.Event
	keys       map[common.Address]ecc.Point
	nullifiers map[string]struct{}
}

var _ web3.ChainClient = (*MockChain)(nil)

// NewMockChain returns an empty chain at block 0. The auditor key is taken
// from params.
func NewMockChain(params *config.Params) *MockChain {
	return &MockChain{
		params:         params,
		auditorAddress: common.HexToAddress("0xaa"),
		keys:           make(map[common.Address]ecc.Point),
		nullifiers:     make(map[string]struct{}),
	}
}

// WithVerifier makes Submit reject transactions whose proof does not verify.
func (m *MockChain) WithVerifier(v proof.Verifier) *MockChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifier = v
	return m
}

func (m *MockChain) ChainID() uint64 {
	return m.params.ChainID.Uint64()
}

func (m *MockChain) LatestBlock(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", web3.ErrChain, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.block, nil
}

func (m *MockChain) FilterEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*web3.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", web3.ErrChain, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*web3.Event
	for _, ev := range m.events {
		if ev.BlockNumber >= fromBlock && ev.BlockNumber <= toBlock {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockChain) PublicKey(ctx context.Context, user common.Address) (ecc.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", web3.ErrChain, err)
	}
	if m.params.IsBurnSentinel(user) {
		return m.params.BurnSentinelPublicKey(), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, ok := m.keys[user]
	if !ok {
		return nil, fmt.Errorf("%w: %s", web3.ErrNotRegistered, user.Hex())
	}
	return pk, nil
}

func (m *MockChain) AuditorPublicKey(ctx context.Context) (ecc.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", web3.ErrChain, err)
	}
	if m.params.AuditorPublicKey == nil {
		return nil, fmt.Errorf("%w: auditor not set", web3.ErrChain)
	}
	return m.params.AuditorPublicKey, nil
}

// Submit checks the transaction the way the contracts do and mines it.
func (m *MockChain) Submit(ctx context.Context, tx *web3.Transaction) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", web3.ErrChain, err)
	}
	if tx == nil {
		return common.Hash{}, fmt.Errorf("%w: nil transaction", web3.ErrChain)
	}
	want, err := proof.NumPublicInputs(tx.Type)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", web3.ErrChain, err)
	}
	if len(tx.Inputs) != want {
		return common.Hash{}, fmt.Errorf("%w: %s expects %d public inputs, got %d",
			web3.ErrChain, tx.Type, want, len(tx.Inputs))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verifier != nil {
		if tx.Artifact == nil {
			return common.Hash{}, fmt.Errorf("%w: missing proof", web3.ErrChain)
		}
		if err := m.verifier.Verify(ctx, tx.Type, tx.Artifact); err != nil {
			return common.Hash{}, fmt.Errorf("%w: invalid proof: %w", web3.ErrChain, err)
		}
	}

	var ev *web3.Event
	switch tx.Type {
	case proof.TypeRegister:
		ev, err = m.register(tx)
	case proof.TypeMint:
		ev, err = m.mint(tx)
	case proof.TypeTransfer, proof.TypeBurn:
		ev, err = m.transfer(tx)
	default:
		err = fmt.Errorf("unsupported transaction %s", tx.Type)
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", web3.ErrChain, err)
	}

	m.block++
	ev.BlockNumber = m.block
	ev.TxHash = txHash(m.block, tx.RequestID)
	m.events = append(m.events, ev)
	return ev.TxHash, nil
}

func (m *MockChain) register(tx *web3.Transaction) (*web3.Event, error) {
	if _, ok := m.keys[tx.From]; ok {
		return nil, fmt.Errorf("%s already registered", tx.From.Hex())
	}
	keyElems := tx.Inputs[proof.RegisterPublicKey : proof.RegisterPublicKey+2]
	pk := m.params.NewPoint().SetPoint(keyElems[0], keyElems[1])
	if !pk.IsOnCurve() || ecc.IsZero(pk) {
		return nil, fmt.Errorf("invalid public key")
	}
	m.keys[tx.From] = pk
	return &web3.Event{
		Kind:      web3.EventRegister,
		User:      tx.From,
		PublicKey: cloneBigs(keyElems),
	}, nil
}

func (m *MockChain) mint(tx *web3.Transaction) (*web3.Event, error) {
	if err := m.checkKey(tx.Recipient, tx.Inputs[proof.MintRecipientKey:proof.MintRecipientKey+2]); err != nil {
		return nil, err
	}
	if err := m.checkAuditor(tx.Inputs[proof.MintAuditorKey : proof.MintAuditorKey+2]); err != nil {
		return nil, err
	}
	nullifier := tx.Inputs[proof.MintNullifierAt].String()
	if _, ok := m.nullifiers[nullifier]; ok {
		return nil, fmt.Errorf("mint nullifier already used")
	}
	delta := tx.Inputs[proof.MintCiphertext : proof.MintCiphertext+elgamal.NumFieldElements]
	auditorPCT := tx.Inputs[proof.MintPCT : proof.MintPCT+pct.Size]
	m.nullifiers[nullifier] = struct{}{}
	return &web3.Event{
		Kind:           web3.EventMint,
		User:           tx.Recipient,
		RecipientDelta: cloneBigs(delta),
		AuditorPCT:     cloneBigs(auditorPCT),
		AuditorAddress: m.auditorAddress,
	}, nil
}

// transfer handles Transfer and Burn, which share the public inputs.
func (m *MockChain) transfer(tx *web3.Transaction) (*web3.Event, error) {
	if err := m.checkKey(tx.From, tx.Inputs[proof.TransferSenderKey:proof.TransferSenderKey+2]); err != nil {
		return nil, err
	}
	recipient := tx.Recipient
	if tx.Type == proof.TypeBurn {
		recipient = m.params.BurnSentinel
	}
	if err := m.checkKey(recipient, tx.Inputs[proof.TransferRecipientKey:proof.TransferRecipientKey+2]); err != nil {
		return nil, err
	}
	if err := m.checkAuditor(tx.Inputs[proof.TransferAuditorKey : proof.TransferAuditorKey+2]); err != nil {
		return nil, err
	}
	if tx.SenderDelta == nil {
		return nil, fmt.Errorf("missing sender delta")
	}
	delta := tx.Inputs[proof.TransferRecipientDelta : proof.TransferRecipientDelta+elgamal.NumFieldElements]
	auditorPCT := tx.Inputs[proof.TransferPCT : proof.TransferPCT+pct.Size]
	ev := &web3.Event{
		Kind:           web3.EventTransfer,
		From:           tx.From,
		To:             recipient,
		SenderDelta:    tx.SenderDelta.FieldElements(),
		RecipientDelta: cloneBigs(delta),
		AuditorPCT:     cloneBigs(auditorPCT),
		AuditorAddress: m.auditorAddress,
	}
	if tx.Type == proof.TypeBurn {
		ev.Kind, ev.User, ev.To = web3.EventBurn, tx.From, common.Address{}
	}
	return ev, nil
}

func (m *MockChain) checkKey(addr common.Address, elems []*big.Int) error {
	var pk ecc.Point
	if m.params.IsBurnSentinel(addr) {
		pk = m.params.BurnSentinelPublicKey()
	} else {
		var ok bool
		if pk, ok = m.keys[addr]; !ok {
			return fmt.Errorf("%w: %s", web3.ErrNotRegistered, addr.Hex())
		}
	}
	if !pk.Equal(m.params.NewPoint().SetPoint(elems[0], elems[1])) {
		return fmt.Errorf("public key mismatch for %s", addr.Hex())
	}
	return nil
}

func (m *MockChain) checkAuditor(elems []*big.Int) error {
	if m.params.AuditorPublicKey == nil {
		return fmt.Errorf("auditor not set")
	}
	if !m.params.AuditorPublicKey.Equal(m.params.NewPoint().SetPoint(elems[0], elems[1])) {
		return fmt.Errorf("auditor public key mismatch")
	}
	return nil
}

// Events returns a copy of every event emitted so far.
func (m *MockChain) Events() []*web3.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

func txHash(block uint64, requestID string) common.Hash {
	return crypto.Keccak256Hash(util.BigToBytes32(new(big.Int).SetUint64(block)), []byte(requestID))
}

func cloneBigs(in []*big.Int) []*big.Int {
	out := make([]*big.Int, len(in))
	for i, v := range in {
		out[i] = new(big.Int).Set(v)
	}
	return out
}
