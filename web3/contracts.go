package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/util"
	"github.com/encryptederc/eerc-client/web3/rpc"
)

const (
	web3QueryTimeout = 10 * time.Second
	defaultGasLimit  = 10000000
)

// Addresses contains the addresses of the contracts deployed in the network.
type Addresses struct {
	Token     common.Address
	Registrar common.Address
}

// Contracts contains the bindings to the deployed contracts.
type Contracts struct {
	chainID   uint64
	addresses Addresses
	curve     ecc.Point
	token     *bind.BoundContract
	registrar *bind.BoundContract
	web3pool  *rpc.Web3Pool
	cli       *rpc.Client
	privKey   *ecdsa.PrivateKey
	address   common.Address
}

var _ ChainClient = (*Contracts)(nil)

// NewContracts creates a new Contracts instance with the given web3
// endpoint. Points read from the contracts are built on curve.
func NewContracts(addresses *Addresses, web3rpc string, curve ecc.Point) (*Contracts, error) {
	w3pool := rpc.NewWeb3Pool()
	chainID, err := w3pool.AddEndpoint(web3rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
	}
	cli, err := w3pool.Client(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &Contracts{
		chainID:   chainID,
		addresses: *addresses,
		curve:     curve,
		token:     bind.NewBoundContract(addresses.Token, tokenABI, cli, cli, cli),
		registrar: bind.NewBoundContract(addresses.Registrar, registrarABI, cli, cli, cli),
		web3pool:  w3pool,
		cli:       cli,
	}, nil
}

// ChainID returns the chain the contracts live on.
func (c *Contracts) ChainID() uint64 {
	return c.chainID
}

// AddWeb3Endpoint adds a new web3 endpoint to the pool.
func (c *Contracts) AddWeb3Endpoint(web3rpc string) error {
	chainID, err := c.web3pool.AddEndpoint(web3rpc)
	if err != nil {
		return err
	}
	if chainID != c.chainID {
		c.web3pool.DisableEndpoint(chainID, web3rpc)
		return fmt.Errorf("endpoint %s is on chain %d, expected %d", web3rpc, chainID, c.chainID)
	}
	return nil
}

// SetAccountPrivateKey sets the private key to be used for signing transactions.
func (c *Contracts) SetAccountPrivateKey(hexPrivKey string) error {
	var err error
	c.privKey, err = crypto.HexToECDSA(util.TrimHex(hexPrivKey))
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	c.address = crypto.PubkeyToAddress(c.privKey.PublicKey)
	return nil
}

// AccountAddress returns the address of the account used to sign transactions.
func (c *Contracts) AccountAddress() common.Address {
	return c.address
}

// authTransactOpts creates the transact options with the configured private
// key. It sets the nonce, gas tip cap and gas limit.
func (c *Contracts) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privKey == nil {
		return nil, fmt.Errorf("no private key set")
	}
	bChainID := new(big.Int).SetUint64(c.chainID)
	auth, err := bind.NewKeyedTransactorWithChainID(c.privKey, bChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	log.Debugw("getting nonce", "address", c.address.Hex())
	nonce, err := c.cli.PendingNonceAt(qctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	if auth.GasTipCap, err = c.cli.SuggestGasTipCap(qctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	auth.GasLimit = defaultGasLimit
	auth.Context = ctx
	return auth, nil
}

// LatestBlock returns the current block number.
func (c *Contracts) LatestBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	n, err := c.cli.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrChain, err)
	}
	return n, nil
}

// FilterEvents fetches and decodes the eERC events in [fromBlock, toBlock].
// Logs that cannot be decoded are logged and skipped.
func (c *Contracts) FilterEvents(ctx context.Context, fromBlock, toBlock uint64) ([]*Event, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	logs, err := c.cli.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.addresses.Token, c.addresses.Registrar},
		Topics:    [][]common.Hash{eventTopics()},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChain, err)
	}
	events := make([]*Event, 0, len(logs))
	for i := range logs {
		if logs[i].Removed {
			continue
		}
		ev, err := DecodeLog(&logs[i])
		if err != nil {
			log.Warnw("cannot decode log", "tx", logs[i].TxHash.Hex(), "index", logs[i].Index, "error", err.Error())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Submit sends the proven transaction to the contract of its type.
func (c *Contracts) Submit(ctx context.Context, tx *Transaction) (common.Hash, error) {
	opts, err := c.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to create transact options: %w", ErrChain, err)
	}
	var args []any
	contract := c.token
	method := ""
	switch tx.Type {
	case proof.TypeRegister:
		contract, method = c.registrar, methodRegister
		args = []any{tx.Proof, tx.Inputs}
	case proof.TypeMint:
		method = methodPrivateMint
		args = []any{tx.Recipient, tx.Proof, tx.Inputs}
	case proof.TypeTransfer, proof.TypeBurn:
		if tx.SenderDelta == nil {
			return common.Hash{}, fmt.Errorf("missing sender delta")
		}
		delta, err := toArray4(tx.SenderDelta.FieldElements())
		if err != nil {
			return common.Hash{}, err
		}
		if tx.Type == proof.TypeTransfer {
			method = methodTransfer
			args = []any{tx.Recipient, tx.Proof, tx.Inputs, delta}
		} else {
			method = methodPrivateBurn
			args = []any{tx.Proof, tx.Inputs, delta}
		}
	default:
		return common.Hash{}, fmt.Errorf("%w: %s", proof.ErrUnsupportedType, tx.Type)
	}
	sent, err := contract.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: failed to send %s: %w", ErrChain, method, err)
	}
	log.Infow("transaction sent", "method", method, "hash", sent.Hash().Hex(), "request", tx.RequestID)
	return sent.Hash(), nil
}

// PublicKey returns the key registered for user.
func (c *Contracts) PublicKey(ctx context.Context, user common.Address) (ecc.Point, error) {
	p, err := c.callPoint(ctx, c.registrar, methodGetUserPublicKey, user)
	if err != nil {
		return nil, err
	}
	if ecc.IsZero(p) || isUnset(p) {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, user.Hex())
	}
	return p, nil
}

// AuditorPublicKey returns the auditor key of the token contract.
func (c *Contracts) AuditorPublicKey(ctx context.Context) (ecc.Point, error) {
	p, err := c.callPoint(ctx, c.token, methodAuditorPublicKey)
	if err != nil {
		return nil, err
	}
	if isUnset(p) {
		return nil, fmt.Errorf("%w: auditor not set", ErrChain)
	}
	return p, nil
}

func (c *Contracts) callPoint(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (ecc.Point, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChain, method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: %s: unexpected output", ErrChain, method)
	}
	coords, err := fixedArray[[2]*big.Int](out[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChain, method, err)
	}
	p := c.curve.SetPoint(coords[0], coords[1])
	if !isUnset(p) && !p.IsOnCurve() {
		return nil, fmt.Errorf("%w: %s returned a point off the curve", ErrChain, method)
	}
	return p, nil
}

// isUnset reports whether p is (0, 0), the value of an empty storage slot.
func isUnset(p ecc.Point) bool {
	x, y := p.Point()
	return x.Sign() == 0 && y.Sign() == 0
}

// WaitTx polls until the transaction is mined or ctx ends.
func (c *Contracts) WaitTx(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		receipt, err := c.cli.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == 0 {
				return fmt.Errorf("%w: transaction %s reverted", ErrChain, hash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			log.Debugw("waiting for transaction", "hash", hash.Hex(), "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrChain, ctx.Err())
		case <-ticker.C:
		}
	}
}
