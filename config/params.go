// Package config holds the protocol constants shared by every component and
// the runtime configuration of the client.
package config

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/ecc/curves"
	"github.com/encryptederc/eerc-client/crypto/elgamal"
	"github.com/encryptederc/eerc-client/crypto/field"
)

const (
	// DefaultMaxAmount bounds the amounts Decrypt can recover. Balances and
	// transfer amounts above it are rejected.
	DefaultMaxAmount = uint64(1)<<32 - 1
	// TestMaxAmount keeps the decryption table small in tests.
	TestMaxAmount = uint64(1) << 20
	// TestnetChainID is the chain id of Avalanche Fuji, where the reference
	// deployment lives.
	TestnetChainID = 43113
)

// BurnSentinelAddress is the well-known recipient of Burn operations. Its
// key pair is public (private scalar 0, public key the identity) so burned
// totals are readable by anyone.
var BurnSentinelAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")

// Params are the protocol constants. A Params value is immutable once built
// and is shared by pointer between components.
type Params struct {
	ChainID   *big.Int
	CurveType string
	MaxAmount uint64
	// Field is the SNARK scalar field: every public input lives there.
	Field *field.Field
	// Scalar is the BabyJubJub subgroup order: private keys, randomness and
	// amounts live there.
	Scalar *field.Field
	// BurnSentinel is the address used as recipient of burns.
	BurnSentinel common.Address
	// AuditorPublicKey is the key every PCT is encrypted to. It is nil until
	// the auditor is known.
	AuditorPublicKey ecc.Point
	// Engine is the ElGamal engine bound to CurveType and MaxAmount.
	Engine *elgamal.Engine
}

// NewParams builds Params for the given chain, curve backend and maximum
// amount.
func NewParams(chainID *big.Int, curveType string, maxAmount uint64) (*Params, error) {
	if !curves.IsSupported(curveType) {
		return nil, fmt.Errorf("unsupported curve type %q", curveType)
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", chainID)
	}
	if maxAmount == 0 {
		return nil, fmt.Errorf("max amount must be positive")
	}
	curve := curves.New(curveType)
	return &Params{
		ChainID:      new(big.Int).Set(chainID),
		CurveType:    curveType,
		MaxAmount:    maxAmount,
		Field:        field.New("snark", field.SNARKFieldSize()),
		Scalar:       field.New("scalar", curve.Order()),
		BurnSentinel: BurnSentinelAddress,
		Engine:       elgamal.New(curve, maxAmount),
	}, nil
}

// DefaultParams returns the production parameters for chainID.
func DefaultParams(chainID *big.Int) *Params {
	p, err := NewParams(chainID, curves.CurveTypeBabyJubJub, DefaultMaxAmount)
	if err != nil {
		panic(err)
	}
	return p
}

// TestnetParams returns parameters for the testnet with a small decryption
// range.
func TestnetParams() *Params {
	p, err := NewParams(big.NewInt(TestnetChainID), curves.CurveTypeBabyJubJub, TestMaxAmount)
	if err != nil {
		panic(err)
	}
	return p
}

// WithAuditor returns a copy of p using auditorKey as auditor public key.
func (p *Params) WithAuditor(auditorKey ecc.Point) *Params {
	cp := *p
	cp.AuditorPublicKey = auditorKey
	return &cp
}

// NewPoint returns an identity point of the configured curve backend.
func (p *Params) NewPoint() ecc.Point {
	return p.Engine.Curve()
}

// BurnSentinelPublicKey returns the identity point, public key of the burn
// sentinel.
func (p *Params) BurnSentinelPublicKey() ecc.Point {
	return p.NewPoint()
}

// BurnSentinelPrivateKey returns the burn sentinel private scalar, 0.
func (p *Params) BurnSentinelPrivateKey() *big.Int {
	return big.NewInt(0)
}

// IsBurnSentinel reports whether addr is the burn sentinel.
func (p *Params) IsBurnSentinel(addr common.Address) bool {
	return addr == p.BurnSentinel
}

// MaxAmountBig returns MaxAmount as a big.Int.
func (p *Params) MaxAmountBig() *big.Int {
	return new(big.Int).SetUint64(p.MaxAmount)
}

// CheckAmount returns field.ErrOutOfRange if amount is negative or above
// MaxAmount.
func (p *Params) CheckAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(p.MaxAmountBig()) > 0 {
		return fmt.Errorf("%w: amount %v not in [0, %d]", field.ErrOutOfRange, amount, p.MaxAmount)
	}
	return nil
}

// Validate checks the parameters are consistent.
func (p *Params) Validate() error {
	switch {
	case p.ChainID == nil || p.ChainID.Sign() <= 0:
		return fmt.Errorf("invalid chain id")
	case p.Engine == nil || p.Field == nil || p.Scalar == nil:
		return fmt.Errorf("params not initialized")
	case p.Scalar.Modulus().Cmp(field.SubGroupOrder()) != 0:
		return fmt.Errorf("scalar domain is not the subgroup order")
	case p.Field.Modulus().Cmp(field.SNARKFieldSize()) != 0:
		return fmt.Errorf("field domain is not the SNARK field")
	case p.AuditorPublicKey != nil && !p.AuditorPublicKey.IsOnCurve():
		return fmt.Errorf("auditor public key is not on the curve")
	case p.AuditorPublicKey != nil && p.AuditorPublicKey.Type() != p.CurveType:
		return fmt.Errorf("auditor public key uses curve %s, expected %s", p.AuditorPublicKey.Type(), p.CurveType)
	}
	return nil
}
