// Package elgamal implements additively homomorphic ElGamal over BabyJubJub.
// A message m is encoded as m·G, so ciphertexts can be added and negated
// without decryption, and decryption recovers m with a bounded discrete log.
package elgamal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/field"
)

var (
	// ErrDecryptionRange is returned when the decrypted point does not map to
	// any amount in [0, MaxAmount].
	ErrDecryptionRange = errors.New("decrypted value outside of the supported range")
	// ErrInvalidRandomness is returned for zero or out of domain randomness.
	ErrInvalidRandomness = errors.New("invalid encryption randomness")
	// ErrInvalidCiphertext is returned when a ciphertext is not made of two
	// points on the curve.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Engine encrypts and decrypts amounts on a given curve backend. The
// baby-step table used by Decrypt is computed once and shared by every call,
// so an Engine should be reused.
type Engine struct {
	curve     ecc.Point
	scalar    *field.Field
	maxAmount uint64

	tableOnce sync.Once
	babySteps map[string]uint64
	stepSize  uint64
	giantStep ecc.Point
}

// New returns an Engine for the curve backend given as prototype point and
// the largest amount Decrypt is able to recover.
func New(curve ecc.Point, maxAmount uint64) *Engine {
	return &Engine{
		curve:     curve.New(),
		scalar:    field.New("scalar", curve.Order()),
		maxAmount: maxAmount,
	}
}

// Curve returns a fresh identity point of the engine curve backend.
func (e *Engine) Curve() ecc.Point {
	return e.curve.New()
}

// MaxAmount returns the upper bound of the amounts Decrypt can recover.
func (e *Engine) MaxAmount() uint64 {
	return e.maxAmount
}

// Generator returns a new copy of the base point.
func (e *Engine) Generator() ecc.Point {
	g := e.curve.New()
	g.SetGenerator()
	return g
}

// RandomScalar returns a uniformly random non-zero scalar of the subgroup
// order, read from crypto/rand.
func (e *Engine) RandomScalar() (*big.Int, error) {
	order := e.scalar.Modulus()
	for {
		k, err := rand.Int(rand.Reader, order)
		if err != nil {
			return nil, fmt.Errorf("failed to generate random scalar: %w", err)
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

// PublicKey returns privateKey·G.
func (e *Engine) PublicKey(privateKey *big.Int) ecc.Point {
	pk := e.curve.New()
	pk.ScalarBaseMult(e.scalar.Reduce(privateKey))
	return pk
}

// Encrypt encrypts amount under publicKey with the provided randomness:
// C1 = r·G, C2 = amount·G + r·publicKey. The randomness must be a non-zero
// scalar, and the amount must be in the scalar domain.
func (e *Engine) Encrypt(amount *big.Int, publicKey ecc.Point, randomness *big.Int) (*Ciphertext, error) {
	if err := e.scalar.Check(amount); err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if randomness == nil || randomness.Sign() == 0 || !e.scalar.Contains(randomness) {
		return nil, ErrInvalidRandomness
	}
	c1 := e.curve.New()
	c1.ScalarBaseMult(randomness)

	shared := e.curve.New()
	shared.ScalarMult(publicKey, randomness)

	m := e.curve.New()
	m.ScalarBaseMult(amount)

	c2 := e.curve.New()
	c2.Add(m, shared)
	return &Ciphertext{C1: c1, C2: c2}, nil
}

// EncryptRandom encrypts amount with fresh randomness, which is returned so
// it can be used as proof witness.
func (e *Engine) EncryptRandom(amount *big.Int, publicKey ecc.Point) (*Ciphertext, *big.Int, error) {
	r, err := e.RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	ct, err := e.Encrypt(amount, publicKey, r)
	if err != nil {
		return nil, nil, err
	}
	return ct, r, nil
}

// DecryptPoint returns M = C2 - privateKey·C1, the encoded message point.
func (e *Engine) DecryptPoint(ct *Ciphertext, privateKey *big.Int) ecc.Point {
	dC1 := e.curve.New()
	dC1.ScalarMult(ct.C1, e.scalar.Reduce(privateKey))
	dC1.Neg(dC1)

	m := e.curve.New()
	m.Add(ct.C2, dC1)
	return m
}

// Decrypt recovers the amount encrypted in ct. It fails with
// ErrDecryptionRange if the amount is not in [0, MaxAmount].
func (e *Engine) Decrypt(ct *Ciphertext, privateKey *big.Int) (*big.Int, error) {
	if ct == nil || ct.C1 == nil || ct.C2 == nil {
		return nil, ErrInvalidCiphertext
	}
	return e.DiscreteLog(e.DecryptPoint(ct, privateKey))
}

// DiscreteLog solves M = x·G for x in [0, MaxAmount] using baby-step
// giant-step.
func (e *Engine) DiscreteLog(m ecc.Point) (*big.Int, error) {
	e.tableOnce.Do(e.buildTable)

	giant := e.curve.New()
	giant.Set(m)
	for i := uint64(0); i <= e.stepSize; i++ {
		if j, ok := e.babySteps[string(giant.Marshal())]; ok {
			x := i*e.stepSize + j
			if x > e.maxAmount {
				break
			}
			return new(big.Int).SetUint64(x), nil
		}
		giant.Add(giant, e.giantStep)
	}
	return nil, ErrDecryptionRange
}

// buildTable stores j·G for j in [0, stepSize) and the giant step -stepSize·G.
func (e *Engine) buildTable() {
	e.stepSize = uint64(math.Sqrt(float64(e.maxAmount))) + 1
	e.babySteps = make(map[string]uint64, e.stepSize)

	g := e.Generator()
	step := e.curve.New()
	for j := uint64(0); j < e.stepSize; j++ {
		e.babySteps[string(step.Marshal())] = j
		step.Add(step, g)
	}
	e.giantStep = e.curve.New()
	e.giantStep.ScalarBaseMult(new(big.Int).SetUint64(e.stepSize))
	e.giantStep.Neg(e.giantStep)
}

// Zero returns the encryption of 0 with zero randomness: both components are
// the identity. It is the initial balance of every account.
func (e *Engine) Zero() *Ciphertext {
	return NewCiphertext(e.curve)
}

// Add returns the component-wise sum of a and b, which decrypts to the sum of
// the plaintexts.
func (e *Engine) Add(a, b *Ciphertext) *Ciphertext {
	return NewCiphertext(e.curve).Add(a, b)
}

// Neg returns the component-wise negation of a, which decrypts to the
// negated plaintext.
func (e *Engine) Neg(a *Ciphertext) *Ciphertext {
	z := NewCiphertext(e.curve)
	z.C1.Neg(a.C1)
	z.C2.Neg(a.C2)
	return z
}

// Sub returns Add(a, Neg(b)).
func (e *Engine) Sub(a, b *Ciphertext) *Ciphertext {
	return e.Add(a, e.Neg(b))
}

// CheckRandomness reports whether randomness was used to produce ct, that is
// C1 == randomness·G. It does not require decryption.
func (e *Engine) CheckRandomness(ct *Ciphertext, randomness *big.Int) bool {
	check := e.curve.New()
	check.ScalarBaseMult(randomness)
	return check.Equal(ct.C1)
}

// NewCiphertext returns an identity ciphertext on the engine curve.
func (e *Engine) NewCiphertext() *Ciphertext {
	return NewCiphertext(e.curve)
}
