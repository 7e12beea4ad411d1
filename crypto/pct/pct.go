// Package pct implements the auditor ciphertext attached to every Mint,
// Transfer and Burn: the amount encrypted with the Poseidon duplex cipher
// under an ECDH key shared with the auditor.
//
// A PCT is seven field elements [ct0, ct1, ct2, ct3, authKey.x, authKey.y,
// nonce]. The auditor recovers the shared key as sk·authKey.
package pct

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/field"
	"github.com/encryptederc/eerc-client/crypto/hash/poseidon"
)

const (
	// Size is the number of field elements of a PCT.
	Size = 7
	// ciphertextSize is the Poseidon ciphertext length for a one element
	// message: one rate-3 block plus the authentication tag.
	ciphertextSize = 4
	rate           = 3
	// nonceBits bounds the nonce, which shares a field element with the
	// message length.
	nonceBits = 128
)

var (
	// ErrInvalidPCT is returned for PCTs with the wrong shape or values.
	ErrInvalidPCT = errors.New("invalid auditor ciphertext")
	// ErrAuthentication is returned when the ciphertext tag does not match,
	// usually because the wrong key was used.
	ErrAuthentication = errors.New("auditor ciphertext authentication failed")

	snarkField = field.New("snark", field.SNARKFieldSize())
	nonceLimit = new(big.Int).Lsh(big.NewInt(1), nonceBits)
)

// PCT is the auditor ciphertext.
type PCT [Size]*big.Int

// Elements returns the PCT as a slice of copies, in wire order.
func (p PCT) Elements() []*big.Int {
	out := make([]*big.Int, Size)
	for i, e := range p {
		out[i] = new(big.Int).Set(e)
	}
	return out
}

// Nonce returns the nonce element.
func (p PCT) Nonce() *big.Int {
	return new(big.Int).Set(p[6])
}

// Validate checks every element is a canonical field element and the nonce
// is below 2^128.
func (p PCT) Validate() error {
	for i, e := range p {
		if e == nil {
			return fmt.Errorf("%w: element %d is missing", ErrInvalidPCT, i)
		}
		if err := snarkField.Check(e); err != nil {
			return fmt.Errorf("%w: element %d: %w", ErrInvalidPCT, i, err)
		}
	}
	if p[6].Cmp(nonceLimit) >= 0 {
		return fmt.Errorf("%w: nonce exceeds 128 bits", ErrInvalidPCT)
	}
	return nil
}

// FromElements builds a PCT from seven field elements and validates it.
func FromElements(elems []*big.Int) (PCT, error) {
	var p PCT
	if len(elems) != Size {
		return p, fmt.Errorf("%w: expected %d elements, got %d", ErrInvalidPCT, Size, len(elems))
	}
	for i, e := range elems {
		if e == nil {
			return p, fmt.Errorf("%w: element %d is missing", ErrInvalidPCT, i)
		}
		p[i] = new(big.Int).Set(e)
	}
	return p, p.Validate()
}

// Encrypt encrypts amount for the holder of auditorKey. randomness is the
// ECDH ephemeral scalar (authKey = randomness·G) and nonce must be below
// 2^128. The curve of auditorKey is used for the ECDH.
func Encrypt(amount *big.Int, auditorKey ecc.Point, randomness, nonce *big.Int) (PCT, error) {
	var p PCT
	if err := snarkField.Check(amount); err != nil {
		return p, fmt.Errorf("invalid amount: %w", err)
	}
	if nonce == nil || nonce.Sign() < 0 || nonce.Cmp(nonceLimit) >= 0 {
		return p, fmt.Errorf("%w: nonce must be below 2^128", ErrInvalidPCT)
	}
	if randomness == nil || randomness.Sign() <= 0 {
		return p, fmt.Errorf("%w: randomness must be positive", ErrInvalidPCT)
	}
	authKey := auditorKey.New()
	authKey.ScalarBaseMult(randomness)
	shared := auditorKey.New()
	shared.ScalarMult(auditorKey, randomness)

	ct, err := duplexEncrypt([]*big.Int{amount}, shared, nonce)
	if err != nil {
		return p, err
	}
	ax, ay := authKey.Point()
	copy(p[:ciphertextSize], ct)
	p[4], p[5], p[6] = ax, ay, new(big.Int).Set(nonce)
	return p, nil
}

// Decrypt recovers the amount of p with the auditor private key. The curve is
// given as a prototype point.
func Decrypt(p PCT, privateKey *big.Int, curve ecc.Point) (*big.Int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	authKey := curve.SetPoint(p[4], p[5])
	if !authKey.IsOnCurve() {
		return nil, fmt.Errorf("%w: auth key not on curve", ErrInvalidPCT)
	}
	if !authKey.InSubGroup() {
		return nil, fmt.Errorf("%w: auth key not in the prime order subgroup", ErrInvalidPCT)
	}
	shared := curve.New()
	shared.ScalarMult(authKey, privateKey)

	msg, err := duplexDecrypt(p[:ciphertextSize], shared, p[6], 1)
	if err != nil {
		return nil, err
	}
	return msg[0], nil
}

func initialState(key ecc.Point, nonce *big.Int, length int) [4]*big.Int {
	kx, ky := key.Point()
	domain := new(big.Int).Lsh(big.NewInt(int64(length)), nonceBits)
	domain.Add(domain, nonce)
	return [4]*big.Int{big.NewInt(0), kx, ky, domain}
}

// duplexEncrypt pads msg to a multiple of the rate, absorbs it block by block
// and appends the final squeezed element as authentication tag.
func duplexEncrypt(msg []*big.Int, key ecc.Point, nonce *big.Int) ([]*big.Int, error) {
	padded := make([]*big.Int, 0, len(msg)+rate)
	padded = append(padded, msg...)
	for len(padded)%rate != 0 {
		padded = append(padded, big.NewInt(0))
	}

	state := initialState(key, nonce, len(msg))
	ct := make([]*big.Int, 0, len(padded)+1)
	var err error
	for i := 0; i < len(padded); i += rate {
		if state, err = poseidon.Permute(state); err != nil {
			return nil, err
		}
		for j := 0; j < rate; j++ {
			state[j+1] = snarkField.Add(state[j+1], padded[i+j])
			ct = append(ct, new(big.Int).Set(state[j+1]))
		}
	}
	if state, err = poseidon.Permute(state); err != nil {
		return nil, err
	}
	return append(ct, state[1]), nil
}

func duplexDecrypt(ct []*big.Int, key ecc.Point, nonce *big.Int, length int) ([]*big.Int, error) {
	if len(ct)-1 < length || (len(ct)-1)%rate != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext length", ErrInvalidPCT)
	}
	state := initialState(key, nonce, length)
	msg := make([]*big.Int, 0, len(ct)-1)
	var err error
	for i := 0; i < len(ct)-1; i += rate {
		if state, err = poseidon.Permute(state); err != nil {
			return nil, err
		}
		for j := 0; j < rate; j++ {
			msg = append(msg, snarkField.Sub(ct[i+j], state[j+1]))
			state[j+1] = new(big.Int).Set(ct[i+j])
		}
	}
	// padding must decrypt to zero
	for _, pad := range msg[length:] {
		if pad.Sign() != 0 {
			return nil, ErrAuthentication
		}
	}
	if state, err = poseidon.Permute(state); err != nil {
		return nil, err
	}
	if state[1].Cmp(ct[len(ct)-1]) != 0 {
		return nil, ErrAuthentication
	}
	return msg[:length], nil
}
