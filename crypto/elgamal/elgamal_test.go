package elgamal

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/encryptederc/eerc-client/crypto/ecc/curves"
	"github.com/encryptederc/eerc-client/crypto/field"
)

const testMaxAmount = 1 << 16

func newTestEngine(curveType string) *Engine {
	return New(curves.New(curveType), testMaxAmount)
}

func newKey(c *qt.C, e *Engine) *big.Int {
	sk, err := e.RandomScalar()
	c.Assert(err, qt.IsNil)
	return sk
}

func TestEncryptDecrypt(t *testing.T) {
	for _, curveType := range []string{curves.CurveTypeBabyJubJubIden3, curves.CurveTypeBabyJubJubGnark} {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)
			e := newTestEngine(curveType)
			sk := newKey(c, e)
			pk := e.PublicKey(sk)

			for _, m := range []uint64{0, 1, 42, 999, testMaxAmount} {
				msg := new(big.Int).SetUint64(m)
				ct, r, err := e.EncryptRandom(msg, pk)
				c.Assert(err, qt.IsNil)
				c.Assert(e.CheckRandomness(ct, r), qt.IsTrue)

				got, err := e.Decrypt(ct, sk)
				c.Assert(err, qt.IsNil)
				c.Assert(got.Uint64(), qt.Equals, m)

				// M = m·G
				expected := e.Curve()
				expected.ScalarBaseMult(msg)
				c.Assert(e.DecryptPoint(ct, sk).Equal(expected), qt.IsTrue)
			}
		})
	}
}

func TestDecryptOutOfRange(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(curves.CurveTypeBabyJubJub)
	sk := newKey(c, e)

	ct, _, err := e.EncryptRandom(big.NewInt(testMaxAmount+1), e.PublicKey(sk))
	c.Assert(err, qt.IsNil)
	_, err = e.Decrypt(ct, sk)
	c.Assert(errors.Is(err, ErrDecryptionRange), qt.IsTrue)

	// a ciphertext of a negative amount cannot be recovered either
	five, _, err := e.EncryptRandom(big.NewInt(5), e.PublicKey(sk))
	c.Assert(err, qt.IsNil)
	_, err = e.Decrypt(e.Neg(five), sk)
	c.Assert(errors.Is(err, ErrDecryptionRange), qt.IsTrue)
}

func TestEncryptRejectsInvalidRandomness(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(curves.CurveTypeBabyJubJub)
	pk := e.PublicKey(big.NewInt(7))

	_, err := e.Encrypt(big.NewInt(1), pk, big.NewInt(0))
	c.Assert(errors.Is(err, ErrInvalidRandomness), qt.IsTrue)
	_, err = e.Encrypt(big.NewInt(1), pk, nil)
	c.Assert(errors.Is(err, ErrInvalidRandomness), qt.IsTrue)
	_, err = e.Encrypt(big.NewInt(1), pk, field.SubGroupOrder())
	c.Assert(errors.Is(err, ErrInvalidRandomness), qt.IsTrue)
	_, err = e.Encrypt(big.NewInt(-1), pk, big.NewInt(3))
	c.Assert(errors.Is(err, field.ErrOutOfRange), qt.IsTrue)
}

func TestEncryptDeterministicWithRandomness(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(curves.CurveTypeBabyJubJub)
	pk := e.PublicKey(big.NewInt(1234))

	ct1, err := e.Encrypt(big.NewInt(10), pk, big.NewInt(789))
	c.Assert(err, qt.IsNil)
	ct2, err := e.Encrypt(big.NewInt(10), pk, big.NewInt(789))
	c.Assert(err, qt.IsNil)
	c.Assert(ct1.Equal(ct2), qt.IsTrue)
}

func TestHomomorphism(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(curves.CurveTypeBabyJubJub)
	sk := newKey(c, e)
	pk := e.PublicKey(sk)

	a, err := e.Encrypt(big.NewInt(100), pk, big.NewInt(11))
	c.Assert(err, qt.IsNil)
	b, err := e.Encrypt(big.NewInt(40), pk, big.NewInt(22))
	c.Assert(err, qt.IsNil)

	sum, err := e.Decrypt(e.Add(a, b), sk)
	c.Assert(err, qt.IsNil)
	c.Assert(sum.Int64(), qt.Equals, int64(140))

	diff, err := e.Decrypt(e.Sub(a, b), sk)
	c.Assert(err, qt.IsNil)
	c.Assert(diff.Int64(), qt.Equals, int64(60))

	// inputs are not modified
	got, err := e.Decrypt(a, sk)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Int64(), qt.Equals, int64(100))

	// adding to the zero ciphertext keeps the plaintext
	fromZero, err := e.Decrypt(e.Add(e.Zero(), b), sk)
	c.Assert(err, qt.IsNil)
	c.Assert(fromZero.Int64(), qt.Equals, int64(40))

	zero, err := e.Decrypt(e.Zero(), sk)
	c.Assert(err, qt.IsNil)
	c.Assert(zero.Sign(), qt.Equals, 0)
	c.Assert(e.Zero().IsZero(), qt.IsTrue)
}

func TestConcurrentDecrypt(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(curves.CurveTypeBabyJubJub)
	sk := newKey(c, e)
	pk := e.PublicKey(sk)

	var wg sync.WaitGroup
	for i := int64(0); i < 8; i++ {
		ct, err := e.Encrypt(big.NewInt(i*1000), pk, big.NewInt(i+1))
		c.Assert(err, qt.IsNil)
		wg.Add(1)
		go func(want int64) {
			defer wg.Done()
			got, err := e.Decrypt(ct, sk)
			if err != nil || got.Int64() != want {
				t.Errorf("decrypt %d: got %v, %v", want, got, err)
			}
		}(i * 1000)
	}
	wg.Wait()
}
