package elgamal

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"

	"github.com/encryptederc/eerc-client/crypto/ecc/curves"
)

func testCiphertext(c *qt.C, curveType string) (*Engine, *Ciphertext) {
	e := newTestEngine(curveType)
	ct, err := e.Encrypt(big.NewInt(42), e.PublicKey(big.NewInt(4242)), big.NewInt(789))
	c.Assert(err, qt.IsNil)
	return e, ct
}

func assertSamePoints(c *qt.C, a, b *Ciphertext) {
	for i, e := range a.FieldElements() {
		c.Assert(e.Cmp(b.FieldElements()[i]), qt.Equals, 0)
	}
}

func TestNewCiphertext(t *testing.T) {
	c := qt.New(t)
	ct := NewCiphertext(curves.New(curves.CurveTypeBabyJubJub))
	c.Assert(ct.C1, qt.Not(qt.IsNil))
	c.Assert(ct.C2, qt.Not(qt.IsNil))
	c.Assert(ct.IsZero(), qt.IsTrue)
}

func TestCiphertext_SerializeDeserialize(t *testing.T) {
	c := qt.New(t)
	for _, curveType := range []string{curves.CurveTypeBabyJubJubIden3, curves.CurveTypeBabyJubJubGnark} {
		e, ct := testCiphertext(c, curveType)

		serialized := ct.Serialize()
		c.Assert(len(serialized), qt.Equals, SerializedSize)

		deserialized := e.NewCiphertext()
		c.Assert(deserialized.Deserialize(serialized), qt.IsNil)
		assertSamePoints(c, ct, deserialized)
	}
}

func TestCiphertext_DeserializeError(t *testing.T) {
	c := qt.New(t)
	ct := NewCiphertext(curves.New(curves.CurveTypeBabyJubJub))
	err := ct.Deserialize(make([]byte, SerializedSize-1))
	c.Assert(errors.Is(err, ErrInvalidCiphertext), qt.IsTrue)

	// (1, 1) is not on the curve
	data := make([]byte, SerializedSize)
	data[0] = 1
	data[32] = 1
	err = ct.Deserialize(data)
	c.Assert(errors.Is(err, ErrInvalidCiphertext), qt.IsTrue)
}

func TestCiphertextFromFieldElements(t *testing.T) {
	c := qt.New(t)
	e, ct := testCiphertext(c, curves.CurveTypeBabyJubJub)

	got, err := CiphertextFromFieldElements(e.Curve(), ct.FieldElements())
	c.Assert(err, qt.IsNil)
	c.Assert(got.Equal(ct), qt.IsTrue)

	_, err = CiphertextFromFieldElements(e.Curve(), ct.FieldElements()[:3])
	c.Assert(errors.Is(err, ErrInvalidCiphertext), qt.IsTrue)

	outOfField := ct.FieldElements()
	outOfField[0] = new(big.Int).Add(outOfField[0], snarkField.Modulus())
	_, err = CiphertextFromFieldElements(e.Curve(), outOfField)
	c.Assert(errors.Is(err, ErrInvalidCiphertext), qt.IsTrue)
}

func TestCiphertextFromFieldElementsSmallOrder(t *testing.T) {
	c := qt.New(t)
	minusOne := new(big.Int).Sub(snarkField.Modulus(), big.NewInt(1))
	for _, curveType := range []string{curves.CurveTypeBabyJubJubIden3, curves.CurveTypeBabyJubJubGnark} {
		e, ct := testCiphertext(c, curveType)

		// both points (0, 1) and (0, -1): on the curve, C2 of order two
		_, err := CiphertextFromFieldElements(e.Curve(), []*big.Int{
			big.NewInt(0), big.NewInt(1), big.NewInt(0), minusOne,
		})
		c.Assert(err, qt.ErrorIs, ErrInvalidCiphertext)
		c.Assert(err, qt.ErrorMatches, ".*prime order subgroup")

		// a valid C1 with a small order component added
		shifted := e.Curve().New()
		shifted.Add(ct.C1, e.Curve().SetPoint(big.NewInt(0), minusOne))
		x, y := shifted.Point()
		elems := ct.FieldElements()
		elems[0], elems[1] = x, y
		_, err = CiphertextFromFieldElements(e.Curve(), elems)
		c.Assert(err, qt.ErrorIs, ErrInvalidCiphertext)
	}
}

func TestCiphertext_MarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	for _, curveType := range []string{curves.CurveTypeBabyJubJubIden3, curves.CurveTypeBabyJubJubGnark} {
		e, ct := testCiphertext(c, curveType)

		data, err := json.Marshal(ct)
		c.Assert(err, qt.IsNil)

		unmarshaled := e.NewCiphertext()
		c.Assert(json.Unmarshal(data, unmarshaled), qt.IsNil)
		assertSamePoints(c, ct, unmarshaled)
		c.Assert(unmarshaled.C1.Type(), qt.Equals, curveType)
	}

	// unallocated ciphertexts use the default backend
	_, ct := testCiphertext(c, curves.CurveTypeBabyJubJubGnark)
	data, err := json.Marshal(ct)
	c.Assert(err, qt.IsNil)
	var fresh Ciphertext
	c.Assert(json.Unmarshal(data, &fresh), qt.IsNil)
	assertSamePoints(c, ct, &fresh)
}

func TestCiphertext_MarshalUnmarshalCBOR(t *testing.T) {
	c := qt.New(t)
	_, ct := testCiphertext(c, curves.CurveTypeBabyJubJub)

	data, err := cbor.Marshal(ct)
	c.Assert(err, qt.IsNil)

	var unmarshaled Ciphertext
	c.Assert(cbor.Unmarshal(data, &unmarshaled), qt.IsNil)
	c.Assert(unmarshaled.Equal(ct), qt.IsTrue)
}

func TestCiphertext_String(t *testing.T) {
	c := qt.New(t)
	_, ct := testCiphertext(c, curves.CurveTypeBabyJubJub)
	c.Assert(ct.String(), qt.Matches, `\{C1: .+, C2: .+\}`)
	c.Assert(ct.Clone().Equal(ct), qt.IsTrue)
}
