package elgamal

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/ecc/curves"
	"github.com/encryptederc/eerc-client/types"
)

type ciphertextJSON struct {
	C1 ecc.PointEC `json:"c1"`
	C2 ecc.PointEC `json:"c2"`
}

func pointToEC(p ecc.Point) ecc.PointEC {
	x, y := p.Point()
	return ecc.PointEC{X: types.BigInt(*x), Y: types.BigInt(*y)}
}

// curveOrDefault returns the curve backend already used by z, or the default
// one if z has not been allocated.
func (z *Ciphertext) curveOrDefault() ecc.Point {
	if z.C1 != nil {
		return z.C1
	}
	return curves.New(curves.CurveTypeBabyJubJub)
}

// MarshalJSON serializes the ciphertext as {"c1":{"x","y"},"c2":{"x","y"}}
// with TE coordinates as decimal strings.
func (z *Ciphertext) MarshalJSON() ([]byte, error) {
	return json.Marshal(&ciphertextJSON{C1: pointToEC(z.C1), C2: pointToEC(z.C2)})
}

// UnmarshalJSON deserializes and validates a ciphertext. If z is not
// allocated, the default curve backend is used.
func (z *Ciphertext) UnmarshalJSON(buf []byte) error {
	var tmp ciphertextJSON
	if err := json.Unmarshal(buf, &tmp); err != nil {
		return fmt.Errorf("failed to unmarshal ciphertext: %w", err)
	}
	ct, err := CiphertextFromFieldElements(z.curveOrDefault(), []*big.Int{
		tmp.C1.X.MathBigInt(), tmp.C1.Y.MathBigInt(),
		tmp.C2.X.MathBigInt(), tmp.C2.Y.MathBigInt(),
	})
	if err != nil {
		return err
	}
	z.C1, z.C2 = ct.C1, ct.C2
	return nil
}

// MarshalCBOR serializes the ciphertext as an array of its four field
// elements.
func (z *Ciphertext) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(z.FieldElements())
}

// UnmarshalCBOR deserializes and validates a ciphertext encoded by
// MarshalCBOR.
func (z *Ciphertext) UnmarshalCBOR(buf []byte) error {
	var elems []*big.Int
	if err := cbor.Unmarshal(buf, &elems); err != nil {
		return fmt.Errorf("failed to unmarshal ciphertext: %w", err)
	}
	ct, err := CiphertextFromFieldElements(z.curveOrDefault(), elems)
	if err != nil {
		return err
	}
	z.C1, z.C2 = ct.C1, ct.C2
	return nil
}
