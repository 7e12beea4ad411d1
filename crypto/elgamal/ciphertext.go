package elgamal

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/field"
)

const (
	// sizes in bytes needed to serialize a Ciphertext
	sizeCoord      = 32
	sizePoint      = 2 * sizeCoord
	SerializedSize = 2 * sizePoint

	// NumFieldElements is the number of field elements of a ciphertext as
	// public input: C1.x, C1.y, C2.x, C2.y.
	NumFieldElements = 4
)

var snarkField = field.New("snark", field.SNARKFieldSize())

// Ciphertext represents an ElGamal encrypted message with homomorphic
// properties. It is a wrapper for convenience of the elGamal ciphersystem
// that encapsulates the two points of a ciphertext.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a new Ciphertext on the same curve as the given
// point. Both points are set to the identity element.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Add adds two Ciphertext and stores the result in z, which is also returned.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.Add(x.C1, y.C1)
	z.C2.Add(x.C2, y.C2)
	return z
}

// Set copies x into z.
func (z *Ciphertext) Set(x *Ciphertext) *Ciphertext {
	z.C1.Set(x.C1)
	z.C2.Set(x.C2)
	return z
}

// Clone returns an independent copy of z.
func (z *Ciphertext) Clone() *Ciphertext {
	return NewCiphertext(z.C1).Set(z)
}

// Equal reports whether both ciphertexts have the same points.
func (z *Ciphertext) Equal(x *Ciphertext) bool {
	return z.C1.Equal(x.C1) && z.C2.Equal(x.C2)
}

// IsZero reports whether z is the identity ciphertext.
func (z *Ciphertext) IsZero() bool {
	return ecc.IsZero(z.C1) && ecc.IsZero(z.C2)
}

// FieldElements returns the ciphertext as [C1.x, C1.y, C2.x, C2.y] in TE
// coordinates, the layout used by proof public inputs and contract events.
func (z *Ciphertext) FieldElements() []*big.Int {
	c1x, c1y := z.C1.Point()
	c2x, c2y := z.C2.Point()
	return []*big.Int{c1x, c1y, c2x, c2y}
}

// CiphertextFromFieldElements builds a ciphertext on the curve of the given
// point from [C1.x, C1.y, C2.x, C2.y]. Every element must be canonical in the
// SNARK field and both points must be on the curve and in the prime order
// subgroup, so small order components cannot leak into a running balance.
func CiphertextFromFieldElements(curve ecc.Point, elems []*big.Int) (*Ciphertext, error) {
	if len(elems) != NumFieldElements {
		return nil, fmt.Errorf("%w: expected %d field elements, got %d",
			ErrInvalidCiphertext, NumFieldElements, len(elems))
	}
	for i, e := range elems {
		if err := snarkField.Check(e); err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrInvalidCiphertext, i, err)
		}
	}
	z := &Ciphertext{
		C1: curve.SetPoint(elems[0], elems[1]),
		C2: curve.SetPoint(elems[2], elems[3]),
	}
	if !z.C1.IsOnCurve() || !z.C2.IsOnCurve() {
		return nil, fmt.Errorf("%w: point not on curve", ErrInvalidCiphertext)
	}
	if !z.C1.InSubGroup() || !z.C2.InSubGroup() {
		return nil, fmt.Errorf("%w: point not in the prime order subgroup", ErrInvalidCiphertext)
	}
	return z, nil
}

// Serialize returns a slice of len 4*32 bytes, representing the C1.X, C1.Y,
// C2.X and C2.Y coordinates as little-endian field elements.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	for _, e := range z.FieldElements() {
		buf.Write(arbo.BigIntToBytes(sizeCoord, e))
	}
	return buf.Bytes()
}

// Deserialize reads a ciphertext produced by Serialize into z, keeping the
// curve backend of z.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SerializedSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCiphertext, SerializedSize, len(data))
	}
	elems := make([]*big.Int, NumFieldElements)
	for i := range elems {
		elems[i] = arbo.BytesToBigInt(data[i*sizeCoord : (i+1)*sizeCoord])
	}
	ct, err := CiphertextFromFieldElements(z.C1, elems)
	if err != nil {
		return err
	}
	z.C1, z.C2 = ct.C1, ct.C2
	return nil
}

// String returns a human readable representation of the ciphertext.
func (z *Ciphertext) String() string {
	if z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1.String(), z.C2.String())
}
