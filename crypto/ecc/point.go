package ecc

import (
	"math/big"

	"github.com/encryptederc/eerc-client/types"
)

// Point defines the operations on BabyJubJub group elements used by the
// encryption engine. Coordinates exchanged through Point and SetPoint are
// always in the iden3 twisted Edwards form (a = 168700, d = 168696), which is
// the form consumed by the circuits and the contracts.
type Point interface {
	// New returns a new point set to the identity element.
	New() Point

	// Order returns the order of the subgroup generated by the base point.
	Order() *big.Int

	// Add sets the receiver to a + b.
	Add(a, b Point)

	// ScalarMult sets the receiver to scalar·a.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult sets the receiver to scalar·G.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the point into its compressed form.
	Marshal() []byte

	// Unmarshal deserializes a compressed point.
	Unmarshal(buf []byte) error

	// Equal reports whether both points are the same group element.
	Equal(a Point) bool

	// Neg sets the receiver to -a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element (0, 1).
	SetZero()

	// Set copies a into the receiver.
	Set(a Point)

	// SetGenerator sets the receiver to the base point.
	SetGenerator()

	// IsOnCurve reports whether the point satisfies the curve equation.
	IsOnCurve() bool

	// InSubGroup reports whether the point is on the curve and in the prime
	// order subgroup generated by the base point.
	InSubGroup() bool

	// String returns the "x,y" decimal representation.
	String() string

	// Point returns the X and Y coordinates.
	Point() (*big.Int, *big.Int)

	// SetPoint returns a new point with the given coordinates. It does not
	// check the point is on the curve.
	SetPoint(x, y *big.Int) Point

	// Type returns the backend identifier.
	Type() string
}

// PointEC is the JSON representation of a point.
type PointEC struct {
	X types.BigInt `json:"x"`
	Y types.BigInt `json:"y"`
}

// IsZero reports whether p is the identity element.
func IsZero(p Point) bool {
	x, y := p.Point()
	return x.Sign() == 0 && y.Cmp(big.NewInt(1)) == 0
}
