package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/crypto/ecc/format"
	"github.com/encryptederc/eerc-client/types"
)

const CurveType = "bjj_gnark"

var params = twistededwards.GetEdwardsCurve()

// BJJ is the affine representation of the BabyJubJub group element. The inner
// point is kept in RTE coordinates; Point and SetPoint translate to the TE form.
type BJJ struct {
	inner *twistededwards.PointAffine
}

// New creates a new BJJ point (identity element by default).
func New() ecc.Point {
	p := &BJJ{inner: new(twistededwards.PointAffine)}
	p.SetZero()
	return p
}

func (g *BJJ) New() ecc.Point {
	return New()
}

// Order returns the order of the BabyJubJub curve subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&params.Order)
}

func (g *BJJ) Add(a, b ecc.Point) {
	g.inner.Add(a.(*BJJ).inner, b.(*BJJ).inner)
}

func (g *BJJ) ScalarMult(a ecc.Point, scalar *big.Int) {
	g.inner.ScalarMultiplication(a.(*BJJ).inner, scalar)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.inner.ScalarMultiplication(&params.Base, scalar)
}

func (g *BJJ) Equal(a ecc.Point) bool {
	return g.inner.Equal(a.(*BJJ).inner)
}

func (g *BJJ) Neg(a ecc.Point) {
	g.inner.Neg(a.(*BJJ).inner)
}

// SetZero sets the current point to the identity element (0, 1).
func (g *BJJ) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

func (g *BJJ) Set(a ecc.Point) {
	g.inner.Set(a.(*BJJ).inner)
}

func (g *BJJ) SetGenerator() {
	g.inner.Set(&params.Base)
}

func (g *BJJ) IsOnCurve() bool {
	return g.inner.IsOnCurve()
}

// InSubGroup reports whether order·P is the identity.
func (g *BJJ) InSubGroup() bool {
	if !g.inner.IsOnCurve() {
		return false
	}
	var p twistededwards.PointAffine
	p.ScalarMultiplication(g.inner, &params.Order)
	return p.X.IsZero() && p.Y.IsOne()
}

// String returns the TE coordinates of the point.
func (g *BJJ) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

// Marshal returns the gnark compressed encoding (RTE coordinates).
func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

func (g *BJJ) Unmarshal(buf []byte) error {
	return g.inner.Unmarshal(buf)
}

func (g *BJJ) MarshalJSON() ([]byte, error) {
	x, y := g.Point()
	return json.Marshal(&ecc.PointEC{X: types.BigInt(*x), Y: types.BigInt(*y)})
}

func (g *BJJ) UnmarshalJSON(buf []byte) error {
	var p ecc.PointEC
	if err := json.Unmarshal(buf, &p); err != nil {
		return err
	}
	g.inner = g.SetPoint(p.X.MathBigInt(), p.Y.MathBigInt()).(*BJJ).inner
	return nil
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return format.FromRTEtoTE(x, y)
}

func (g *BJJ) SetPoint(x, y *big.Int) ecc.Point {
	xRTE, yRTE := format.FromTEtoRTE(x, y)
	p := &BJJ{inner: new(twistededwards.PointAffine)}
	p.inner.X.SetBigInt(xRTE)
	p.inner.Y.SetBigInt(yRTE)
	return p
}

func (g *BJJ) Type() string {
	return CurveType
}
