package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/types"
)

const CurveType = "bjj_iden3"

// BJJ wraps an iden3 BabyJubJub point in affine TE coordinates.
type BJJ struct {
	inner *babyjub.Point
}

// New creates a new BJJ point (identity element by default).
func New() ecc.Point {
	return &BJJ{inner: babyjub.NewPoint()}
}

func (g *BJJ) New() ecc.Point {
	return New()
}

func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(babyjub.SubOrder)
}

func (g *BJJ) Add(a, b ecc.Point) {
	g.inner = g.inner.Projective().Add(a.(*BJJ).inner.Projective(), b.(*BJJ).inner.Projective()).Affine()
}

// ScalarMult sets g to scalar·a. Mul returns a fresh point instead of
// updating its receiver, so the result is reassigned.
func (g *BJJ) ScalarMult(a ecc.Point, scalar *big.Int) {
	g.inner = babyjub.NewPoint().Mul(scalar, a.(*BJJ).inner)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.inner = babyjub.NewPoint().Mul(scalar, babyjub.B8)
}

func (g *BJJ) Marshal() []byte {
	b := g.inner.Compress()
	return b[:]
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != 32 {
		return fmt.Errorf("invalid compressed point length %d", len(buf))
	}
	var b32 [32]byte
	copy(b32[:], buf)
	p, err := babyjub.NewPoint().Decompress(b32)
	if err != nil {
		return err
	}
	g.inner = p
	return nil
}

// MarshalJSON serializes the point as {"x": "...", "y": "..."}.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	return json.Marshal(&ecc.PointEC{
		X: types.BigInt(*g.inner.X),
		Y: types.BigInt(*g.inner.Y),
	})
}

func (g *BJJ) UnmarshalJSON(buf []byte) error {
	var p ecc.PointEC
	if err := json.Unmarshal(buf, &p); err != nil {
		return err
	}
	g.inner = &babyjub.Point{X: p.X.MathBigInt(), Y: p.Y.MathBigInt()}
	return nil
}

func (g *BJJ) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]*big.Int{g.inner.X, g.inner.Y})
}

func (g *BJJ) UnmarshalCBOR(buf []byte) error {
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	g.inner = &babyjub.Point{X: coords[0], Y: coords[1]}
	return nil
}

func (g *BJJ) Equal(a ecc.Point) bool {
	o := a.(*BJJ).inner
	return g.inner.X.Cmp(o.X) == 0 && g.inner.Y.Cmp(o.Y) == 0
}

// Neg sets g to (-x, y).
func (g *BJJ) Neg(a ecc.Point) {
	o := a.(*BJJ).inner
	x := new(big.Int).Neg(o.X)
	x.Mod(x, constants.Q)
	g.inner = &babyjub.Point{X: x, Y: new(big.Int).Set(o.Y)}
}

func (g *BJJ) SetZero() {
	g.inner = babyjub.NewPoint()
}

func (g *BJJ) Set(a ecc.Point) {
	o := a.(*BJJ).inner
	g.inner = &babyjub.Point{X: new(big.Int).Set(o.X), Y: new(big.Int).Set(o.Y)}
}

func (g *BJJ) SetGenerator() {
	g.inner = &babyjub.Point{X: new(big.Int).Set(babyjub.B8.X), Y: new(big.Int).Set(babyjub.B8.Y)}
}

func (g *BJJ) IsOnCurve() bool {
	return g.inner.InCurve()
}

// InSubGroup reports whether the point belongs to the prime order subgroup.
func (g *BJJ) InSubGroup() bool {
	return g.inner.InSubGroup()
}

func (g *BJJ) String() string {
	return fmt.Sprintf("%s,%s", g.inner.X.String(), g.inner.Y.String())
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	return new(big.Int).Set(g.inner.X), new(big.Int).Set(g.inner.Y)
}

func (g *BJJ) SetPoint(x, y *big.Int) ecc.Point {
	return &BJJ{inner: &babyjub.Point{X: new(big.Int).Set(x), Y: new(big.Int).Set(y)}}
}

func (g *BJJ) Type() string {
	return CurveType
}
