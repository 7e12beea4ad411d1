// Package format converts BabyJubJub coordinates between the iden3 twisted
// Edwards form (TE, a = 168700) and the reduced twisted Edwards form (RTE,
// a = -1) used by gnark-crypto. Only the x coordinate differs: x_rte = x_te·s.
package format

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var (
	modulus = fr.Modulus()

	// scaling factor s such that s² = -168700 mod p
	scalingFactor, _ = new(big.Int).SetString("15527681003928902128179717624703512672403908117992798440346960750464748824729", 10)
	// s⁻¹ mod p
	invScalingFactor, _ = new(big.Int).SetString("1911982854305225074381251344103329931637610209014896889891168275855466657090", 10)
)

// FromTEtoRTE converts a point from TE to RTE coordinates.
func FromTEtoRTE(x, y *big.Int) (*big.Int, *big.Int) {
	xRTE := new(big.Int).Mul(x, scalingFactor)
	xRTE.Mod(xRTE, modulus)
	return xRTE, new(big.Int).Set(y)
}

// FromRTEtoTE converts a point from RTE to TE coordinates.
func FromRTEtoTE(x, y *big.Int) (*big.Int, *big.Int) {
	xTE := new(big.Int).Mul(x, invScalingFactor)
	xTE.Mod(xTE, modulus)
	return xTE, new(big.Int).Set(y)
}
