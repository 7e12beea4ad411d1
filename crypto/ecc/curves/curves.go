package curves

import (
	"fmt"

	"github.com/encryptederc/eerc-client/crypto/ecc"
	bjj_gnark "github.com/encryptederc/eerc-client/crypto/ecc/bjj_gnark"
	bjj_iden3 "github.com/encryptederc/eerc-client/crypto/ecc/bjj_iden3"
)

const (
	CurveTypeBabyJubJub      = CurveTypeBabyJubJubIden3 // default backend
	CurveTypeBabyJubJubGnark = bjj_gnark.CurveType
	CurveTypeBabyJubJubIden3 = bjj_iden3.CurveType
)

// New creates a new instance of a Point implementation based on the provided
// type string. It panics if the type is not supported.
func New(curveType string) ecc.Point {
	switch curveType {
	case CurveTypeBabyJubJubGnark:
		return bjj_gnark.New()
	case CurveTypeBabyJubJubIden3:
		return bjj_iden3.New()
	default:
		panic(fmt.Sprintf("unsupported curve type: %s", curveType))
	}
}

// IsSupported reports whether New accepts the curve type.
func IsSupported(curveType string) bool {
	return curveType == CurveTypeBabyJubJubGnark || curveType == CurveTypeBabyJubJubIden3
}
