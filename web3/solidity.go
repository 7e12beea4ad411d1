package web3

import (
	"fmt"
	"math/big"

	"github.com/encryptederc/eerc-client/proof"
)

// SolidityProofSize is the number of elements of a Groth16 proof as taken by
// the Solidity verifiers: a (2), b (2x2) and c (2).
const SolidityProofSize = 8

// artifactIndexes maps the flattened circom proof [a(3), b(3x2), c(3)] to
// the Solidity layout, which drops the projective coordinates and swaps the
// G2 coefficients.
var artifactIndexes = [SolidityProofSize]int{0, 1, 4, 3, 6, 5, 9, 10}

// SolidityProof converts a proof artifact to the Solidity layout.
func SolidityProof(a *proof.Artifact) ([SolidityProofSize]*big.Int, error) {
	var out [SolidityProofSize]*big.Int
	if a == nil || len(a.Proof) != 12 {
		return out, fmt.Errorf("unexpected proof size")
	}
	for i, idx := range artifactIndexes {
		v, ok := new(big.Int).SetString(a.Proof[idx], 10)
		if !ok {
			return out, fmt.Errorf("invalid proof element %q", a.Proof[idx])
		}
		out[i] = v
	}
	return out, nil
}
