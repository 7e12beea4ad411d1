// Package poseidon wraps the iden3 Poseidon implementation with the hashing
// conventions of the proof circuits.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

const (
	// maxChunk is the widest Poseidon instance available.
	maxChunk = 16
	// maxInputs bounds MultiPoseidon to a single level of chunk hashes.
	maxInputs = maxChunk * maxChunk
)

// MultiPoseidon hashes up to 256 field elements. Up to 16 inputs it is a
// plain Poseidon hash; longer inputs are hashed in chunks of 16 and the chunk
// hashes are hashed together.
func MultiPoseidon(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > maxInputs {
		return nil, fmt.Errorf("too many inputs: %d", len(inputs))
	} else if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	if len(inputs) <= maxChunk {
		return poseidon.Hash(inputs)
	}
	hashes := make([]*big.Int, 0, (len(inputs)+maxChunk-1)/maxChunk)
	for start := 0; start < len(inputs); start += maxChunk {
		end := min(start+maxChunk, len(inputs))
		hash, err := poseidon.Hash(inputs[start:end])
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return poseidon.Hash(hashes)
}

// Permute applies the Poseidon permutation of width 4 to state and returns
// the full new state. It is the building block of the Poseidon duplex
// encryption.
func Permute(state [4]*big.Int) ([4]*big.Int, error) {
	out, err := poseidon.HashWithStateEx(state[1:], state[0], len(state))
	if err != nil {
		return [4]*big.Int{}, err
	}
	var next [4]*big.Int
	copy(next[:], out)
	return next, nil
}
