package poseidon

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/poseidon"
)

func bigRange(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = big.NewInt(int64(i + 1))
	}
	return out
}

func TestMultiPoseidon(t *testing.T) {
	c := qt.New(t)

	short := bigRange(3)
	h, err := MultiPoseidon(short...)
	c.Assert(err, qt.IsNil)
	expected, err := poseidon.Hash(short)
	c.Assert(err, qt.IsNil)
	c.Assert(h.Cmp(expected), qt.Equals, 0)

	long := bigRange(20)
	h, err = MultiPoseidon(long...)
	c.Assert(err, qt.IsNil)
	first, err := poseidon.Hash(long[:16])
	c.Assert(err, qt.IsNil)
	second, err := poseidon.Hash(long[16:])
	c.Assert(err, qt.IsNil)
	expected, err = poseidon.Hash([]*big.Int{first, second})
	c.Assert(err, qt.IsNil)
	c.Assert(h.Cmp(expected), qt.Equals, 0)

	_, err = MultiPoseidon()
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = MultiPoseidon(bigRange(257)...)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestPermuteMatchesHash(t *testing.T) {
	c := qt.New(t)
	in := bigRange(3)
	state, err := Permute([4]*big.Int{big.NewInt(0), in[0], in[1], in[2]})
	c.Assert(err, qt.IsNil)

	// Poseidon hash is the first element of the permuted state with zero
	// capacity.
	expected, err := poseidon.Hash(in)
	c.Assert(err, qt.IsNil)
	c.Assert(state[0].Cmp(expected), qt.Equals, 0)
}
