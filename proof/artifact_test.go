package proof

import (
	"context"
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-rapidsnark/types"
)

func TestArtifactZKProofConversion(t *testing.T) {
	c := qt.New(t)
	zk := &types.ZKProof{
		Proof: &types.ProofData{
			A:        []string{"1", "2", "1"},
			B:        [][]string{{"3", "4"}, {"5", "6"}, {"1", "0"}},
			C:        []string{"7", "8", "1"},
			Protocol: "groth16",
		},
		PubSignals: []string{"10", "11"},
	}
	a, err := ArtifactFromZKProof(zk)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Proof, qt.DeepEquals, []string{"1", "2", "1", "3", "4", "5", "6", "1", "0", "7", "8", "1"})

	back, err := a.ZKProof()
	c.Assert(err, qt.IsNil)
	c.Assert(back, qt.DeepEquals, zk)

	_, err = ArtifactFromZKProof(&types.ZKProof{Proof: &types.ProofData{A: []string{"1"}}})
	c.Assert(errors.Is(err, ErrProver), qt.IsTrue)
	_, err = (&Artifact{Proof: []string{"1"}}).ZKProof()
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestMockProver(t *testing.T) {
	c := qt.New(t)
	req := &Request{PublicInputs: []*big.Int{big.NewInt(1), big.NewInt(2)}}
	prover := &MockProver{}

	a, err := prover.Prove(context.Background(), req)
	c.Assert(err, qt.IsNil)
	c.Assert(a.Matches(req), qt.IsTrue)
	c.Assert(MockVerifier{}.Verify(context.Background(), TypeMint, a), qt.IsNil)
	c.Assert(prover.Calls(), qt.Equals, int64(1))

	a.PublicInputs[0] = "3"
	c.Assert(MockVerifier{}.Verify(context.Background(), TypeMint, a), qt.Not(qt.IsNil))

	prover.Err = errors.New("out of memory")
	_, err = prover.Prove(context.Background(), req)
	c.Assert(errors.Is(err, ErrProver), qt.IsTrue)
}

func TestRequestSingleUse(t *testing.T) {
	c := qt.New(t)
	req := &Request{}
	c.Assert(req.MarkUsed(), qt.IsNil)
	c.Assert(req.Used(), qt.IsTrue)
	c.Assert(errors.Is(req.MarkUsed(), ErrRequestUsed), qt.IsTrue)
}
