package proof

import (
	"fmt"

	"github.com/iden3/go-rapidsnark/types"
)

const (
	groth16Protocol = "groth16"
	// a circom Groth16 proof is pi_a (3), pi_b (3x2) and pi_c (3) in
	// projective coordinates
	proofElements = 3 + 3*2 + 3
)

// ArtifactFromZKProof flattens a rapidsnark proof as
// [pi_a..., pi_b[0]..., pi_b[1]..., pi_b[2]..., pi_c...].
func ArtifactFromZKProof(p *types.ZKProof) (*Artifact, error) {
	if p == nil || p.Proof == nil {
		return nil, fmt.Errorf("%w: empty proof", ErrProver)
	}
	if len(p.Proof.A) != 3 || len(p.Proof.B) != 3 || len(p.Proof.C) != 3 {
		return nil, fmt.Errorf("%w: unexpected proof shape", ErrProver)
	}
	flat := make([]string, 0, proofElements)
	flat = append(flat, p.Proof.A...)
	for _, b := range p.Proof.B {
		if len(b) != 2 {
			return nil, fmt.Errorf("%w: unexpected proof shape", ErrProver)
		}
		flat = append(flat, b...)
	}
	flat = append(flat, p.Proof.C...)
	return &Artifact{
		Proof:        flat,
		PublicInputs: append([]string{}, p.PubSignals...),
	}, nil
}

// ZKProof rebuilds the rapidsnark representation of the artifact.
func (a *Artifact) ZKProof() (*types.ZKProof, error) {
	if len(a.Proof) != proofElements {
		return nil, fmt.Errorf("expected %d proof elements, got %d", proofElements, len(a.Proof))
	}
	return &types.ZKProof{
		Proof: &types.ProofData{
			A: append([]string{}, a.Proof[0:3]...),
			B: [][]string{
				append([]string{}, a.Proof[3:5]...),
				append([]string{}, a.Proof[5:7]...),
				append([]string{}, a.Proof[7:9]...),
			},
			C:        append([]string{}, a.Proof[9:12]...),
			Protocol: groth16Protocol,
		},
		PubSignals: append([]string{}, a.PublicInputs...),
	}, nil
}

// Matches reports whether the artifact proves the public inputs of req.
func (a *Artifact) Matches(req *Request) bool {
	expected := req.PublicInputStrings()
	if len(expected) != len(a.PublicInputs) {
		return false
	}
	for i := range expected {
		if expected[i] != a.PublicInputs[i] {
			return false
		}
	}
	return true
}
