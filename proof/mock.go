package proof

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/encryptederc/eerc-client/crypto/hash/poseidon"
)

// MockProver produces fake proofs bound to the public inputs. It is used by
// the in-memory mode and by tests; MockVerifier accepts its proofs.
type MockProver struct {
	calls atomic.Int64
	// Err makes Prove fail when set.
	Err error
}

// Prove returns a proof derived from the Poseidon hash of the public inputs.
func (m *MockProver) Prove(ctx context.Context, req *Request) (*Artifact, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProver, err)
	}
	if m.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProver, m.Err)
	}
	proof, err := mockProof(req.PublicInputStrings())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProver, err)
	}
	return &Artifact{Proof: proof, PublicInputs: req.PublicInputStrings()}, nil
}

// Calls returns how many times Prove was called.
func (m *MockProver) Calls() int64 {
	return m.calls.Load()
}

// MockVerifier verifies proofs produced by MockProver.
type MockVerifier struct{}

func (MockVerifier) Verify(_ context.Context, _ Type, artifact *Artifact) error {
	expected, err := mockProof(artifact.PublicInputs)
	if err != nil {
		return err
	}
	if len(expected) != len(artifact.Proof) {
		return fmt.Errorf("invalid proof length")
	}
	for i := range expected {
		if expected[i] != artifact.Proof[i] {
			return fmt.Errorf("invalid proof")
		}
	}
	return nil
}

func mockProof(publicInputs []string) ([]string, error) {
	inputs := make([]*big.Int, len(publicInputs))
	for i, s := range publicInputs {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid public input %q", s)
		}
		inputs[i] = v
	}
	h, err := poseidon.MultiPoseidon(inputs...)
	if err != nil {
		return nil, err
	}
	proof := make([]string, proofElements)
	for i := range proof {
		proof[i] = new(big.Int).Add(h, big.NewInt(int64(i))).String()
	}
	return proof, nil
}
