// Package rapidsnark proves and verifies eERC requests with circom
// artifacts, using the iden3 witness calculator and the rapidsnark Groth16
// prover.
package rapidsnark

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/verifier"
	"github.com/iden3/go-rapidsnark/witness"

	"github.com/encryptederc/eerc-client/log"
	"github.com/encryptederc/eerc-client/proof"
)

// Artifacts are the circuit files of one proof type.
type Artifacts struct {
	Wasm            []byte
	ProvingKey      []byte
	VerificationKey []byte
}

// Hash returns the hex sha256 of the proving key, logged to identify the
// circuit version in use.
func (a *Artifacts) Hash() string {
	h := sha256.Sum256(a.ProvingKey)
	return hex.EncodeToString(h[:])
}

// Prover implements proof.Prover and proof.Verifier.
type Prover struct {
	artifacts map[proof.Type]*Artifacts
}

// New returns a Prover for the given artifacts.
func New(artifacts map[proof.Type]*Artifacts) *Prover {
	return &Prover{artifacts: artifacts}
}

// Types are the proof types backed by circuits.
var Types = []proof.Type{proof.TypeRegister, proof.TypeMint, proof.TypeTransfer, proof.TypeBurn}

// ReadArtifacts reads <type>.wasm, <type>.zkey and <type>_vkey.json from
// dir.
func ReadArtifacts(dir string, typ proof.Type) (*Artifacts, error) {
	a := &Artifacts{}
	files := map[string]*[]byte{
		typ.String() + ".wasm":      &a.Wasm,
		typ.String() + ".zkey":      &a.ProvingKey,
		typ.String() + "_vkey.json": &a.VerificationKey,
	}
	for name, dst := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("cannot load circuit artifact: %w", err)
		}
		*dst = data
	}
	log.Debugw("circuit artifacts loaded", "type", typ.String(), "zkeyHash", a.Hash())
	return a, nil
}

// LoadDir reads the artifacts of every proof type from dir.
func LoadDir(dir string) (*Prover, error) {
	artifacts := make(map[proof.Type]*Artifacts)
	for _, typ := range Types {
		a, err := ReadArtifacts(dir, typ)
		if err != nil {
			return nil, err
		}
		artifacts[typ] = a
	}
	return New(artifacts), nil
}

type proveResult struct {
	artifact *proof.Artifact
	err      error
}

// Prove computes the witness of req and the Groth16 proof. The prover call
// cannot be interrupted; if ctx ends first, Prove returns and the result is
// discarded.
func (p *Prover) Prove(ctx context.Context, req *proof.Request) (*proof.Artifact, error) {
	a, ok := p.artifacts[req.Type]
	if !ok {
		return nil, fmt.Errorf("%w: no artifacts for %s", proof.ErrProver, req.Type)
	}
	inputs, err := json.Marshal(req.Signals)
	if err != nil {
		return nil, fmt.Errorf("%w: circom inputs: %w", proof.ErrProver, err)
	}
	done := make(chan proveResult, 1)
	go func() {
		artifact, err := prove(a, inputs)
		done <- proveResult{artifact, err}
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", proof.ErrProver, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", proof.ErrProver, res.err)
		}
		if !res.artifact.Matches(req) {
			return nil, fmt.Errorf("%w: public signals do not match the request", proof.ErrProver)
		}
		return res.artifact, nil
	}
}

func prove(a *Artifacts, inputs []byte) (*proof.Artifact, error) {
	finalInputs, err := witness.ParseInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("circom inputs: %w", err)
	}
	// instance witness calculator
	calc, err := witness.NewCircom2WitnessCalculator(a.Wasm, true)
	if err != nil {
		return nil, fmt.Errorf("instance witness calculator: %w", err)
	}
	w, err := calc.CalculateWTNSBin(finalInputs, true)
	if err != nil {
		return nil, fmt.Errorf("calculate witness: %w", err)
	}
	zkProof, err := prover.Groth16Prover(a.ProvingKey, w)
	if err != nil {
		return nil, fmt.Errorf("generate proof: %w", err)
	}
	return proof.ArtifactFromZKProof(zkProof)
}

// Verify checks artifact against the verification key of typ.
func (p *Prover) Verify(_ context.Context, typ proof.Type, artifact *proof.Artifact) error {
	a, ok := p.artifacts[typ]
	if !ok {
		return fmt.Errorf("no verification key for %s", typ)
	}
	zkProof, err := artifact.ZKProof()
	if err != nil {
		return err
	}
	return verifier.VerifyGroth16(*zkProof, a.VerificationKey)
}
