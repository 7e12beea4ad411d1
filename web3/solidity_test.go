package web3

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/proof"
)

func TestSolidityProof(t *testing.T) {
	c := qt.New(t)
	a := &proof.Artifact{Proof: []string{"1", "2", "1", "3", "4", "5", "6", "1", "0", "7", "8", "1"}}
	sol, err := SolidityProof(a)
	c.Assert(err, qt.IsNil)
	var got []int64
	for _, v := range sol {
		got = append(got, v.Int64())
	}
	c.Assert(got, qt.DeepEquals, []int64{1, 2, 4, 3, 6, 5, 7, 8})

	_, err = SolidityProof(&proof.Artifact{Proof: []string{"1"}})
	c.Assert(err, qt.ErrorMatches, "unexpected proof size")
	a.Proof[4] = "x"
	_, err = SolidityProof(a)
	c.Assert(err, qt.ErrorMatches, `invalid proof element "x"`)
}

func TestNewTransaction(t *testing.T) {
	c := qt.New(t)
	params := config.TestnetParams()
	auditorKey := params.NewPoint()
	auditorKey.ScalarBaseMult(big.NewInt(99))
	params = params.WithAuditor(auditorKey)

	kp, err := account.NewKeypair(params, big.NewInt(7))
	c.Assert(err, qt.IsNil)
	acc := account.NewAccount(params, alice, kp)
	req, err := proof.NewBuilder(params).Build(context.Background(), proof.TypeMint, acc, proof.Operation{Amount: big.NewInt(5)})
	c.Assert(err, qt.IsNil)

	prover := &proof.MockProver{}
	artifact, err := prover.Prove(context.Background(), req)
	c.Assert(err, qt.IsNil)
	tx, err := NewTransaction(req, artifact)
	c.Assert(err, qt.IsNil)
	c.Assert(tx.Type, qt.Equals, proof.TypeMint)
	c.Assert(tx.From, qt.Equals, alice)
	c.Assert(tx.Recipient, qt.Equals, alice)
	c.Assert(tx.Inputs, qt.HasLen, proof.MintInputs)
	c.Assert(tx.RequestID, qt.Equals, req.ID.String())

	artifact.PublicInputs[0] = "1"
	_, err = NewTransaction(req, artifact)
	c.Assert(err, qt.ErrorMatches, "artifact does not prove request .*")
	c.Assert(tx.Recipient, qt.Not(qt.Equals), common.Address{})
}
