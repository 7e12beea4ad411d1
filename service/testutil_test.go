package service

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/reconciler"
	"github.com/encryptederc/eerc-client/storage"
)

type testNetwork struct {
	params   *config.Params
	auditor  *account.Keypair
	chain    *MockChain
	storage  *storage.Storage
	monitor  *EventMonitor
	prover   *proof.MockProver
	sentinel *account.Account
}

func newTestNetwork(c *qt.C) *testNetwork {
	params := config.TestnetParams()
	auditor, err := account.NewKeypair(params, big.NewInt(987_654_321))
	c.Assert(err, qt.IsNil)
	params = params.WithAuditor(auditor.PublicKey)

	stg := storage.New(memdb.New())
	c.Cleanup(stg.Close)
	n := &testNetwork{
		params:   params,
		auditor:  auditor,
		chain:    NewMockChain(params).WithVerifier(proof.MockVerifier{}),
		storage:  stg,
		prover:   &proof.MockProver{},
		sentinel: account.NewBurnSentinel(params),
	}
	n.monitor = NewEventMonitor(n.chain, stg, 0)
	n.monitor.AddReconciler(reconciler.New(params, n.sentinel, stg))
	n.monitor.AddReconciler(reconciler.New(params, nil, stg).WithAuditor(auditor))
	return n
}

// wallet creates a local account followed by the monitor.
func (n *testNetwork) wallet(c *qt.C, sk int64, addr string) *Wallet {
	kp, err := account.NewKeypair(n.params, big.NewInt(sk))
	c.Assert(err, qt.IsNil)
	acc := account.NewAccount(n.params, common.HexToAddress(addr), kp)
	n.monitor.AddReconciler(reconciler.New(n.params, acc, n.storage))
	return NewWallet(n.params, acc, n.chain, n.prover, n.storage).WithVerifier(proof.MockVerifier{})
}

func balanceOf(c *qt.C, w *Wallet) int64 {
	b, err := w.Balance()
	c.Assert(err, qt.IsNil)
	return b.Int64()
}
