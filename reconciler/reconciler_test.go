package reconciler

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/crypto/field"
	"github.com/encryptederc/eerc-client/proof"
	"github.com/encryptederc/eerc-client/storage"
	"github.com/encryptederc/eerc-client/web3"
)

type fixture struct {
	params  *config.Params
	auditor *account.Keypair
	builder *proof.Builder
	alice   *account.Account
	bob     *account.Account
	stg     *storage.Storage
	block   uint64
}

func newFixture(c *qt.C) *fixture {
	params := config.TestnetParams()
	auditor, err := account.NewKeypair(params, big.NewInt(1_000_003))
	c.Assert(err, qt.IsNil)
	params = params.WithAuditor(auditor.PublicKey)
	f := &fixture{
		params:  params,
		auditor: auditor,
		builder: proof.NewBuilder(params),
		stg:     storage.New(memdb.New()),
	}
	f.alice = f.newAccount(c, 111, 0xa1)
	f.bob = f.newAccount(c, 222, 0xb0)
	return f
}

func (f *fixture) newAccount(c *qt.C, sk int64, addr byte) *account.Account {
	kp, err := account.NewKeypair(f.params, big.NewInt(sk))
	c.Assert(err, qt.IsNil)
	return account.NewAccount(f.params, common.Address{addr}, kp)
}

// event turns a built request into the event the contract would emit for it.
func (f *fixture) event(c *qt.C, req *proof.Request) *web3.Event {
	f.block++
	out := req.Outputs
	ev := &web3.Event{
		AuditorPCT:     out.PCT.Elements(),
		AuditorAddress: common.Address{0xad},
		RecipientDelta: out.RecipientDelta.FieldElements(),
		BlockNumber:    f.block,
		TxHash:         common.BigToHash(new(big.Int).SetUint64(f.block)),
	}
	switch req.Type {
	case proof.TypeMint:
		ev.Kind, ev.User = web3.EventMint, out.Recipient
	case proof.TypeTransfer:
		ev.Kind, ev.From, ev.To = web3.EventTransfer, req.Account, out.Recipient
		ev.SenderDelta = out.SenderDelta.FieldElements()
	case proof.TypeBurn:
		ev.Kind, ev.User, ev.From = web3.EventBurn, req.Account, req.Account
		ev.SenderDelta = out.SenderDelta.FieldElements()
	default:
		c.Fatalf("unexpected request type %s", req.Type)
	}
	return ev
}

func (f *fixture) build(c *qt.C, typ proof.Type, acc *account.Account, op proof.Operation) *web3.Event {
	req, err := f.builder.Build(context.Background(), typ, acc, op)
	c.Assert(err, qt.IsNil)
	return f.event(c, req)
}

func balance(c *qt.C, params *config.Params, acc *account.Account) int64 {
	v, err := acc.DecryptBalance(params)
	c.Assert(err, qt.IsNil)
	return v.Int64()
}

// history mints 100 to alice, then alice transfers 40 to bob and burns 10.
func (f *fixture) history(c *qt.C, rec *Reconciler) []*web3.Event {
	ctx := context.Background()
	mint := f.build(c, proof.TypeMint, f.alice, proof.Operation{Amount: big.NewInt(100)})
	_, err := rec.Apply(ctx, []*web3.Event{mint})
	c.Assert(err, qt.IsNil)

	transfer := f.build(c, proof.TypeTransfer, f.alice, proof.Operation{
		Amount:             big.NewInt(40),
		Recipient:          f.bob.Address,
		RecipientPublicKey: f.bob.Keypair.PublicKey,
	})
	_, err = rec.Apply(ctx, []*web3.Event{transfer})
	c.Assert(err, qt.IsNil)

	burn := f.build(c, proof.TypeBurn, f.alice, proof.Operation{Amount: big.NewInt(10)})
	_, err = rec.Apply(ctx, []*web3.Event{burn})
	c.Assert(err, qt.IsNil)
	return []*web3.Event{mint, transfer, burn}
}

func TestApplyHistory(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	aliceRec := New(f.params, f.alice, f.stg)
	events := f.history(c, aliceRec)
	c.Assert(balance(c, f.params, f.alice), qt.Equals, int64(50))

	// bob and the sentinel see the events out of order
	shuffled := []*web3.Event{events[2], events[0], events[1]}
	report, err := New(f.params, f.bob, f.stg).Apply(context.Background(), shuffled)
	c.Assert(err, qt.IsNil)
	c.Assert(report.Applied, qt.Equals, 1)
	c.Assert(report.Skipped, qt.Equals, 2)
	c.Assert(report.Errors, qt.HasLen, 0)
	c.Assert(balance(c, f.params, f.bob), qt.Equals, int64(40))

	sentinel := account.NewBurnSentinel(f.params)
	report, err = New(f.params, sentinel, f.stg).Apply(context.Background(), shuffled)
	c.Assert(err, qt.IsNil)
	c.Assert(report.Applied, qt.Equals, 1)
	c.Assert(balance(c, f.params, sentinel), qt.Equals, int64(10))

	applied, err := f.stg.AppliedEvents(f.alice.Address)
	c.Assert(err, qt.IsNil)
	c.Assert(applied, qt.HasLen, 3)
	c.Assert(applied[0].Directions, qt.DeepEquals, []string{"credit"})
	c.Assert(applied[1].Directions, qt.DeepEquals, []string{"debit"})
	c.Assert(applied[2].Kind, qt.Equals, "burn")
}

func TestApplyIsIdempotent(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	rec := New(f.params, f.alice, f.stg)
	events := f.history(c, rec)
	before := f.alice.Balance()

	report, err := rec.Apply(context.Background(), events)
	c.Assert(err, qt.IsNil)
	c.Assert(report.Applied, qt.Equals, 0)
	c.Assert(report.Errors, qt.HasLen, 3)
	for _, err := range report.Errors {
		c.Assert(err, qt.ErrorIs, ErrAlreadyApplied)
	}
	c.Assert(f.alice.Balance().Equal(before), qt.IsTrue)
	c.Assert(balance(c, f.params, f.alice), qt.Equals, int64(50))
}

func TestApplyRejectsMalformedEvents(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	rec := New(f.params, f.alice, f.stg)
	mint := f.build(c, proof.TypeMint, f.alice, proof.Operation{Amount: big.NewInt(7)})

	badPCT := *mint
	badPCT.AuditorPCT = append([]*big.Int{field.SNARKFieldSize()}, mint.AuditorPCT[1:]...)
	shortPCT := *mint
	shortPCT.AuditorPCT = mint.AuditorPCT[:6]
	offCurve := *mint
	offCurve.RecipientDelta = []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4)}
	shortDelta := *mint
	shortDelta.RecipientDelta = mint.RecipientDelta[:3]
	// C1 = (0, 1) and C2 = (0, -1): on the curve, outside the prime order subgroup
	smallOrder := *mint
	smallOrder.RecipientDelta = []*big.Int{
		big.NewInt(0), big.NewInt(1),
		big.NewInt(0), new(big.Int).Sub(field.SNARKFieldSize(), big.NewInt(1)),
	}

	report, err := rec.Apply(context.Background(), []*web3.Event{&badPCT, &shortPCT, &offCurve, &shortDelta, &smallOrder})
	c.Assert(err, qt.IsNil)
	c.Assert(report.Applied, qt.Equals, 0)
	c.Assert(report.Skipped, qt.Equals, 5)
	c.Assert(report.Errors, qt.HasLen, 5)
	for _, err := range report.Errors {
		c.Assert(errors.Is(err, ErrMalformedEvent), qt.IsTrue)
	}
	c.Assert(f.alice.Balance().IsZero(), qt.IsTrue)

	// the marker did not move, the valid event still applies
	report, err = rec.Apply(context.Background(), []*web3.Event{mint})
	c.Assert(err, qt.IsNil)
	c.Assert(report.Applied, qt.Equals, 1)
	c.Assert(balance(c, f.params, f.alice), qt.Equals, int64(7))
}

func TestApplyIgnoresOtherAccounts(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	carol := f.newAccount(c, 333, 0xc0)
	mint := f.build(c, proof.TypeMint, f.alice, proof.Operation{Amount: big.NewInt(5)})

	report, err := New(f.params, carol, f.stg).Apply(context.Background(), []*web3.Event{mint, nil})
	c.Assert(err, qt.IsNil)
	c.Assert(report.Applied, qt.Equals, 0)
	c.Assert(report.Skipped, qt.Equals, 1)
	c.Assert(report.Errors, qt.HasLen, 0)
	c.Assert(carol.Balance().IsZero(), qt.IsTrue)
}

func TestApplyOlderEventAfterNewer(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	rec := New(f.params, f.alice, f.stg)
	first := f.build(c, proof.TypeMint, f.alice, proof.Operation{Amount: big.NewInt(1)})
	second := f.build(c, proof.TypeMint, f.alice, proof.Operation{Amount: big.NewInt(2)})

	_, err := rec.Apply(context.Background(), []*web3.Event{second})
	c.Assert(err, qt.IsNil)
	report, err := rec.Apply(context.Background(), []*web3.Event{first})
	c.Assert(err, qt.IsNil)
	c.Assert(report.Errors, qt.HasLen, 1)
	c.Assert(report.Errors[0], qt.ErrorIs, ErrAlreadyApplied)
	c.Assert(balance(c, f.params, f.alice), qt.Equals, int64(2))
}

func TestApplyCancelled(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	mint := f.build(c, proof.TypeMint, f.alice, proof.Operation{Amount: big.NewInt(5)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := New(f.params, f.alice, nil).Apply(ctx, []*web3.Event{mint})
	c.Assert(err, qt.ErrorIs, context.Canceled)
	c.Assert(report.Applied, qt.Equals, 0)
}

func TestAuditorMode(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	events := f.history(c, New(f.params, f.alice, f.stg))

	auditStorage := storage.New(memdb.New())
	auditor := New(f.params, nil, auditStorage).WithAuditor(f.auditor)
	c.Assert(auditor.Account(), qt.IsNil)
	report, err := auditor.Apply(context.Background(), events)
	c.Assert(err, qt.IsNil)
	c.Assert(report.Audited, qt.Equals, 3)
	c.Assert(report.Errors, qt.HasLen, 0)

	records, err := auditStorage.AuditRecords()
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 3)
	c.Assert(records[0].Amount.MathBigInt().Int64(), qt.Equals, int64(100))
	c.Assert(records[0].To, qt.Equals, f.alice.Address)
	c.Assert(records[1].Amount.MathBigInt().Int64(), qt.Equals, int64(40))
	c.Assert(records[1].To, qt.Equals, f.bob.Address)
	c.Assert(records[2].Amount.MathBigInt().Int64(), qt.Equals, int64(10))
	c.Assert(records[2].To, qt.Equals, config.BurnSentinelAddress)

	// a wrong auditor key fails authentication
	wrong, err := account.NewKeypair(f.params, big.NewInt(42))
	c.Assert(err, qt.IsNil)
	report, err = New(f.params, nil, nil).WithAuditor(wrong).Apply(context.Background(), events[:1])
	c.Assert(err, qt.IsNil)
	c.Assert(report.Audited, qt.Equals, 0)
	c.Assert(report.Errors, qt.HasLen, 1)
}

func TestRestore(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.history(c, New(f.params, f.alice, f.stg))

	// same key, fresh in-memory balance
	restored := account.NewAccount(f.params, f.alice.Address, f.alice.Keypair)
	n, err := New(f.params, restored, f.stg).Restore()
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)
	c.Assert(balance(c, f.params, restored), qt.Equals, int64(50))
	c.Assert(restored.Balance().Equal(f.alice.Balance()), qt.IsTrue)
}
