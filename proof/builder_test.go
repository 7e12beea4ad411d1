package proof

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/encryptederc/eerc-client/account"
	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/crypto/field"
	"github.com/encryptederc/eerc-client/crypto/pct"
)

var auditorSecret = big.NewInt(1_000_003)

func testParams(c *qt.C) *config.Params {
	p := config.TestnetParams()
	auditor := p.NewPoint()
	auditor.ScalarBaseMult(auditorSecret)
	p = p.WithAuditor(auditor)
	c.Assert(p.Validate(), qt.IsNil)
	return p
}

func testAccount(c *qt.C, params *config.Params, sk int64, addr byte) *account.Account {
	kp, err := account.NewKeypair(params, big.NewInt(sk))
	c.Assert(err, qt.IsNil)
	return account.NewAccount(params, common.Address{addr}, kp)
}

func credit(c *qt.C, params *config.Params, acc *account.Account, amount int64) {
	delta, _, err := params.Engine.EncryptRandom(big.NewInt(amount), acc.Keypair.PublicKey)
	c.Assert(err, qt.IsNil)
	c.Assert(acc.ApplyDelta(delta, account.Credit), qt.IsNil)
}

func TestBuildRegister(t *testing.T) {
	c := qt.New(t)
	params := testParams(c)
	acc := testAccount(c, params, 12345, 1)
	b := NewBuilder(params)

	req, err := b.Build(context.Background(), TypeRegister, acc, Operation{})
	c.Assert(err, qt.IsNil)
	c.Assert(req.Type, qt.Equals, TypeRegister)
	c.Assert(req.Counter, qt.Equals, uint64(0))
	c.Assert(req.PublicInputs, qt.HasLen, 4)
	c.Assert(req.PrivateWitness, qt.HasLen, 1)
	c.Assert(acc.Counter(), qt.Equals, uint64(1))

	x, y := acc.Keypair.PublicKey.Point()
	c.Assert(req.PublicInputs[0].Cmp(x), qt.Equals, 0)
	c.Assert(req.PublicInputs[1].Cmp(y), qt.Equals, 0)
	regHash, err := RegistrationHash(params, acc.Keypair.PrivateKey, acc)
	c.Assert(err, qt.IsNil)
	c.Assert(req.PublicInputs[2].Cmp(regHash), qt.Equals, 0)
	c.Assert(req.PublicInputs[3].Sign(), qt.Equals, 0)
	c.Assert(req.Signals["senderPrivateKey"], qt.Equals, acc.Keypair.PrivateKey.String())

	// a different chain gives a different registration hash
	other, err := config.NewParams(big.NewInt(1), params.CurveType, params.MaxAmount)
	c.Assert(err, qt.IsNil)
	otherHash, err := RegistrationHash(other, acc.Keypair.PrivateKey, acc)
	c.Assert(err, qt.IsNil)
	c.Assert(otherHash.Cmp(regHash), qt.Not(qt.Equals), 0)
}

func TestBuildMint(t *testing.T) {
	c := qt.New(t)
	params := testParams(c)
	minter := testAccount(c, params, 111, 1)
	rcpt := testAccount(c, params, 222, 2)
	b := NewBuilder(params)

	req, err := b.Build(context.Background(), TypeMint, minter, Operation{
		Amount:             big.NewInt(100),
		Recipient:          rcpt.Address,
		RecipientPublicKey: rcpt.Keypair.PublicKey,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(req.PublicInputs, qt.HasLen, 17)
	c.Assert(req.PrivateWitness, qt.HasLen, 3)
	c.Assert(req.Outputs.Recipient, qt.Equals, rcpt.Address)

	// the mint ciphertext is public input 2..5 and decrypts to the amount
	amount, err := params.Engine.Decrypt(req.Outputs.RecipientDelta, rcpt.Keypair.PrivateKey)
	c.Assert(err, qt.IsNil)
	c.Assert(amount.Int64(), qt.Equals, int64(100))
	for i, e := range req.Outputs.RecipientDelta.FieldElements() {
		c.Assert(req.PublicInputs[2+i].Cmp(e), qt.Equals, 0)
	}
	c.Assert(params.Engine.CheckRandomness(req.Outputs.RecipientDelta, req.PrivateWitness[1]), qt.IsTrue)

	// the auditor reads the PCT
	p, err := pct.FromElements(req.PublicInputs[8:15])
	c.Assert(err, qt.IsNil)
	audited, err := pct.Decrypt(p, auditorSecret, params.NewPoint())
	c.Assert(err, qt.IsNil)
	c.Assert(audited.Int64(), qt.Equals, int64(100))

	nullifier, err := MintNullifier(params, p)
	c.Assert(err, qt.IsNil)
	c.Assert(req.PublicInputs[15].Cmp(nullifier), qt.Equals, 0)
	c.Assert(req.PublicInputs[16].Sign(), qt.Equals, 0)

	// every public input is a canonical field element
	for _, e := range req.PublicInputs {
		c.Assert(params.Field.Contains(e), qt.IsTrue)
	}

	// mint without recipient goes to the local account
	self, err := b.Build(context.Background(), TypeMint, minter, Operation{Amount: big.NewInt(1)})
	c.Assert(err, qt.IsNil)
	c.Assert(self.Outputs.Recipient, qt.Equals, minter.Address)
	c.Assert(self.Counter, qt.Equals, uint64(1))
}

func TestBuildTransfer(t *testing.T) {
	c := qt.New(t)
	params := testParams(c)
	sender := testAccount(c, params, 333, 3)
	rcpt := testAccount(c, params, 444, 4)
	credit(c, params, sender, 100)
	before := sender.Balance()
	b := NewBuilder(params)

	req, err := b.Build(context.Background(), TypeTransfer, sender, Operation{
		Amount:             big.NewInt(40),
		Recipient:          rcpt.Address,
		RecipientPublicKey: rcpt.Keypair.PublicKey,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(req.PublicInputs, qt.HasLen, 26)
	c.Assert(req.PrivateWitness, qt.HasLen, 6)
	c.Assert(req.PrivateWitness[2].Int64(), qt.Equals, int64(100))
	c.Assert(req.PublicInputs[25].Sign(), qt.Equals, 0)

	// the builder never mutates the balance
	c.Assert(sender.Balance().Equal(before), qt.IsTrue)
	c.Assert(sender.Counter(), qt.Equals, uint64(1))

	newBalance, err := params.Engine.Decrypt(req.Outputs.NewBalance, sender.Keypair.PrivateKey)
	c.Assert(err, qt.IsNil)
	c.Assert(newBalance.Int64(), qt.Equals, int64(60))
	received, err := params.Engine.Decrypt(req.Outputs.RecipientDelta, rcpt.Keypair.PrivateKey)
	c.Assert(err, qt.IsNil)
	c.Assert(received.Int64(), qt.Equals, int64(40))

	// newBalance = balance - senderDelta
	c.Assert(params.Engine.Sub(before, req.Outputs.SenderDelta).Equal(req.Outputs.NewBalance), qt.IsTrue)
	for i, e := range before.FieldElements() {
		c.Assert(req.PublicInputs[4+i].Cmp(e), qt.Equals, 0)
	}
}

func TestBuildBurn(t *testing.T) {
	c := qt.New(t)
	params := testParams(c)
	acc := testAccount(c, params, 555, 5)
	credit(c, params, acc, 10)
	b := NewBuilder(params)

	req, err := b.Build(context.Background(), TypeBurn, acc, Operation{Amount: big.NewInt(10)})
	c.Assert(err, qt.IsNil)
	c.Assert(req.Type, qt.Equals, TypeBurn)
	c.Assert(req.Outputs.Recipient, qt.Equals, params.BurnSentinel)
	// recipient key is the identity
	c.Assert(req.PublicInputs[2].Sign(), qt.Equals, 0)
	c.Assert(req.PublicInputs[3].Int64(), qt.Equals, int64(1))

	burned, err := params.Engine.Decrypt(req.Outputs.RecipientDelta, params.BurnSentinelPrivateKey())
	c.Assert(err, qt.IsNil)
	c.Assert(burned.Int64(), qt.Equals, int64(10))
}

func TestInsufficientBalance(t *testing.T) {
	c := qt.New(t)
	params := testParams(c)
	sender := testAccount(c, params, 666, 6)
	rcpt := testAccount(c, params, 777, 7)
	credit(c, params, sender, 5)
	before := sender.Balance()
	b := NewBuilder(params)

	for _, typ := range []Type{TypeTransfer, TypeBurn} {
		req, err := b.Build(context.Background(), typ, sender, Operation{
			Amount:             big.NewInt(6),
			Recipient:          rcpt.Address,
			RecipientPublicKey: rcpt.Keypair.PublicKey,
		})
		c.Assert(errors.Is(err, ErrInsufficientBalance), qt.IsTrue)
		c.Assert(req, qt.IsNil)
	}
	c.Assert(sender.Counter(), qt.Equals, uint64(0))
	c.Assert(sender.Balance().Equal(before), qt.IsTrue)
}

func TestBalanceChangedBeforeSnapshot(t *testing.T) {
	c := qt.New(t)
	params := testParams(c)
	sender := testAccount(c, params, 666, 6)
	rcpt := testAccount(c, params, 777, 7)
	credit(c, params, sender, 10)
	op := Operation{
		Amount:             big.NewInt(8),
		Recipient:          rcpt.Address,
		RecipientPublicKey: rcpt.Keypair.PublicKey,
	}

	// a credit in between still covers the amount, the witness follows it
	b := NewBuilder(params)
	b.beforeSnapshot = func(acc *account.Account) { credit(c, params, acc, 5) }
	req, err := b.Build(context.Background(), TypeTransfer, sender, op)
	c.Assert(err, qt.IsNil)
	c.Assert(req.PrivateWitness[2].Int64(), qt.Equals, int64(15))
	c.Assert(sender.Counter(), qt.Equals, uint64(1))

	// a debit in between fails the second check with the counter consumed
	b.beforeSnapshot = func(acc *account.Account) {
		delta, _, err := params.Engine.EncryptRandom(big.NewInt(10), acc.Keypair.PublicKey)
		c.Assert(err, qt.IsNil)
		c.Assert(acc.ApplyDelta(delta, account.Debit), qt.IsNil)
	}
	req, err = b.Build(context.Background(), TypeBurn, sender, op)
	c.Assert(err, qt.ErrorIs, ErrInsufficientBalance)
	c.Assert(err, qt.ErrorMatches, ".*amount 8, balance 5")
	c.Assert(req, qt.IsNil)
	c.Assert(sender.Counter(), qt.Equals, uint64(2))
}

func TestBuildRejects(t *testing.T) {
	c := qt.New(t)
	params := testParams(c)
	acc := testAccount(c, params, 888, 8)
	b := NewBuilder(params)
	ctx := context.Background()

	_, err := b.Build(ctx, TypeMint, acc, Operation{Amount: big.NewInt(-1)})
	c.Assert(errors.Is(err, field.ErrOutOfRange), qt.IsTrue)
	_, err = b.Build(ctx, TypeMint, acc, Operation{Amount: new(big.Int).Add(params.MaxAmountBig(), big.NewInt(1))})
	c.Assert(errors.Is(err, field.ErrOutOfRange), qt.IsTrue)
	_, err = b.Build(ctx, Type(42), acc, Operation{})
	c.Assert(errors.Is(err, ErrUnsupportedType), qt.IsTrue)

	noAuditor := NewBuilder(config.TestnetParams())
	_, err = noAuditor.Build(ctx, TypeMint, acc, Operation{Amount: big.NewInt(1)})
	c.Assert(errors.Is(err, ErrMissingAuditor), qt.IsTrue)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.Build(cancelled, TypeRegister, acc, Operation{})
	c.Assert(errors.Is(err, context.Canceled), qt.IsTrue)

	c.Assert(acc.Counter(), qt.Equals, uint64(0))
}

func TestParseType(t *testing.T) {
	c := qt.New(t)
	for _, typ := range []Type{TypeRegister, TypeMint, TypeTransfer, TypeBurn} {
		text, err := typ.MarshalText()
		c.Assert(err, qt.IsNil)
		var parsed Type
		c.Assert(parsed.UnmarshalText(text), qt.IsNil)
		c.Assert(parsed, qt.Equals, typ)
	}
	_, err := ParseType("stake")
	c.Assert(errors.Is(err, ErrUnsupportedType), qt.IsTrue)
}
