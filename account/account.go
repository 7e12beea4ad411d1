// Package account holds the local view of an eERC account: its key pair,
// derived from a wallet signature, and its encrypted balance.
package account

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/encryptederc/eerc-client/config"
)

// Account is a registered local account.
type Account struct {
	Address common.Address
	Keypair *Keypair
	*BalanceState
}

// NewAccount returns an account with an empty balance.
func NewAccount(params *config.Params, address common.Address, keypair *Keypair) *Account {
	return &Account{
		Address:      address,
		Keypair:      keypair,
		BalanceState: NewBalanceState(params.Engine),
	}
}

// NewBurnSentinel returns the burn sentinel account, whose private key is
// public.
func NewBurnSentinel(params *config.Params) *Account {
	kp := &Keypair{
		PrivateKey: params.BurnSentinelPrivateKey(),
		PublicKey:  params.BurnSentinelPublicKey(),
	}
	return NewAccount(params, params.BurnSentinel, kp)
}

// DecryptBalance decrypts the current balance with the account key.
func (a *Account) DecryptBalance(params *config.Params) (*big.Int, error) {
	return params.Engine.Decrypt(a.Balance(), a.Keypair.PrivateKey)
}
