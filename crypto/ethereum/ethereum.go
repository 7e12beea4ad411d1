// Package ethereum provides the secp256k1 signing facility used to sign the
// registration message with an Ethereum account.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/encryptederc/eerc-client/util"
)

const (
	// SignatureLength is the size of an r‖s‖v signature.
	SignatureLength = ethcrypto.SignatureLength
	// walletRecoveryOffset is added to v by wallets implementing personal_sign.
	walletRecoveryOffset = 27
)

// SignKeys holds an Ethereum private key.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
	lock    sync.RWMutex
}

// NewSignKeys creates an empty SignKeys.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.lock.Lock()
	defer k.lock.Unlock()
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key from its hex representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	k.lock.Lock()
	defer k.lock.Unlock()
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as hex
// strings.
func (k *SignKeys) HexString() (string, string) {
	k.lock.RLock()
	defer k.lock.RUnlock()
	pub := hex.EncodeToString(ethcrypto.CompressPubkey(&k.Public))
	priv := hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the uncompressed public key bytes.
func (k *SignKeys) PublicKey() []byte {
	k.lock.RLock()
	defer k.lock.RUnlock()
	return ethcrypto.FromECDSAPub(&k.Public)
}

// Address returns the Ethereum address of the key.
func (k *SignKeys) Address() common.Address {
	k.lock.RLock()
	defer k.lock.RUnlock()
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed hex address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs the EIP-191 hash of message. The recovery id v is 0 or 1.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	k.lock.RLock()
	defer k.lock.RUnlock()
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(accounts.TextHash(message), &k.Private)
}

// SignMessage signs message the way wallets answer personal_sign, with
// v in {27, 28}. It implements the account registration signer.
func (k *SignKeys) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	sig, err := k.SignEthereum(message)
	if err != nil {
		return nil, err
	}
	sig[SignatureLength-1] += walletRecoveryOffset
	return sig, nil
}

// AddrFromPublicKey returns the address of an uncompressed or compressed
// public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	var (
		pk  *ecdsa.PublicKey
		err error
	)
	if len(pub) == 33 {
		pk, err = ethcrypto.DecompressPubkey(pub)
	} else {
		pk, err = ethcrypto.UnmarshalPubkey(pub)
	}
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pk), nil
}

// AddrFromSignature recovers the signer address of an EIP-191 signature.
// Both v conventions (0/1 and 27/28) are accepted.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[SignatureLength-1] >= walletRecoveryOffset {
		sig[SignatureLength-1] -= walletRecoveryOffset
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
