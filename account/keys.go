package account

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/encryptederc/eerc-client/config"
	"github.com/encryptederc/eerc-client/crypto/ecc"
	"github.com/encryptederc/eerc-client/util"
)

// SignatureLength is the length of an r‖s‖v secp256k1 signature.
const SignatureLength = 65

const registrationPrefix = "eERC\nRegistering user with\n Address:"

// ErrInvalidSignature is returned when the key derivation input is malformed.
var ErrInvalidSignature = errors.New("invalid signature")

// Signer signs the registration message with the account wallet. The
// signature must be deterministic for a given message.
type Signer interface {
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// Keypair is a BabyJubJub key pair.
type Keypair struct {
	PrivateKey *big.Int
	PublicKey  ecc.Point
}

// Equal reports whether both key pairs are the same.
func (k *Keypair) Equal(o *Keypair) bool {
	return k.PrivateKey.Cmp(o.PrivateKey) == 0 && k.PublicKey.Equal(o.PublicKey)
}

// RegistrationMessage returns the message signed to derive the key pair of
// address.
func RegistrationMessage(address common.Address) string {
	return registrationPrefix + util.LowerAddress(address.Hex())
}

// DeriveKeypair derives the BabyJubJub key pair from a registration
// signature. The signature is hashed with SHA-256 and the digest is turned
// into a subgroup scalar the same way a babyjub.PrivateKey is (pruned
// Blake-512 of the seed). The derivation is deterministic.
func DeriveKeypair(params *config.Params, signature []byte) (*Keypair, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, SignatureLength, len(signature))
	}
	var seed babyjub.PrivateKey
	digest := sha256.Sum256(signature)
	copy(seed[:], digest[:])

	sk := params.Scalar.Reduce(seed.Scalar().BigInt())
	if sk.Sign() == 0 {
		return nil, fmt.Errorf("%w: derived a zero private key", ErrInvalidSignature)
	}
	return &Keypair{PrivateKey: sk, PublicKey: params.Engine.PublicKey(sk)}, nil
}

// Register asks signer for the registration signature of address and derives
// the account from it.
func Register(ctx context.Context, params *config.Params, signer Signer, address common.Address) (*Account, error) {
	sig, err := signer.SignMessage(ctx, []byte(RegistrationMessage(address)))
	if err != nil {
		return nil, fmt.Errorf("cannot sign registration message: %w", err)
	}
	kp, err := DeriveKeypair(params, sig)
	if err != nil {
		return nil, err
	}
	return NewAccount(params, address, kp), nil
}

// NewKeypair returns the key pair of a known private key.
func NewKeypair(params *config.Params, privateKey *big.Int) (*Keypair, error) {
	if err := params.Scalar.Check(privateKey); err != nil {
		return nil, err
	}
	return &Keypair{
		PrivateKey: new(big.Int).Set(privateKey),
		PublicKey:  params.Engine.PublicKey(privateKey),
	}, nil
}
