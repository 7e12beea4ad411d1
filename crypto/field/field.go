// Package field implements modular arithmetic over the two domains used by
// the protocol: the SNARK scalar field (public inputs) and the BabyJubJub
// subgroup order (private keys, randomness and amounts). Both domains share
// the Field type but are distinct values, so every call site names the
// modulus it works with.
package field

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/babyjub"
)

// ErrOutOfRange is returned when a value cannot be represented in a domain.
var ErrOutOfRange = errors.New("value out of range")

// SNARKFieldSize returns the modulus of the BN254 scalar field, the field the
// proof system works on.
func SNARKFieldSize() *big.Int {
	return fr.Modulus()
}

// SubGroupOrder returns the prime order of the BabyJubJub subgroup generated
// by Base8.
func SubGroupOrder() *big.Int {
	return new(big.Int).Set(babyjub.SubOrder)
}

// Field is a prime field bound to one modulus. It is immutable.
type Field struct {
	name    string
	modulus *big.Int
}

// New returns a Field for the given modulus. The name is only used in error
// messages.
func New(name string, modulus *big.Int) *Field {
	if modulus == nil || modulus.Sign() <= 0 {
		panic(fmt.Sprintf("invalid modulus for field %s", name))
	}
	return &Field{name: name, modulus: new(big.Int).Set(modulus)}
}

// Name returns the field name.
func (f *Field) Name() string {
	return f.name
}

// Modulus returns a copy of the field modulus.
func (f *Field) Modulus() *big.Int {
	return new(big.Int).Set(f.modulus)
}

// Reduce returns the canonical representation of x in the field using
// Euclidean modulus, so negative inputs wrap around. If x is already
// canonical it is returned as a copy.
func (f *Field) Reduce(x *big.Int) *big.Int {
	z := new(big.Int)
	if x == nil {
		return z
	}
	if x.Sign() >= 0 && x.Cmp(f.modulus) < 0 {
		return z.Set(x)
	}
	return z.Mod(x, f.modulus)
}

// Contains reports whether x is a canonical element of the field.
func (f *Field) Contains(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(f.modulus) < 0
}

// Check returns ErrOutOfRange if x is not a canonical element of the field.
func (f *Field) Check(x *big.Int) error {
	if !f.Contains(x) {
		return fmt.Errorf("%w: %s is not in the %s domain", ErrOutOfRange, x, f.name)
	}
	return nil
}

// FromString parses a non-negative decimal or 0x prefixed hex string and
// reduces it into the field. Malformed or negative strings are rejected.
func (f *Field) FromString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrOutOfRange)
	}
	x, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("%w: malformed number %q", ErrOutOfRange, s)
	}
	if x.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative number %s", ErrOutOfRange, x)
	}
	return f.Reduce(x), nil
}

// FromBytes interprets b as a big-endian unsigned integer and reduces it.
func (f *Field) FromBytes(b []byte) *big.Int {
	return f.Reduce(new(big.Int).SetBytes(b))
}

// Add returns (a + b) mod p.
func (f *Field) Add(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Add(a, b))
}

// Sub returns (a - b) mod p.
func (f *Field) Sub(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Sub(a, b))
}

// Mul returns (a * b) mod p.
func (f *Field) Mul(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Mul(a, b))
}

// Neg returns -a mod p.
func (f *Field) Neg(a *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Neg(a))
}

// Equal reports whether both fields share the modulus.
func (f *Field) Equal(g *Field) bool {
	return f.modulus.Cmp(g.modulus) == 0
}

// ToElement converts x into a gnark-crypto BN254 fr.Element. It only makes
// sense for the SNARK field, so it fails for any other modulus.
func (f *Field) ToElement(x *big.Int) (fr.Element, error) {
	var e fr.Element
	if f.modulus.Cmp(fr.Modulus()) != 0 {
		return e, fmt.Errorf("field %s is not the BN254 scalar field", f.name)
	}
	if err := f.Check(x); err != nil {
		return e, err
	}
	e.SetBigInt(x)
	return e, nil
}
