package util

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return b
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// HexToBytes decodes a hex string, with or without the 0x prefix.
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(TrimHex(s))
}

// LowerAddress returns the 0x prefixed lowercase representation of an
// Ethereum address string.
func LowerAddress(addr string) string {
	return "0x" + strings.ToLower(TrimHex(strings.TrimSpace(addr)))
}

// BigToBytes32 returns the 32 byte big-endian representation of n. It panics
// if n does not fit.
func BigToBytes32(n *big.Int) []byte {
	b := make([]byte, 32)
	return n.FillBytes(b)
}
