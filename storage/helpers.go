package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

// encodeArtifact uses the deterministic CBOR encoding so equal artifacts
// always produce equal bytes.
func encodeArtifact(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// eventKey is address || block || logIndex, big endian so keys iterate in
// chain order.
func eventKey(addr common.Address, block uint64, logIndex uint) []byte {
	key := make([]byte, common.AddressLength+8+4)
	copy(key, addr.Bytes())
	binary.BigEndian.PutUint64(key[common.AddressLength:], block)
	binary.BigEndian.PutUint32(key[common.AddressLength+8:], uint32(logIndex))
	return key
}

// positionKey is block || logIndex.
func positionKey(block uint64, logIndex uint) []byte {
	return eventKey(common.Address{}, block, logIndex)[common.AddressLength:]
}
