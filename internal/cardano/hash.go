package cardano

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Blake2b256 hashes data with a 32-byte Blake2b digest, the chain's
// standard transaction/body/auxiliary-data hash function.
func Blake2b256(data []byte) (Hash32, error) {
	var out Hash32
	sum := blake2b.Sum256(data)
	copy(out[:], sum[:])
	return out, nil
}

// Blake2b224 hashes data with a 28-byte Blake2b digest, the chain's
// standard key-hash and script-hash function.
func Blake2b224(data []byte) ([28]byte, error) {
	var out [28]byte
	h, err := blake2b.New(28, nil)
	if err != nil {
		return out, fmt.Errorf("blake2b-224 init: %w", err)
	}
	h.Write(data)
	copy(out[:], h.Sum(nil))
	return out, nil
}
