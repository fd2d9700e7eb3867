// Package cardano implements the data model of §3 of the coordination
// contract: key hashes, asset units, multi-asset values, the native
// script tree, and the CBOR-encoded transaction body / witness set that
// the rest of the coordinator builds, signs, and submits.
//
// The package round-trips through the chain's standard CBOR encoding
// (github.com/fxamacker/cbor/v2) using a canonical encoder so that maps
// always serialize with keys sorted by byte value, matching the
// canonical-form requirement in §4.2.
package cardano

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// canonicalEncMode produces deterministic CBOR: map keys sorted by their
// encoded byte representation, definite-length containers, no extraneous
// tags. Scripts, values, bodies, witness sets and transactions are
// encoded with it so that session ids (tx body hashes) are reproducible
// across process restarts given identical inputs; the fixed-size hash
// and asset-name types encode as plain byte strings via cbor.Marshal.
var canonicalEncMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cardano: building canonical cbor encoder: %v", err))
	}
	canonicalEncMode = mode
}

// KeyHash is the 28-byte Blake2b-224 fingerprint of an Ed25519 public key.
type KeyHash [28]byte

// KeyHashFromHex parses a lowercase-hex 28-byte key hash.
func KeyHashFromHex(s string) (KeyHash, error) {
	var kh KeyHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return kh, fmt.Errorf("key hash is not valid hex: %w", err)
	}
	if len(b) != 28 {
		return kh, fmt.Errorf("key hash must be 28 bytes, got %d", len(b))
	}
	copy(kh[:], b)
	return kh, nil
}

func (k KeyHash) Hex() string { return hex.EncodeToString(k[:]) }

func (k KeyHash) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(k[:])
}

func (k *KeyHash) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) != 28 {
		return fmt.Errorf("key hash must be 28 bytes, got %d", len(b))
	}
	copy(k[:], b)
	return nil
}

// Hash32 is a generic 32-byte chain hash (transaction hash, body hash,
// auxiliary-data hash). It CBOR-encodes as a byte string.
type Hash32 [32]byte

func Hash32FromHex(s string) (Hash32, error) {
	var h Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hash is not valid hex: %w", err)
	}
	if len(b) != 32 {
		return h, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash32) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash32) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(h[:])
}

func (h *Hash32) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return nil
}

// PolicyID is the 28-byte hash identifying a minting policy. It is a
// comparable array type so it can be used directly as a Go map key while
// still CBOR-encoding as a byte string, matching the chain's wire form.
type PolicyID [28]byte

func PolicyIDFromHex(s string) (PolicyID, error) {
	var p PolicyID
	b, err := hex.DecodeString(s)
	if err != nil {
		return p, fmt.Errorf("policy id is not valid hex: %w", err)
	}
	if len(b) != 28 {
		return p, fmt.Errorf("policy id must be 28 bytes, got %d", len(b))
	}
	copy(p[:], b)
	return p, nil
}

func (p PolicyID) Hex() string { return hex.EncodeToString(p[:]) }

func (p PolicyID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(p[:])
}

func (p *PolicyID) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) != 28 {
		return fmt.Errorf("policy id must be 28 bytes, got %d", len(b))
	}
	copy(p[:], b)
	return nil
}

// AssetName is the 0-32 byte token name within a policy. It stores the
// raw bytes inside a Go string (an immutable byte sequence) so it can be
// used as a map key; hex encoding only happens at the wire/UI boundary.
type AssetName string

func AssetNameFromHex(s string) (AssetName, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("asset name is not valid hex: %w", err)
	}
	if len(b) > 32 {
		return "", fmt.Errorf("asset name must be at most 32 bytes, got %d", len(b))
	}
	return AssetName(b), nil
}

func (a AssetName) Hex() string { return hex.EncodeToString([]byte(a)) }

func (a AssetName) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]byte(a))
}

func (a *AssetName) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	*a = AssetName(b)
	return nil
}

// LovelaceUnit is the wire unit string denoting the native coin; it is
// not a multi-asset entry (§3).
const LovelaceUnit = "lovelace"

// SplitUnit splits a wire asset unit ("policy||name" hex, 56+ hex chars)
// into its policy id and asset name. It rejects the reserved "lovelace"
// unit, which callers must special-case before calling SplitUnit.
func SplitUnit(unit string) (PolicyID, AssetName, error) {
	if len(unit) < 56 {
		return PolicyID{}, "", fmt.Errorf("unit %q is shorter than a policy id", unit)
	}
	policy, err := PolicyIDFromHex(unit[:56])
	if err != nil {
		return PolicyID{}, "", err
	}
	name, err := AssetNameFromHex(unit[56:])
	if err != nil {
		return PolicyID{}, "", err
	}
	return policy, name, nil
}

// JoinUnit is the inverse of SplitUnit.
func JoinUnit(policy PolicyID, name AssetName) string {
	return policy.Hex() + name.Hex()
}
