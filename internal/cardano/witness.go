package cardano

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// VKeyWitness is a single key witness: the 32-byte Ed25519 public key
// and its 64-byte signature over the transaction body hash (§ GLOSSARY).
type VKeyWitness struct {
	_         struct{} `cbor:",toarray"`
	VKey      []byte
	Signature []byte
}

// KeyHash returns the Blake2b-224 hash of the witness's public key,
// its signer identity (§4.6).
func (w VKeyWitness) KeyHash() (KeyHash, error) {
	h, err := Blake2b224(w.VKey)
	if err != nil {
		return KeyHash{}, err
	}
	return KeyHash(h), nil
}

// WitnessSet is the CBOR map-with-int-keys container of §3 GLOSSARY:
// key-witnesses under key 0, attached native scripts under key 1.
type WitnessSet struct {
	VKeyWitnesses []VKeyWitness   `cbor:"0,keyasint,omitempty"`
	NativeScripts []*NativeScript `cbor:"1,keyasint,omitempty"`
}

func (w *WitnessSet) Bytes() ([]byte, error) {
	return canonicalEncMode.Marshal(w)
}

// ParseWitnessSet decodes a serialized witness set.
func ParseWitnessSet(data []byte) (*WitnessSet, error) {
	var w WitnessSet
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid witness set: %w", err)
	}
	return &w, nil
}
