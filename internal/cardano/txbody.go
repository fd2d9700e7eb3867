package cardano

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// TxIn is a UTxO reference: [tx_hash, output_index].
type TxIn struct {
	_       struct{} `cbor:",toarray"`
	TxHash  Hash32
	Index   uint32
}

// TxOut is the legacy array-form transaction output: [address, value].
// Plutus datum/reference-script fields are omitted — this coordinator
// only ever spends from and pays to native-script or plain addresses.
type TxOut struct {
	_       struct{} `cbor:",toarray"`
	Address []byte
	Amount  Value
}

// TxBody is the CBOR map-with-int-keys form of a Cardano transaction
// body (§3, §4.4). Optional fields are pointers so `omitempty` drops
// them from the map entirely rather than encoding a null.
type TxBody struct {
	Inputs          []TxIn    `cbor:"0,keyasint"`
	Outputs         []TxOut   `cbor:"1,keyasint"`
	Fee             uint64    `cbor:"2,keyasint"`
	TTL             *uint64   `cbor:"3,keyasint,omitempty"`
	ValidityStart   *uint64   `cbor:"8,keyasint,omitempty"`
	RequiredSigners []KeyHash `cbor:"14,keyasint,omitempty"`
	NetworkID       *uint8    `cbor:"15,keyasint,omitempty"`
}

// Bytes serializes the body to its canonical CBOR form.
func (b *TxBody) Bytes() ([]byte, error) {
	return canonicalEncMode.Marshal(b)
}

// Hash computes the transaction body hash (Blake2b-256 over the
// canonical CBOR body), which is the session id of §3.
func (b *TxBody) Hash() (Hash32, error) {
	raw, err := b.Bytes()
	if err != nil {
		return Hash32{}, err
	}
	return Blake2b256(raw)
}

// ParseTxBody decodes a serialized transaction body.
func ParseTxBody(data []byte) (*TxBody, error) {
	var b TxBody
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("invalid transaction body: %w", err)
	}
	return &b, nil
}

// TotalOutput sums every output's value plus the declared fee, the
// right-hand side of the conservation invariant of §3. The builder does
// not call it; it derives change by subtraction instead.
func (b *TxBody) TotalOutput() Value {
	total := Value{Coin: b.Fee}
	for _, out := range b.Outputs {
		total = Add(total, out.Amount)
	}
	return total
}
