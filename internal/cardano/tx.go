package cardano

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Transaction is the full wire form: [body, witness_set, is_valid,
// auxiliary_data]. This coordinator never attaches auxiliary data or
// marks a transaction invalid, but both slots round-trip correctly.
type Transaction struct {
	_           struct{} `cbor:",toarray"`
	Body        *TxBody
	WitnessSet  *WitnessSet
	IsValid     bool
	AuxData     any // always nil, encoded as CBOR null; present for wire-format completeness
}

// NewUnsignedTransaction pairs a body with an (as yet key-witness-less)
// witness set carrying only the attached native script, per §4.4 step 6.
func NewUnsignedTransaction(body *TxBody, script *NativeScript) *Transaction {
	return &Transaction{
		Body:       body,
		WitnessSet: &WitnessSet{NativeScripts: []*NativeScript{script}},
		IsValid:    true,
	}
}

// Bytes serializes the full transaction to its canonical CBOR form.
func (t *Transaction) Bytes() ([]byte, error) {
	return canonicalEncMode.Marshal(t)
}

// ParseTransaction decodes a serialized full transaction.
func ParseTransaction(data []byte) (*Transaction, error) {
	var t Transaction
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}
	return &t, nil
}
