package cardano

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Address header type nibbles (CIP-19), the two variants this
// coordinator ever derives: enterprise-script-only and base
// script+script (payment script plus a stake script).
const (
	addrTypeBaseScriptScript byte = 0x3 // payment script, stake script
	addrTypeEnterpriseScript byte = 0x7 // payment script only
)

// DeriveAddresses produces the enterprise-address bech32 (payment
// credential only) and, if a stake script is supplied, the base-address
// bech32, from a payment native script and optional stake native script,
// per §4.3. These are bit-exact outputs of the chain's standard address
// encoding (CIP-19 header byte + bech32).
func DeriveAddresses(paymentScript, stakeScript *NativeScript, networkID byte) (enterprise string, base string, err error) {
	if networkID > 1 {
		return "", "", fmt.Errorf("network id must be 0 or 1, got %d", networkID)
	}
	paymentHash, err := ScriptHash(paymentScript)
	if err != nil {
		return "", "", fmt.Errorf("payment script hash: %w", err)
	}

	hrp := "addr_test"
	if networkID == 1 {
		hrp = "addr"
	}

	enterpriseHeader := (addrTypeEnterpriseScript << 4) | networkID
	enterprise, err = encodeAddress(hrp, enterpriseHeader, paymentHash[:], nil)
	if err != nil {
		return "", "", err
	}

	if stakeScript == nil {
		return enterprise, "", nil
	}

	stakeHash, err := ScriptHash(stakeScript)
	if err != nil {
		return "", "", fmt.Errorf("stake script hash: %w", err)
	}
	baseHeader := (addrTypeBaseScriptScript << 4) | networkID
	base, err = encodeAddress(hrp, baseHeader, paymentHash[:], stakeHash[:])
	if err != nil {
		return "", "", err
	}
	return enterprise, base, nil
}

func encodeAddress(hrp string, header byte, paymentCred []byte, stakeCred []byte) (string, error) {
	raw := make([]byte, 0, 1+len(paymentCred)+len(stakeCred))
	raw = append(raw, header)
	raw = append(raw, paymentCred...)
	raw = append(raw, stakeCred...)

	converted, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32 bit conversion: %w", err)
	}
	encoded, err := bech32.Encode(hrp, converted)
	if err != nil {
		return "", fmt.Errorf("bech32 encode: %w", err)
	}
	return encoded, nil
}

// DecodeAddress recovers the raw header byte and credential bytes from a
// bech32-encoded address. The builder uses it to turn output and change
// addresses into their wire bytes; it does not check an address against
// any script.
func DecodeAddress(addr string) (header byte, credentials []byte, err error) {
	_, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid bech32 address: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return 0, nil, fmt.Errorf("bech32 bit conversion: %w", err)
	}
	if len(raw) < 1 {
		return 0, nil, fmt.Errorf("address has no header byte")
	}
	return raw[0], raw[1:], nil
}
