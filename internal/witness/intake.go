// Package witness implements C6, witness intake: parsing a submitted
// blob (a witness set or a full transaction), extracting key-witnesses,
// and enforcing the session's allow-list of required key hashes.
package witness

import (
	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
)

// Result is the outcome of one intake call.
type Result struct {
	Accepted []cardano.KeyHash
	Ignored  []cardano.KeyHash
	// Witnesses holds exactly the accepted key-witnesses, ready to be
	// stored one at a time by the caller.
	Witnesses map[cardano.KeyHash]cardano.VKeyWitness
}

// Intake parses blob as either a bare witness set or a full transaction,
// extracts its key-witnesses, and partitions them by membership in
// allowedKeyHashes. At least one witness must be accepted, or Intake
// fails with SignerNotAllowed.
func Intake(blob []byte, allowedKeyHashes []cardano.KeyHash) (*Result, error) {
	vkeyWitnesses, err := extractVKeyWitnesses(blob)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidWitnessCbor, "witness blob does not parse as a witness set or transaction", err)
	}

	allowed := make(map[cardano.KeyHash]struct{}, len(allowedKeyHashes))
	for _, kh := range allowedKeyHashes {
		allowed[kh] = struct{}{}
	}

	result := &Result{Witnesses: make(map[cardano.KeyHash]cardano.VKeyWitness)}
	seen := make(map[cardano.KeyHash]struct{})
	for _, w := range vkeyWitnesses {
		kh, err := w.KeyHash()
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidWitnessCbor, "could not hash witness public key", err)
		}
		if _, dup := seen[kh]; dup {
			continue
		}
		seen[kh] = struct{}{}

		if _, ok := allowed[kh]; ok {
			result.Accepted = append(result.Accepted, kh)
			result.Witnesses[kh] = w
		} else {
			result.Ignored = append(result.Ignored, kh)
		}
	}

	if len(result.Accepted) == 0 {
		acceptedHex := make([]string, 0)
		ignoredHex := make([]string, 0, len(result.Ignored))
		for _, kh := range result.Ignored {
			ignoredHex = append(ignoredHex, kh.Hex())
		}
		return nil, apperr.SignerNotAllowed(acceptedHex, ignoredHex)
	}
	return result, nil
}

// extractVKeyWitnesses accepts either shape described in §4.6: a bare
// witness set, or a full transaction from which the witness set is
// pulled.
func extractVKeyWitnesses(blob []byte) ([]cardano.VKeyWitness, error) {
	if ws, err := cardano.ParseWitnessSet(blob); err == nil {
		return ws.VKeyWitnesses, nil
	}
	tx, err := cardano.ParseTransaction(blob)
	if err != nil {
		return nil, err
	}
	if tx.WitnessSet == nil {
		return nil, nil
	}
	return tx.WitnessSet.VKeyWitnesses, nil
}

// NormalizedWitnessSet builds the single-key witness set Bytes
// representation for one accepted witness, per the §4.6 normalization
// rule: a signer's submission is never stored with additional
// witness-set fields it might have smuggled in.
func NormalizedWitnessSet(w cardano.VKeyWitness) ([]byte, error) {
	ws := &cardano.WitnessSet{VKeyWitnesses: []cardano.VKeyWitness{w}}
	return ws.Bytes()
}
