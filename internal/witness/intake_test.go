package witness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
)

func vkeyWitness(seed byte) cardano.VKeyWitness {
	return cardano.VKeyWitness{
		VKey:      []byte{seed, seed, seed},
		Signature: []byte{seed + 1, seed + 1},
	}
}

func mustKeyHash(t *testing.T, w cardano.VKeyWitness) cardano.KeyHash {
	t.Helper()
	kh, err := w.KeyHash()
	require.NoError(t, err)
	return kh
}

func TestIntake_AcceptsBareWitnessSet(t *testing.T) {
	w1 := vkeyWitness(1)
	w2 := vkeyWitness(2)
	kh1 := mustKeyHash(t, w1)
	kh2 := mustKeyHash(t, w2)

	ws := &cardano.WitnessSet{VKeyWitnesses: []cardano.VKeyWitness{w1, w2}}
	blob, err := ws.Bytes()
	require.NoError(t, err)

	result, err := Intake(blob, []cardano.KeyHash{kh1, kh2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []cardano.KeyHash{kh1, kh2}, result.Accepted)
	assert.Empty(t, result.Ignored)
}

func TestIntake_PartitionsIgnoredSigners(t *testing.T) {
	allowed := vkeyWitness(1)
	stranger := vkeyWitness(9)
	allowedKh := mustKeyHash(t, allowed)

	ws := &cardano.WitnessSet{VKeyWitnesses: []cardano.VKeyWitness{allowed, stranger}}
	blob, err := ws.Bytes()
	require.NoError(t, err)

	result, err := Intake(blob, []cardano.KeyHash{allowedKh})
	require.NoError(t, err)
	assert.Equal(t, []cardano.KeyHash{allowedKh}, result.Accepted)
	assert.Len(t, result.Ignored, 1)
}

func TestIntake_AllIgnoredFailsSignerNotAllowed(t *testing.T) {
	stranger := vkeyWitness(9)
	ws := &cardano.WitnessSet{VKeyWitnesses: []cardano.VKeyWitness{stranger}}
	blob, err := ws.Bytes()
	require.NoError(t, err)

	allowedKh := cardano.KeyHash{1}
	_, err = Intake(blob, []cardano.KeyHash{allowedKh})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.SignerNotAllowedKind))
}

func TestIntake_ExtractsFromFullTransaction(t *testing.T) {
	w := vkeyWitness(1)
	kh := mustKeyHash(t, w)

	body := &cardano.TxBody{Inputs: []cardano.TxIn{{TxHash: cardano.Hash32{1}, Index: 0}}}
	tx := &cardano.Transaction{
		Body:       body,
		WitnessSet: &cardano.WitnessSet{VKeyWitnesses: []cardano.VKeyWitness{w}},
		IsValid:    true,
	}
	blob, err := tx.Bytes()
	require.NoError(t, err)

	result, err := Intake(blob, []cardano.KeyHash{kh})
	require.NoError(t, err)
	assert.Equal(t, []cardano.KeyHash{kh}, result.Accepted)
}

func TestIntake_DedupesRepeatedKeyWithinOneBlob(t *testing.T) {
	w := vkeyWitness(1)
	kh := mustKeyHash(t, w)

	ws := &cardano.WitnessSet{VKeyWitnesses: []cardano.VKeyWitness{w, w}}
	blob, err := ws.Bytes()
	require.NoError(t, err)

	result, err := Intake(blob, []cardano.KeyHash{kh})
	require.NoError(t, err)
	assert.Len(t, result.Accepted, 1)
}

func TestIntake_MalformedBlobFails(t *testing.T) {
	_, err := Intake([]byte{0xff, 0xff, 0xff}, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidWitnessCbor))
}

func TestNormalizedWitnessSet_ContainsOnlyOneWitness(t *testing.T) {
	w1 := vkeyWitness(1)
	raw, err := NormalizedWitnessSet(w1)
	require.NoError(t, err)

	parsed, err := cardano.ParseWitnessSet(raw)
	require.NoError(t, err)
	require.Len(t, parsed.VKeyWitnesses, 1)
	assert.Equal(t, w1, parsed.VKeyWitnesses[0])
}
