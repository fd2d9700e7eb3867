package cardano

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyHash(b byte) KeyHash {
	var kh KeyHash
	kh[0] = b
	return kh
}

func TestNativeScript_RoundTrip(t *testing.T) {
	tree := &NativeScript{
		Tag: ScriptAtLeast,
		N:   2,
		Scripts: []*NativeScript{
			{Tag: ScriptPubkey, Key: keyHash(1)},
			{Tag: ScriptPubkey, Key: keyHash(2)},
			{Tag: ScriptPubkey, Key: keyHash(3)},
		},
	}

	raw, err := tree.Bytes()
	require.NoError(t, err)

	decoded, err := ParseNativeScript(raw)
	require.NoError(t, err)
	assert.Equal(t, tree.Tag, decoded.Tag)
	assert.Equal(t, tree.N, decoded.N)
	assert.Len(t, decoded.Scripts, 3)
}

func TestSummarize_AtLeast(t *testing.T) {
	tree := &NativeScript{
		Tag: ScriptAtLeast,
		N:   2,
		Scripts: []*NativeScript{
			{Tag: ScriptPubkey, Key: keyHash(1)},
			{Tag: ScriptPubkey, Key: keyHash(2)},
			{Tag: ScriptPubkey, Key: keyHash(3)},
		},
	}
	raw, err := tree.Bytes()
	require.NoError(t, err)

	summary, err := Summarize(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.MRequired)
	assert.Len(t, summary.RequiredKeyHashes, 3)
}

func TestSummarize_AllRequiresEveryKey(t *testing.T) {
	tree := &NativeScript{
		Tag: ScriptAll,
		Scripts: []*NativeScript{
			{Tag: ScriptPubkey, Key: keyHash(1)},
			{Tag: ScriptPubkey, Key: keyHash(2)},
		},
	}
	raw, err := tree.Bytes()
	require.NoError(t, err)

	summary, err := Summarize(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 2, summary.MRequired)
}

func TestSummarize_AnyRequiresOne(t *testing.T) {
	tree := &NativeScript{
		Tag: ScriptAny,
		Scripts: []*NativeScript{
			{Tag: ScriptPubkey, Key: keyHash(1)},
			{Tag: ScriptPubkey, Key: keyHash(2)},
		},
	}
	raw, err := tree.Bytes()
	require.NoError(t, err)

	summary, err := Summarize(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 1, summary.MRequired)
}

func TestDeriveAddresses_EnterpriseOnly(t *testing.T) {
	script := &NativeScript{Tag: ScriptPubkey, Key: keyHash(7)}

	enterprise, base, err := DeriveAddresses(script, nil, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, enterprise)
	assert.Empty(t, base)

	header, cred, err := DecodeAddress(enterprise)
	require.NoError(t, err)
	assert.Equal(t, byte(0x70), header)
	assert.Len(t, cred, 28)
}

func TestDeriveAddresses_InvalidNetworkID(t *testing.T) {
	script := &NativeScript{Tag: ScriptPubkey, Key: keyHash(7)}
	_, _, err := DeriveAddresses(script, nil, 2)
	assert.Error(t, err)
}

// TestScriptHash_FixedVector checks ScriptHash against an
// independently computed expected value rather than a self-consistent
// round-trip: for a ScriptPubkey node over the all-zero 28-byte key
// hash, the CBOR body is the fixed byte string
// 820058 1c 00*28 (array[2]{0, bytes(28 zeroes)}), and Blake2b-224 of
// the native-script hash tag (0x00) prefixed to that body is the
// expected digest below, derived independently of this package's own
// encoder.
func TestScriptHash_FixedVector(t *testing.T) {
	script := &NativeScript{Tag: ScriptPubkey, Key: KeyHash{}}

	raw, err := script.Bytes()
	require.NoError(t, err)
	require.Equal(t, "8200581c00000000000000000000000000000000000000000000000000000000", hex.EncodeToString(raw))

	hash, err := ScriptHash(script)
	require.NoError(t, err)
	assert.Equal(t, "9dcfe5a661b6bc3af0999d06416d95842ba7c693dc0e246f5e0a5e33", hex.EncodeToString(hash[:]))
}

func TestValue_SubUnderflowIsInsufficientTokenSignal(t *testing.T) {
	policy, err := PolicyIDFromHex("0000000000000000000000000000000000000000000000000000001a")
	require.NoError(t, err)
	assetName := AssetName("gold")

	have := NewValue(5_000_000, map[PolicyID]map[AssetName]uint64{policy: {assetName: 10}})
	want := NewValue(1_000_000, map[PolicyID]map[AssetName]uint64{policy: {assetName: 20}})

	_, err = Sub(have, want)
	require.Error(t, err)
	var underflow *Underflow
	assert.ErrorAs(t, err, &underflow)
}
