package txbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
	"github.com/arclabs/msigcoord/internal/gateway"
)

// fakeGateway is a fixed-response stand-in for gateway.Gateway, grounded
// on the same in-memory fixture pattern as the session store's own
// tests: no network, deterministic UTxOs and protocol parameters.
type fakeGateway struct {
	utxos     []gateway.UTxO
	params    *gateway.Params
	submitted []byte
	submitErr error
}

func (f *fakeGateway) UTxOsAt(ctx context.Context, address string) ([]gateway.UTxO, error) {
	return f.utxos, nil
}

func (f *fakeGateway) ProtocolParameters(ctx context.Context) (*gateway.Params, error) {
	return f.params, nil
}

func (f *fakeGateway) Submit(ctx context.Context, txBytes []byte) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = txBytes
	return "deadbeef", nil
}

func defaultParams() *gateway.Params {
	return &gateway.Params{
		MinFeeA:          44,
		MinFeeB:          155381,
		MaxValSize:       5000,
		MaxTxSize:        16384,
		CoinsPerUTxOSize: 4310,
	}
}

func mustPubkeyScript(t *testing.T, keys ...byte) ([]byte, []cardano.KeyHash) {
	t.Helper()
	khs := make([]cardano.KeyHash, len(keys))
	children := make([]*cardano.NativeScript, len(keys))
	for i, k := range keys {
		var kh cardano.KeyHash
		kh[0] = k
		khs[i] = kh
		children[i] = &cardano.NativeScript{Tag: cardano.ScriptPubkey, Key: kh}
	}
	script := &cardano.NativeScript{Tag: cardano.ScriptAll, Scripts: children}
	raw, err := script.Bytes()
	require.NoError(t, err)
	return raw, khs
}

func mustAddress(t *testing.T, scriptBytes []byte) string {
	t.Helper()
	script, err := cardano.ParseNativeScript(scriptBytes)
	require.NoError(t, err)
	addr, _, err := cardano.DeriveAddresses(script, nil, 0)
	require.NoError(t, err)
	return addr
}

func TestBuild_SweepAll_CoinOnly(t *testing.T) {
	scriptBytes, khs := mustPubkeyScript(t, 1, 2)
	addr := mustAddress(t, scriptBytes)
	destAddr := mustDestAddress(t)

	gw := &fakeGateway{
		utxos: []gateway.UTxO{
			{TxHash: cardano.Hash32{1}, OutputIndex: 0, Value: cardano.Value{Coin: 10_000_000}},
		},
		params: defaultParams(),
	}

	artifact, err := Build(context.Background(), Options{
		MultisigAddress:    addr,
		PaymentScriptBytes: scriptBytes,
		RequiredKeyHashes:  khs,
		MRequired:          2,
		Mode:               SweepAll,
		DestAddress:        destAddr,
		Gateway:            gw,
		NetworkID:          0,
		MinAdaLovelace:     2_000_000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, artifact.SessionID)
	require.NotEmpty(t, artifact.Preview.Outputs)

	var totalOut uint64
	for _, o := range artifact.Preview.Outputs {
		assert.Equal(t, destAddr, o.Address)
		totalOut += o.Coin
	}
	assert.Greater(t, artifact.Preview.Fee, uint64(0))
	assert.Equal(t, uint64(10_000_000), totalOut+artifact.Preview.Fee)
}

func TestBuild_SweepAll_CarriesTokensToDest(t *testing.T) {
	scriptBytes, khs := mustPubkeyScript(t, 1)
	addr := mustAddress(t, scriptBytes)
	destAddr := mustDestAddress(t)

	policy, err := cardano.PolicyIDFromHex("0000000000000000000000000000000000000000000000000000001a")
	require.NoError(t, err)

	gw := &fakeGateway{
		utxos: []gateway.UTxO{
			{
				TxHash:      cardano.Hash32{1},
				OutputIndex: 0,
				Value: cardano.NewValue(10_000_000, map[cardano.PolicyID]map[cardano.AssetName]uint64{
					policy: {"gold": 500},
				}),
			},
		},
		params: defaultParams(),
	}

	artifact, err := Build(context.Background(), Options{
		MultisigAddress:    addr,
		PaymentScriptBytes: scriptBytes,
		RequiredKeyHashes:  khs,
		MRequired:          1,
		Mode:               SweepAll,
		DestAddress:        destAddr,
		Gateway:            gw,
		NetworkID:          0,
		MinAdaLovelace:     2_000_000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.Preview.Outputs)

	var sawAssets bool
	for _, o := range artifact.Preview.Outputs {
		assert.Equal(t, destAddr, o.Address)
		if len(o.Assets) > 0 {
			sawAssets = true
		}
	}
	assert.True(t, sawAssets, "sweep-all must carry every token to the destination address")
}

func TestBuild_SweepAll_EmptyUTxOSetIsInsufficientAda(t *testing.T) {
	scriptBytes, khs := mustPubkeyScript(t, 1)
	addr := mustAddress(t, scriptBytes)
	destAddr := mustDestAddress(t)

	gw := &fakeGateway{params: defaultParams()}

	_, err := Build(context.Background(), Options{
		MultisigAddress:    addr,
		PaymentScriptBytes: scriptBytes,
		RequiredKeyHashes:  khs,
		MRequired:          1,
		Mode:               SweepAll,
		DestAddress:        destAddr,
		Gateway:            gw,
		NetworkID:          0,
		MinAdaLovelace:     2_000_000,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InsufficientAdaKind))
}

func TestBuild_Explicit_InsufficientTokens(t *testing.T) {
	scriptBytes, khs := mustPubkeyScript(t, 1)
	addr := mustAddress(t, scriptBytes)
	destAddr := mustDestAddress(t)

	policy, err := cardano.PolicyIDFromHex("0000000000000000000000000000000000000000000000000000001a")
	require.NoError(t, err)

	gw := &fakeGateway{
		utxos: []gateway.UTxO{
			{
				TxHash:      cardano.Hash32{1},
				OutputIndex: 0,
				Value: cardano.NewValue(10_000_000, map[cardano.PolicyID]map[cardano.AssetName]uint64{
					policy: {"gold": 10},
				}),
			},
		},
		params: defaultParams(),
	}

	_, err = Build(context.Background(), Options{
		MultisigAddress:    addr,
		PaymentScriptBytes: scriptBytes,
		RequiredKeyHashes:  khs,
		MRequired:          1,
		Mode:               Explicit,
		Gateway:            gw,
		NetworkID:          0,
		MinAdaLovelace:     2_000_000,
		Outputs: []OutputRequest{
			{
				Address: destAddr,
				Coin:    2_000_000,
				Assets: []cardano.WireAmount{
					{Unit: policy.Hex() + cardano.AssetName("gold").Hex(), Quantity: "50"},
				},
			},
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InsufficientTokensKind))
}

func TestBuild_Explicit_ChangeReturnsToMultisig(t *testing.T) {
	scriptBytes, khs := mustPubkeyScript(t, 1)
	addr := mustAddress(t, scriptBytes)
	destAddr := mustDestAddress(t)

	gw := &fakeGateway{
		utxos: []gateway.UTxO{
			{TxHash: cardano.Hash32{1}, OutputIndex: 0, Value: cardano.Value{Coin: 20_000_000}},
		},
		params: defaultParams(),
	}

	artifact, err := Build(context.Background(), Options{
		MultisigAddress:    addr,
		PaymentScriptBytes: scriptBytes,
		RequiredKeyHashes:  khs,
		MRequired:          1,
		Mode:               Explicit,
		Gateway:            gw,
		NetworkID:          0,
		MinAdaLovelace:     2_000_000,
		Outputs: []OutputRequest{
			{Address: destAddr, Coin: 5_000_000},
		},
	})
	require.NoError(t, err)
	require.Len(t, artifact.Preview.Outputs, 2)
	assert.Equal(t, addr, artifact.Preview.Outputs[1].Address)
}

func TestBuild_InvalidMode(t *testing.T) {
	scriptBytes, khs := mustPubkeyScript(t, 1)
	_, err := Build(context.Background(), Options{
		PaymentScriptBytes: scriptBytes,
		RequiredKeyHashes:  khs,
		Mode:               "bogus",
		Gateway:            &fakeGateway{params: defaultParams()},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidMode))
}

// mustDestAddress derives a throwaway destination address from a
// single-key pubkey script, for tests that only need a valid address
// distinct from the multisig address under test.
func mustDestAddress(t *testing.T) string {
	t.Helper()
	raw, _ := mustPubkeyScript(t, 9)
	return mustAddress(t, raw)
}
