package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arclabs/msigcoord/internal/apperr"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestUTxOsAt_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/addresses/addr_test1xyz/utxos", r.URL.Path)
		assert.Equal(t, "desc", r.URL.Query().Get("order"))
		assert.Equal(t, "proj123", r.Header.Get("project_id"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]utxoEntry{
			{
				TxHash:      "aa000000000000000000000000000000000000000000000000000000000000bb",
				OutputIndex: 0,
				Amount: []wireAsset{
					{Unit: "lovelace", Quantity: "5000000"},
				},
			},
		})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	utxos, err := gw.UTxOsAt(context.Background(), "addr_test1xyz")
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, uint64(5000000), utxos[0].Value.Coin)
	assert.False(t, utxos[0].Value.HasAssets())
}

func TestUTxOsAt_MalformedTxHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]utxoEntry{{TxHash: "not-hex", OutputIndex: 0}})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	_, err := gw.UTxOsAt(context.Background(), "addr_test1xyz")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ChainErrorKind))
}

func TestUTxOsAt_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	_, err := gw.UTxOsAt(context.Background(), "addr_test1xyz")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ChainErrorKind))
}

func TestProtocolParameters_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epochs/latest/parameters", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(protocolParamsWire{
			MinFeeA:          44,
			MinFeeB:          155381,
			PoolDeposit:      "500000000",
			KeyDeposit:       "2000000",
			MaxValSize:       "5000",
			MaxTxSize:        16384,
			CoinsPerUTxOSize: "4310",
		})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	params, err := gw.ProtocolParameters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(44), params.MinFeeA)
	assert.Equal(t, uint64(155381), params.MinFeeB)
	assert.Equal(t, uint64(4310), params.CoinsPerUTxOSize)
}

func TestProtocolParameters_LegacyFieldName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"min_fee_a":44,"min_fee_b":155381,"pool_deposit":"500000000","key_deposit":"2000000","max_val_size":"5000","max_tx_size":16384,"coins_per_utxo_byte":"4310"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	params, err := gw.ProtocolParameters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4310), params.CoinsPerUTxOSize)
}

func TestSubmit_Accepted(t *testing.T) {
	txHash := "cc00000000000000000000000000000000000000000000000000000000dd"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/cbor", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(txHash)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	got, err := gw.Submit(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, txHash, got)
}

func TestSubmit_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"BadInputsUTxO"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	_, err := gw.Submit(context.Background(), []byte{0x01, 0x02})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.SubmitRejectedKind))
}

func TestSubmit_FallsBackToComputedHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "proj123", 5*time.Second, testLogger())
	got, err := gw.Submit(context.Background(), []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Len(t, got, 64)
}
