package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
)

// HTTPGateway implements Gateway against a Blockfrost-shaped chain
// indexer REST API: a single base URL, a project-id auth header, and
// one JSON or CBOR-body endpoint per capability.
type HTTPGateway struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPGateway builds a gateway client with the given request timeout.
func NewHTTPGateway(baseURL, projectID string, timeout time.Duration, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL:   baseURL,
		projectID: projectID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Close releases idle connections held by the underlying HTTP client.
func (g *HTTPGateway) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

type utxoEntry struct {
	TxHash      string      `json:"tx_hash"`
	OutputIndex uint32      `json:"output_index"`
	Amount      []wireAsset `json:"amount"`
}

type wireAsset struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// UTxOsAt calls GET /addresses/{bech32}/utxos?order=desc.
func (g *HTTPGateway) UTxOsAt(ctx context.Context, address string) ([]UTxO, error) {
	url := fmt.Sprintf("%s/addresses/%s/utxos?order=desc", g.baseURL, address)
	body, err := g.doGet(ctx, url)
	if err != nil {
		return nil, err
	}

	var entries []utxoEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, apperr.Wrap(apperr.ChainErrorKind, "malformed utxo list from indexer", err)
	}

	out := make([]UTxO, 0, len(entries))
	for _, e := range entries {
		txHashBytes, err := hex.DecodeString(e.TxHash)
		if err != nil || len(txHashBytes) != 32 {
			return nil, apperr.New(apperr.ChainErrorKind, "indexer returned malformed utxo tx hash").WithDetail("tx_hash", e.TxHash)
		}
		var h cardano.Hash32
		copy(h[:], txHashBytes)

		wireAmounts := make([]cardano.WireAmount, len(e.Amount))
		for i, a := range e.Amount {
			wireAmounts[i] = cardano.WireAmount{Unit: a.Unit, Quantity: a.Quantity}
		}
		val, err := cardano.AddAssetsFromWire(cardano.Value{}, wireAmounts)
		if err != nil {
			return nil, apperr.Wrap(apperr.ChainErrorKind, "indexer returned malformed asset amount", err)
		}

		out = append(out, UTxO{TxHash: h, OutputIndex: e.OutputIndex, Value: val})
	}
	return out, nil
}

type protocolParamsWire struct {
	MinFeeA          uint64 `json:"min_fee_a"`
	MinFeeB          uint64 `json:"min_fee_b"`
	PoolDeposit      string `json:"pool_deposit"`
	KeyDeposit       string `json:"key_deposit"`
	MaxValSize       string `json:"max_val_size"`
	MaxTxSize        uint64 `json:"max_tx_size"`
	CoinsPerUTxOSize string `json:"coins_per_utxo_size"`
	// legacy field name carried by older indexer versions
	CoinsPerUTxOByte string `json:"coins_per_utxo_byte"`
}

// ProtocolParameters calls GET /epochs/latest/parameters.
func (g *HTTPGateway) ProtocolParameters(ctx context.Context) (*Params, error) {
	url := fmt.Sprintf("%s/epochs/latest/parameters", g.baseURL)
	body, err := g.doGet(ctx, url)
	if err != nil {
		return nil, err
	}

	var wire protocolParamsWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, apperr.Wrap(apperr.ChainErrorKind, "malformed protocol parameters from indexer", err)
	}

	coinsPerUTxOSize := wire.CoinsPerUTxOSize
	if coinsPerUTxOSize == "" {
		coinsPerUTxOSize = wire.CoinsPerUTxOByte
	}

	parsed, err := parseUints(wire.PoolDeposit, wire.KeyDeposit, wire.MaxValSize, coinsPerUTxOSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.ChainErrorKind, "malformed protocol parameter numeric field", err)
	}

	return &Params{
		MinFeeA:          wire.MinFeeA,
		MinFeeB:          wire.MinFeeB,
		PoolDeposit:      parsed[0],
		KeyDeposit:       parsed[1],
		MaxValSize:       parsed[2],
		MaxTxSize:        wire.MaxTxSize,
		CoinsPerUTxOSize: parsed[3],
	}, nil
}

// Submit calls POST /tx/submit with the raw CBOR transaction body.
func (g *HTTPGateway) Submit(ctx context.Context, txBytes []byte) (string, error) {
	url := fmt.Sprintf("%s/tx/submit", g.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(txBytes))
	if err != nil {
		return "", apperr.Wrap(apperr.ChainErrorKind, "failed to build submit request", err)
	}
	req.Header.Set("Content-Type", "application/cbor")
	req.Header.Set("project_id", g.projectID)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", g.networkErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.ChainErrorKind, "failed to read submit response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn("chain node rejected submit", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return "", apperr.SubmitRejected(string(body))
	}

	if decoded, err := decodeQuotedHash(body); err == nil {
		return decoded, nil
	}

	h, err := cardano.Blake2b256(txBytes)
	if err != nil {
		return "", apperr.Wrap(apperr.ChainErrorKind, "failed to compute fallback tx hash", err)
	}
	return hex.EncodeToString(h[:]), nil
}

// decodeQuotedHash accepts the indexer's own response body as the
// submitted transaction's hash when it is a valid JSON hex string.
func decodeQuotedHash(body []byte) (string, error) {
	var s string
	if err := json.Unmarshal(body, &s); err != nil {
		return "", err
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", err
	}
	return s, nil
}

func (g *HTTPGateway) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.ChainErrorKind, "failed to build indexer request", err)
	}
	req.Header.Set("project_id", g.projectID)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, g.networkErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ChainErrorKind, "failed to read indexer response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn("indexer returned non-2xx", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, apperr.New(apperr.ChainErrorKind, "indexer request failed").
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}
	return body, nil
}

// networkErr classifies a failed HTTP round-trip as a timeout or a
// generic network error per the ChainError classification of §7.
func (g *HTTPGateway) networkErr(err error) error {
	if te, ok := err.(interface{ Timeout() bool }); ok && te.Timeout() {
		return apperr.Wrap(apperr.ChainErrorKind, "indexer request timed out", err).WithDetail("classification", "timeout")
	}
	return apperr.Wrap(apperr.ChainErrorKind, "indexer network error", err).WithDetail("classification", "network_error")
}

func parseUints(fields ...string) ([4]uint64, error) {
	var out [4]uint64
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
