// Package gateway implements C1, the abstract Chain Gateway: list UTxOs
// at an address, fetch current protocol parameters, and submit raw
// transaction bytes against the chain indexer HTTP API of §6.
package gateway

import (
	"context"

	"github.com/arclabs/msigcoord/internal/cardano"
)

// UTxO is an unspent output at the controlled script address.
type UTxO struct {
	TxHash      cardano.Hash32
	OutputIndex uint32
	Value       cardano.Value
}

// Params carries the protocol parameter fields this coordinator needs
// (§6): the size-linear fee coefficients and the min-UTxO inputs.
type Params struct {
	MinFeeA            uint64
	MinFeeB            uint64
	PoolDeposit        uint64
	KeyDeposit         uint64
	MaxValSize         uint64
	MaxTxSize          uint64
	CoinsPerUTxOSize   uint64
}

// Gateway abstracts the indexer so the builder and submitter never see
// transport details. Implementations MUST treat utxo ordering as
// deterministic within a single call (§4.1) and release the underlying
// connection on every exit path.
type Gateway interface {
	// UTxOsAt returns every unspent output at a bech32 address.
	UTxOsAt(ctx context.Context, address string) ([]UTxO, error)

	// ProtocolParameters fetches the chain's current protocol parameters.
	ProtocolParameters(ctx context.Context) (*Params, error)

	// Submit posts a serialized transaction and returns its hash on
	// acceptance, or a *apperr.Error of kind SubmitRejectedKind on a
	// non-2xx response.
	Submit(ctx context.Context, txBytes []byte) (string, error)
}
