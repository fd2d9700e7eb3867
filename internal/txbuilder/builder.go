// Package txbuilder implements C4, the transaction builder: given a
// controlling script, its UTxOs, a spend mode, and the chain's current
// protocol parameters, it produces an unsigned transaction body whose
// hash becomes the coordinating session id.
package txbuilder

import (
	"context"
	"fmt"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
	"github.com/arclabs/msigcoord/internal/gateway"
)

// Mode selects how the builder constructs outputs.
type Mode string

const (
	// SweepAll sends the entire balance (coin + every token) to DestAddress.
	SweepAll Mode = "sweep_all"
	// Explicit pays the caller-supplied Outputs, with change returned to
	// the multisig address.
	Explicit Mode = "explicit"
)

// OutputRequest is one caller-requested Explicit-mode output.
type OutputRequest struct {
	Address string
	Coin    uint64
	Assets  []cardano.WireAmount
}

// Options carries everything the builder needs to produce one artifact.
type Options struct {
	MultisigAddress     string
	PaymentScriptBytes  []byte
	RequiredKeyHashes   []cardano.KeyHash
	MRequired           uint32
	Mode                Mode
	DestAddress         string
	Outputs             []OutputRequest
	Gateway             gateway.Gateway
	NetworkID           byte
	MinAdaLovelace      uint64
}

// PreviewOutput is one line of the human-readable preview.
type PreviewOutput struct {
	Address string
	Coin    uint64
	Assets  map[string]uint64 // unit -> quantity, for display only
}

// PreviewInput mirrors one consumed UTxO.
type PreviewInput struct {
	TxHash      string
	OutputIndex uint32
	Coin        uint64
	Assets      map[string]uint64
}

// Preview is the human-verifiable summary returned alongside a session id.
type Preview struct {
	Inputs  []PreviewInput
	Outputs []PreviewOutput
	Fee     uint64
}

// Artifact is everything the session store needs to persist: the body,
// the unsigned full transaction (script attached, no key witnesses yet),
// the session id, and the preview.
type Artifact struct {
	SessionID  string
	Body       *cardano.TxBody
	UnsignedTx *cardano.Transaction
	Preview    Preview
}

// perWitnessSizeBuffer is the conservative per-witness byte estimate used
// to buffer the fee against the size growth of appending m key witnesses
// after the body is finalized (§ fee buffer heuristic).
const perWitnessSizeBuffer = 300

// Build runs the full two-pass algorithm of §4.4.
func Build(ctx context.Context, opts Options) (*Artifact, error) {
	if opts.Mode != SweepAll && opts.Mode != Explicit {
		return nil, apperr.New(apperr.InvalidMode, "mode must be sweep_all or explicit").WithDetail("mode", string(opts.Mode))
	}
	if opts.Mode == SweepAll && opts.DestAddress == "" {
		return nil, apperr.New(apperr.MissingParams, "dest_address is required for sweep_all")
	}
	if opts.Mode == Explicit && len(opts.Outputs) == 0 {
		return nil, apperr.New(apperr.MissingParams, "outputs is required for explicit mode")
	}

	script, err := cardano.ParseNativeScript(opts.PaymentScriptBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidScript, "payment script does not parse", err)
	}

	utxos, err := opts.Gateway.UTxOsAt(ctx, opts.MultisigAddress)
	if err != nil {
		return nil, err
	}
	params, err := opts.Gateway.ProtocolParameters(ctx)
	if err != nil {
		return nil, err
	}

	totalIn := cardano.Value{}
	inputs := make([]cardano.TxIn, 0, len(utxos))
	previewInputs := make([]PreviewInput, 0, len(utxos))
	for _, u := range utxos {
		totalIn = cardano.Add(totalIn, u.Value)
		inputs = append(inputs, cardano.TxIn{TxHash: u.TxHash, Index: u.OutputIndex})
		previewInputs = append(previewInputs, PreviewInput{
			TxHash:      u.TxHash.Hex(),
			OutputIndex: u.OutputIndex,
			Coin:        u.Value.Coin,
			Assets:      flattenAssets(u.Value),
		})
	}

	baseOutputs, changeAddress, err := buildBaseOutputs(opts, totalIn)
	if err != nil {
		return nil, err
	}

	requiredSigners := make([]cardano.KeyHash, len(opts.RequiredKeyHashes))
	copy(requiredSigners, opts.RequiredKeyHashes)

	body := &cardano.TxBody{
		Inputs:          inputs,
		RequiredSigners: requiredSigners,
	}

	baseRaw := toTxOuts(baseOutputs)
	outputsSpent := cardano.Sum(outputValues(baseRaw)...)

	fee, change, err := computeFeeAndChange(body, baseRaw, totalIn, outputsSpent, params, opts.MRequired, opts.MinAdaLovelace)
	if err != nil {
		return nil, err
	}
	withChangeRaw, err := appendChange(baseRaw, change, changeAddress)
	if err != nil {
		return nil, err
	}
	fee, change, err = computeFeeAndChange(body, withChangeRaw, totalIn, outputsSpent, params, opts.MRequired, opts.MinAdaLovelace)
	if err != nil {
		return nil, err
	}

	finalLabeled := baseOutputs
	if !change.IsEmpty() {
		finalLabeled = append(append([]labeledOutput{}, baseOutputs...), labeledOutput{address: changeAddress, value: change})
	}
	finalOutputs := toTxOuts(finalLabeled)
	body.Outputs = finalOutputs
	body.Fee = fee

	unsignedTx := cardano.NewUnsignedTransaction(body, script)
	sessionHash, err := body.Hash()
	if err != nil {
		return nil, fmt.Errorf("hashing tx body: %w", err)
	}

	return &Artifact{
		SessionID:  sessionHash.Hex(),
		Body:       body,
		UnsignedTx: unsignedTx,
		Preview: Preview{
			Inputs:  previewInputs,
			Outputs: toPreviewOutputs(finalLabeled),
			Fee:     fee,
		},
	}, nil
}

// labeledOutput pairs a not-yet-encoded value with the bech32 address it
// is destined for, so the preview can report human-readable addresses
// without re-decoding raw header+credential bytes.
type labeledOutput struct {
	address string
	value   cardano.Value
}

// buildBaseOutputs constructs the mode-specific output set (before change
// is known) and reports the bech32 address any change output goes to.
func buildBaseOutputs(opts Options, totalIn cardano.Value) ([]labeledOutput, string, error) {
	switch opts.Mode {
	case SweepAll:
		if _, err := decodeAddress(opts.DestAddress); err != nil {
			return nil, "", err
		}
		sweep := cardano.Value{Coin: opts.MinAdaLovelace, Assets: totalIn.Assets}
		sweep = cardano.EnsureMinAdaIfTokens(sweep, opts.MinAdaLovelace)
		return []labeledOutput{{address: opts.DestAddress, value: sweep}}, opts.DestAddress, nil

	case Explicit:
		outs := make([]labeledOutput, 0, len(opts.Outputs))
		for _, req := range opts.Outputs {
			if _, err := decodeAddress(req.Address); err != nil {
				return nil, "", err
			}
			v, err := cardano.AddAssetsFromWire(cardano.Value{Coin: req.Coin}, req.Assets)
			if err != nil {
				return nil, "", apperr.Wrap(apperr.InvalidUnit, "malformed output asset unit", err)
			}
			v = cardano.EnsureMinAdaIfTokens(v, opts.MinAdaLovelace)
			outs = append(outs, labeledOutput{address: req.Address, value: v})
		}
		if _, err := decodeAddress(opts.MultisigAddress); err != nil {
			return nil, "", err
		}
		return outs, opts.MultisigAddress, nil

	default:
		return nil, "", apperr.New(apperr.InvalidMode, "unreachable mode")
	}
}

// computeFeeAndChange runs one pass of the fee/change loop: serialize the
// body with the given outputs (which may already include a provisional
// change output from a prior pass), measure its size, derive the
// buffered minimum fee, and recompute the resulting change.
func computeFeeAndChange(
	body *cardano.TxBody,
	outputs []cardano.TxOut,
	totalIn cardano.Value,
	outputsSpent cardano.Value,
	params *gateway.Params,
	mRequired uint32,
	minAda uint64,
) (fee uint64, change cardano.Value, err error) {
	provisional := *body
	provisional.Outputs = outputs
	provisional.Fee = 0
	size, err := bodySize(&provisional)
	if err != nil {
		return 0, cardano.Value{}, err
	}

	buffer := params.MinFeeA * perWitnessSizeBuffer * uint64(mRequired)
	fee = params.MinFeeA*uint64(size) + params.MinFeeB + buffer

	spentWithFee := cardano.Add(outputsSpent, cardano.Value{Coin: fee})
	remaining, err := cardano.Sub(totalIn, spentWithFee)
	if err != nil {
		if _, ok := err.(*cardano.Underflow); ok {
			if hasAssetShortfall(totalIn, outputsSpent) {
				return 0, cardano.Value{}, apperr.New(apperr.InsufficientTokensKind, "inputs do not carry enough of a requested token")
			}
			return 0, cardano.Value{}, apperr.New(apperr.InsufficientAdaKind, "inputs do not cover outputs plus fee")
		}
		return 0, cardano.Value{}, err
	}

	change = remaining
	if change.HasAssets() && change.Coin < minAda {
		return 0, cardano.Value{}, apperr.New(apperr.ChangeBelowMinAdaKind, "change carries tokens but cannot reach the minimum ada floor").
			WithDetail("have", change.Coin).WithDetail("floor", minAda)
	}
	return fee, change, nil
}

func hasAssetShortfall(totalIn, spent cardano.Value) bool {
	for policy, names := range spent.Assets {
		for name, qty := range names {
			have := uint64(0)
			if totalIn.Assets != nil {
				have = totalIn.Assets[policy][name]
			}
			if have < qty {
				return true
			}
		}
	}
	return false
}

func outputValues(outs []cardano.TxOut) []cardano.Value {
	vs := make([]cardano.Value, len(outs))
	for i, o := range outs {
		vs[i] = o.Amount
	}
	return vs
}

// appendChange returns a copy of the wire base outputs with a final
// change entry added when change is non-empty.
func appendChange(base []cardano.TxOut, change cardano.Value, changeAddress string) ([]cardano.TxOut, error) {
	if change.IsEmpty() {
		return base, nil
	}
	addrRaw, err := decodeAddress(changeAddress)
	if err != nil {
		return nil, err
	}
	out := make([]cardano.TxOut, len(base), len(base)+1)
	copy(out, base)
	return append(out, cardano.TxOut{Address: addrRaw, Amount: change}), nil
}

// toTxOuts resolves every labeled output's bech32 address to its wire
// header+credential bytes. Callers only ever pass addresses that
// buildBaseOutputs already validated, so a decode failure here is an
// invariant violation, not user input — it panics rather than silently
// dropping an output from the body.
func toTxOuts(labeled []labeledOutput) []cardano.TxOut {
	out := make([]cardano.TxOut, 0, len(labeled))
	for _, l := range labeled {
		addrRaw, err := decodeAddress(l.address)
		if err != nil {
			panic(fmt.Sprintf("txbuilder: address %q passed validation but failed to decode: %v", l.address, err))
		}
		out = append(out, cardano.TxOut{Address: addrRaw, Amount: l.value})
	}
	return out
}

func bodySize(b *cardano.TxBody) (int, error) {
	raw, err := b.Bytes()
	if err != nil {
		return 0, fmt.Errorf("measuring body size: %w", err)
	}
	return len(raw), nil
}

func decodeAddress(addr string) ([]byte, error) {
	header, cred, err := cardano.DecodeAddress(addr)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidAddress, "address does not decode", err)
	}
	raw := make([]byte, 0, 1+len(cred))
	raw = append(raw, header)
	raw = append(raw, cred...)
	return raw, nil
}

func flattenAssets(v cardano.Value) map[string]uint64 {
	if !v.HasAssets() {
		return nil
	}
	out := make(map[string]uint64)
	for policy, names := range v.Assets {
		for name, qty := range names {
			out[cardano.JoinUnit(policy, name)] = qty
		}
	}
	return out
}

func toPreviewOutputs(labeled []labeledOutput) []PreviewOutput {
	result := make([]PreviewOutput, len(labeled))
	for i, l := range labeled {
		result[i] = PreviewOutput{
			Address: l.address,
			Coin:    l.value.Coin,
			Assets:  flattenAssets(l.value),
		}
	}
	return result
}
