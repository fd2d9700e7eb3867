// Package assembler implements C7: combining a session's body, native
// script, and aggregated key-witnesses into a final transaction and
// handing it to the Chain Gateway.
package assembler

import (
	"context"
	"sort"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
	"github.com/arclabs/msigcoord/internal/gateway"
	"github.com/arclabs/msigcoord/internal/session"
)

// Submit assembles rec's final transaction and submits it via gw. On
// acceptance, the caller is responsible for clearing the session. On
// rejection, the session is left untouched so the signer set can retry.
func Submit(ctx context.Context, gw gateway.Gateway, rec *session.Record) (txHash string, err error) {
	witnesses := rec.Witnesses()
	if len(witnesses) < int(rec.MRequired) {
		return "", apperr.NotEnoughWitnesses(len(witnesses), int(rec.MRequired))
	}

	script, err := cardano.ParseNativeScript(rec.NativeScriptBytes)
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidScript, "stored native script failed to parse", err)
	}

	keys := make([]cardano.KeyHash, 0, len(witnesses))
	for kh := range witnesses {
		keys = append(keys, kh)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })

	vkeyWitnesses := make([]cardano.VKeyWitness, 0, len(keys))
	for _, kh := range keys {
		vkeyWitnesses = append(vkeyWitnesses, witnesses[kh])
	}

	finalTx := &cardano.Transaction{
		Body: rec.Body,
		WitnessSet: &cardano.WitnessSet{
			VKeyWitnesses: vkeyWitnesses,
			NativeScripts: []*cardano.NativeScript{script},
		},
		IsValid: true,
	}

	txBytes, err := finalTx.Bytes()
	if err != nil {
		return "", err
	}

	return gw.Submit(ctx, txBytes)
}
