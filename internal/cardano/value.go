package cardano

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Value is the (coin, multi-asset) pair of §3. Every leaf quantity is
// strictly positive; zero entries are pruned on construction by every
// function in this file, never left for callers to clean up.
type Value struct {
	Coin   uint64
	Assets map[PolicyID]map[AssetName]uint64
}

// NewValue builds a pruned Value from a coin amount and an asset table.
func NewValue(coin uint64, assets map[PolicyID]map[AssetName]uint64) Value {
	return Value{Coin: coin, Assets: pruneZero(assets)}
}

// IsEmpty reports whether the value carries no coin and no tokens.
func (v Value) IsEmpty() bool {
	return v.Coin == 0 && len(v.Assets) == 0
}

// HasAssets reports whether the value carries any token.
func (v Value) HasAssets() bool {
	return len(v.Assets) != 0
}

// Add returns the componentwise sum a + b.
func Add(a, b Value) Value {
	out := Value{Coin: a.Coin + b.Coin, Assets: cloneAssets(a.Assets)}
	for policy, names := range b.Assets {
		for name, qty := range names {
			addQty(out.Assets, policy, name, qty)
		}
	}
	out.Assets = pruneZero(out.Assets)
	return out
}

// Sum adds every value in vs, returning the empty Value for an empty slice.
func Sum(vs ...Value) Value {
	total := Value{}
	for _, v := range vs {
		total = Add(total, v)
	}
	return total
}

// Underflow is returned by Sub when a component of b exceeds a.
type Underflow struct {
	Unit string
	Have uint64
	Want uint64
}

func (e *Underflow) Error() string {
	return fmt.Sprintf("value underflow on %s: have %d, need %d", e.Unit, e.Have, e.Want)
}

// Sub returns a - b, or an *Underflow if any resulting component would
// go negative.
func Sub(a, b Value) (Value, error) {
	if b.Coin > a.Coin {
		return Value{}, &Underflow{Unit: LovelaceUnit, Have: a.Coin, Want: b.Coin}
	}
	out := Value{Coin: a.Coin - b.Coin, Assets: cloneAssets(a.Assets)}
	for policy, names := range b.Assets {
		for name, qty := range names {
			have := out.Assets[policy][name]
			if qty > have {
				return Value{}, &Underflow{Unit: JoinUnit(policy, name), Have: have, Want: qty}
			}
			out.Assets[policy][name] = have - qty
		}
	}
	out.Assets = pruneZero(out.Assets)
	return out, nil
}

// WireAmount is one element of the indexer's `amount` array: a unit
// string ("lovelace" or policy||name hex) paired with a decimal-string
// quantity (decimal strings avoid 53-bit float truncation over JSON, §6).
type WireAmount struct {
	Unit     string
	Quantity string
}

// AddAssetsFromWire folds a list of indexer-format (unit, quantity)
// pairs into v, returning the updated Value.
func AddAssetsFromWire(v Value, amounts []WireAmount) (Value, error) {
	out := Value{Coin: v.Coin, Assets: cloneAssets(v.Assets)}
	for _, a := range amounts {
		qty, err := parseQuantity(a.Quantity)
		if err != nil {
			return Value{}, fmt.Errorf("unit %s: %w", a.Unit, err)
		}
		if a.Unit == LovelaceUnit {
			out.Coin += qty
			continue
		}
		policy, name, err := SplitUnit(a.Unit)
		if err != nil {
			return Value{}, err
		}
		addQty(out.Assets, policy, name, qty)
	}
	out.Assets = pruneZero(out.Assets)
	return out, nil
}

// EnsureMinAdaIfTokens bumps v.Coin up to floor when v carries any token
// and its coin is currently below the floor; otherwise it is a no-op.
func EnsureMinAdaIfTokens(v Value, floor uint64) Value {
	if v.HasAssets() && v.Coin < floor {
		v.Coin = floor
	}
	return v
}

// MarshalCBOR encodes Value as the chain's standard form: a bare uint64
// when there are no tokens, or a [coin, multiasset] pair otherwise.
func (v Value) MarshalCBOR() ([]byte, error) {
	if len(v.Assets) == 0 {
		return canonicalEncMode.Marshal(v.Coin)
	}
	return canonicalEncMode.Marshal([]any{v.Coin, v.Assets})
}

// UnmarshalCBOR decodes either wire shape described above.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var coinOnly uint64
	if err := cbor.Unmarshal(data, &coinOnly); err == nil {
		v.Coin = coinOnly
		v.Assets = nil
		return nil
	}
	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid value encoding: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("invalid value array length %d", len(parts))
	}
	if err := cbor.Unmarshal(parts[0], &v.Coin); err != nil {
		return fmt.Errorf("invalid value coin: %w", err)
	}
	var assets map[PolicyID]map[AssetName]uint64
	if err := cbor.Unmarshal(parts[1], &assets); err != nil {
		return fmt.Errorf("invalid value multiasset: %w", err)
	}
	v.Assets = pruneZero(assets)
	return nil
}

func addQty(m map[PolicyID]map[AssetName]uint64, policy PolicyID, name AssetName, qty uint64) {
	if m[policy] == nil {
		m[policy] = make(map[AssetName]uint64)
	}
	m[policy][name] += qty
}

func cloneAssets(m map[PolicyID]map[AssetName]uint64) map[PolicyID]map[AssetName]uint64 {
	out := make(map[PolicyID]map[AssetName]uint64, len(m))
	for policy, names := range m {
		inner := make(map[AssetName]uint64, len(names))
		for name, qty := range names {
			inner[name] = qty
		}
		out[policy] = inner
	}
	return out
}

func pruneZero(m map[PolicyID]map[AssetName]uint64) map[PolicyID]map[AssetName]uint64 {
	if m == nil {
		return nil
	}
	out := make(map[PolicyID]map[AssetName]uint64, len(m))
	for policy, names := range m {
		inner := make(map[AssetName]uint64)
		for name, qty := range names {
			if qty > 0 {
				inner[name] = qty
			}
		}
		if len(inner) > 0 {
			out[policy] = inner
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseQuantity(s string) (uint64, error) {
	var q uint64
	_, err := fmt.Sscan(s, &q)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal quantity %q: %w", s, err)
	}
	return q, nil
}
