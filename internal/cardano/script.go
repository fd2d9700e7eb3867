package cardano

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// ScriptTag discriminates the six native-script node variants of §3.
type ScriptTag int

const (
	ScriptPubkey           ScriptTag = 0
	ScriptAll              ScriptTag = 1
	ScriptAny              ScriptTag = 2
	ScriptAtLeast          ScriptTag = 3
	ScriptInvalidBefore    ScriptTag = 4
	ScriptInvalidHereafter ScriptTag = 5
)

// NativeScript is the recursive tagged sum type of §3: a directed
// acyclic tree, no back-references, so a plain recursive walk suffices
// for every operation below.
type NativeScript struct {
	Tag     ScriptTag
	Key     KeyHash         // ScriptPubkey
	N       uint32          // ScriptAtLeast
	Slot    uint64          // ScriptInvalidBefore / ScriptInvalidHereafter
	Scripts []*NativeScript // ScriptAll / ScriptAny / ScriptAtLeast
}

func (s *NativeScript) MarshalCBOR() ([]byte, error) {
	switch s.Tag {
	case ScriptPubkey:
		return canonicalEncMode.Marshal([]any{int(ScriptPubkey), s.Key})
	case ScriptAll:
		return canonicalEncMode.Marshal([]any{int(ScriptAll), s.Scripts})
	case ScriptAny:
		return canonicalEncMode.Marshal([]any{int(ScriptAny), s.Scripts})
	case ScriptAtLeast:
		return canonicalEncMode.Marshal([]any{int(ScriptAtLeast), s.N, s.Scripts})
	case ScriptInvalidBefore:
		return canonicalEncMode.Marshal([]any{int(ScriptInvalidBefore), s.Slot})
	case ScriptInvalidHereafter:
		return canonicalEncMode.Marshal([]any{int(ScriptInvalidHereafter), s.Slot})
	default:
		return nil, fmt.Errorf("unknown native script tag %d", s.Tag)
	}
}

func (s *NativeScript) UnmarshalCBOR(data []byte) error {
	var parts []cbor.RawMessage
	if err := cbor.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("native script is not an array: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("native script array is empty")
	}
	var tag int
	if err := cbor.Unmarshal(parts[0], &tag); err != nil {
		return fmt.Errorf("native script tag: %w", err)
	}
	s.Tag = ScriptTag(tag)
	switch s.Tag {
	case ScriptPubkey:
		if len(parts) != 2 {
			return fmt.Errorf("pubkey script wants 2 elements, got %d", len(parts))
		}
		return cbor.Unmarshal(parts[1], &s.Key)
	case ScriptAll, ScriptAny:
		if len(parts) != 2 {
			return fmt.Errorf("all/any script wants 2 elements, got %d", len(parts))
		}
		return cbor.Unmarshal(parts[1], &s.Scripts)
	case ScriptAtLeast:
		if len(parts) != 3 {
			return fmt.Errorf("atLeast script wants 3 elements, got %d", len(parts))
		}
		if err := cbor.Unmarshal(parts[1], &s.N); err != nil {
			return err
		}
		return cbor.Unmarshal(parts[2], &s.Scripts)
	case ScriptInvalidBefore, ScriptInvalidHereafter:
		if len(parts) != 2 {
			return fmt.Errorf("timelock script wants 2 elements, got %d", len(parts))
		}
		return cbor.Unmarshal(parts[1], &s.Slot)
	default:
		return fmt.Errorf("unknown native script tag %d", tag)
	}
}

// ParseNativeScript decodes a serialized native-script tree.
func ParseNativeScript(data []byte) (*NativeScript, error) {
	var s NativeScript
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid native script: %w", err)
	}
	return &s, nil
}

// Bytes serializes the script back to its canonical CBOR form; analyzers
// MUST round-trip through it (§3).
func (s *NativeScript) Bytes() ([]byte, error) {
	return canonicalEncMode.Marshal(s)
}

// TraceEntry records one visited node for the UI structure trace.
// ParseNativeScript rejects any tag outside the six known variants, so
// Summarize returns an error for a script containing an unknown node
// kind; the walk's "unknown" entry is never produced from serialized
// input.
type TraceEntry struct {
	Kind   string
	Detail string
}

// ScriptSummary is the derived view of §3: effective threshold, required
// key-hash set, script hash, and optional validity-interval bounds.
type ScriptSummary struct {
	MRequired         uint32
	RequiredKeyHashes []KeyHash
	ScriptHash        [28]byte
	InvalidBefore     *uint64
	InvalidHereafter  *uint64
	Trace             []TraceEntry
}

// Summarize parses the binary form and walks the tree once, per §4.3:
// deduplicated key hashes, every AtLeast.n recorded, and
// max(invalid_before) / min(invalid_hereafter) tracked across the tree.
func Summarize(scriptBytes []byte) (*ScriptSummary, error) {
	tree, err := ParseNativeScript(scriptBytes)
	if err != nil {
		return nil, err
	}

	seen := make(map[KeyHash]struct{})
	var atLeasts []uint32
	hasAny := false
	var invalidBefore, invalidHereafter *uint64
	var trace []TraceEntry

	var walk func(n *NativeScript)
	walk = func(n *NativeScript) {
		if n == nil {
			return
		}
		switch n.Tag {
		case ScriptPubkey:
			seen[n.Key] = struct{}{}
			trace = append(trace, TraceEntry{Kind: "pubkey", Detail: n.Key.Hex()})
		case ScriptAll:
			trace = append(trace, TraceEntry{Kind: "all", Detail: fmt.Sprintf("%d children", len(n.Scripts))})
			for _, c := range n.Scripts {
				walk(c)
			}
		case ScriptAny:
			hasAny = true
			trace = append(trace, TraceEntry{Kind: "any", Detail: fmt.Sprintf("%d children", len(n.Scripts))})
			for _, c := range n.Scripts {
				walk(c)
			}
		case ScriptAtLeast:
			atLeasts = append(atLeasts, n.N)
			trace = append(trace, TraceEntry{Kind: "atLeast", Detail: fmt.Sprintf("n=%d of %d children", n.N, len(n.Scripts))})
			for _, c := range n.Scripts {
				walk(c)
			}
		case ScriptInvalidBefore:
			if invalidBefore == nil || n.Slot > *invalidBefore {
				slot := n.Slot
				invalidBefore = &slot
			}
			trace = append(trace, TraceEntry{Kind: "invalidBefore", Detail: fmt.Sprintf("%d", n.Slot)})
		case ScriptInvalidHereafter:
			if invalidHereafter == nil || n.Slot < *invalidHereafter {
				slot := n.Slot
				invalidHereafter = &slot
			}
			trace = append(trace, TraceEntry{Kind: "invalidHereafter", Detail: fmt.Sprintf("%d", n.Slot)})
		default:
			trace = append(trace, TraceEntry{Kind: "unknown", Detail: fmt.Sprintf("tag=%d", n.Tag)})
		}
	}
	walk(tree)

	keys := make([]KeyHash, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hex() < keys[j].Hex() })

	var mRequired uint32
	switch {
	case len(atLeasts) > 0:
		mRequired = atLeasts[0]
		for _, n := range atLeasts {
			if n > mRequired {
				mRequired = n
			}
		}
	case hasAny:
		mRequired = 1
	default:
		mRequired = uint32(len(keys))
	}

	hash, err := ScriptHash(tree)
	if err != nil {
		return nil, err
	}

	return &ScriptSummary{
		MRequired:         mRequired,
		RequiredKeyHashes: keys,
		ScriptHash:        hash,
		InvalidBefore:     invalidBefore,
		InvalidHereafter:  invalidHereafter,
		Trace:             trace,
	}, nil
}

// nativeScriptHashTag is the chain's standard discriminant prefixed to a
// serialized native script before hashing, so the same 28 bytes never
// collide across different credential-producing script languages.
const nativeScriptHashTag byte = 0x00

// ScriptHash computes the 28-byte Blake2b-224 hash used to derive the
// controlling address, over the tag byte plus the script's canonical CBOR.
func ScriptHash(s *NativeScript) ([28]byte, error) {
	var out [28]byte
	body, err := s.Bytes()
	if err != nil {
		return out, err
	}
	h, err := blake2b.New(28, nil)
	if err != nil {
		return out, fmt.Errorf("blake2b-224 init: %w", err)
	}
	h.Write([]byte{nativeScriptHashTag})
	h.Write(body)
	copy(out[:], h.Sum(nil))
	return out, nil
}
