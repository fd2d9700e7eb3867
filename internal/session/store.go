// Package session implements C5, the in-memory session store: the
// build artifact plus accumulated witnesses for one coordinated
// build-sign-submit cycle, keyed by the transaction body hash.
package session

import (
	"sync"
	"time"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/cardano"
	"github.com/arclabs/msigcoord/internal/txbuilder"
)

// Status is the derived (never stored) lifecycle state of §4 State Machine.
type Status string

const (
	StatusCollecting Status = "collecting"
	StatusReady      Status = "ready"
	StatusSubmitted  Status = "submitted"
)

// Record is one session's full state. The native script and body are
// immutable once created; Witnesses is the only field mutated after
// Create.
type Record struct {
	SessionID         string
	Body              *cardano.TxBody
	UnsignedTxBytes   []byte
	BodyBytes         []byte
	NativeScriptBytes []byte
	MRequired         uint32
	RequiredKeyHashes []cardano.KeyHash
	Preview           txbuilder.Preview
	CreatedAt         time.Time

	mu        sync.RWMutex
	witnesses map[cardano.KeyHash]cardano.VKeyWitness
}

// clone returns a copy of r safe to hand to a caller: the witness map is
// copied, the rest of the record is treated as immutable after Create.
func (r *Record) clone() *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := *r
	out.witnesses = make(map[cardano.KeyHash]cardano.VKeyWitness, len(r.witnesses))
	for k, v := range r.witnesses {
		out.witnesses[k] = v
	}
	return &out
}

// Witnesses returns a snapshot of the collected witnesses.
func (r *Record) Witnesses() map[cardano.KeyHash]cardano.VKeyWitness {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[cardano.KeyHash]cardano.VKeyWitness, len(r.witnesses))
	for k, v := range r.witnesses {
		out[k] = v
	}
	return out
}

// Collected reports how many distinct keys have witnessed this session.
func (r *Record) Collected() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.witnesses)
}

// Status derives the session's lifecycle state from its witness count;
// Submitted/Cleared sessions are removed from the store entirely, so
// Status only ever returns Collecting or Ready.
func (r *Record) Status() Status {
	if r.Collected() >= int(r.MRequired) {
		return StatusReady
	}
	return StatusCollecting
}

// appendWitness stores or replaces the witness for kh (last-writer-wins,
// per §4.6 idempotence).
func (r *Record) appendWitness(kh cardano.KeyHash, w cardano.VKeyWitness) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.witnesses[kh] = w
}

// Store is the concurrent, in-memory session map of §4.5. Every
// operation is safe for concurrent use; per-session mutation is guarded
// by that session's own mutex so concurrent sessions never contend with
// each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Record
}

// New returns an empty store.
func New() *Store {
	return &Store{sessions: make(map[string]*Record)}
}

// Create inserts a freshly built session, keyed by its session id. An
// existing record with the same id (identical body bytes, per §3) is
// replaced — the two sessions are indistinguishable by contract.
func (s *Store) Create(artifact *txbuilder.Artifact, requiredKeyHashes []cardano.KeyHash, mRequired uint32, scriptBytes []byte, now time.Time) (*Record, error) {
	bodyBytes, err := artifact.Body.Bytes()
	if err != nil {
		return nil, err
	}
	txBytes, err := artifact.UnsignedTx.Bytes()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		SessionID:         artifact.SessionID,
		Body:              artifact.Body,
		UnsignedTxBytes:   txBytes,
		BodyBytes:         bodyBytes,
		NativeScriptBytes: scriptBytes,
		MRequired:         mRequired,
		RequiredKeyHashes: requiredKeyHashes,
		Preview:           artifact.Preview,
		CreatedAt:         now,
		witnesses:         make(map[cardano.KeyHash]cardano.VKeyWitness),
	}

	s.mu.Lock()
	s.sessions[artifact.SessionID] = rec
	s.mu.Unlock()
	return rec, nil
}

// Read returns a snapshot of the session, or SessionNotFound.
func (s *Store) Read(sessionID string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperr.SessionNotFound(sessionID)
	}
	return rec.clone(), nil
}

// AppendWitness stores a validated witness for kh under sessionID.
func (s *Store) AppendWitness(sessionID string, kh cardano.KeyHash, w cardano.VKeyWitness) error {
	s.mu.RLock()
	rec, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return apperr.SessionNotFound(sessionID)
	}
	rec.appendWitness(kh, w)
	return nil
}

// Clear removes sessionID unconditionally (reset, or post-submit cleanup).
// Clearing an unknown session is a no-op, matching the reset operation's
// "ok" response regardless of whether a session existed (§6).
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// ClearAll discards every session, used by the bare reset operation.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.sessions = make(map[string]*Record)
	s.mu.Unlock()
}

// Sweep removes every session created before the cutoff, returning the
// count removed. The coordination contract never durably persists
// sessions; this bounds unbounded memory growth from abandoned builds
// that are never submitted or reset.
func (s *Store) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rec := range s.sessions {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
