// Package coordinator wires the Chain Gateway, Transaction Builder,
// Session Store, Witness Intake, and Assembler together behind the
// seven client-facing operations of the coordination contract.
package coordinator

import (
	"context"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/arclabs/msigcoord/internal/apperr"
	"github.com/arclabs/msigcoord/internal/assembler"
	"github.com/arclabs/msigcoord/internal/cardano"
	"github.com/arclabs/msigcoord/internal/gateway"
	"github.com/arclabs/msigcoord/internal/session"
	"github.com/arclabs/msigcoord/internal/txbuilder"
	"github.com/arclabs/msigcoord/internal/witness"
)

// Defaults bundles the per-deployment configuration a Service falls
// back to when a request omits it, matching §6's "server MAY hard-code
// these" allowance.
type Defaults struct {
	MultisigAddress    string
	PaymentScriptBytes []byte
	RequiredKeyHashes  []cardano.KeyHash
	MRequired          uint32
	DestAddress        string
	NetworkID          byte
	MinAdaLovelace     uint64
}

// Service implements the client-facing surface of §6 over a session
// store, a chain gateway, and a set of per-deployment defaults.
type Service struct {
	gateway  gateway.Gateway
	store    *session.Store
	defaults Defaults
	logger   *zap.Logger
}

// New builds a Service. gw and store are owned by the caller and must
// outlive the Service.
func New(gw gateway.Gateway, store *session.Store, defaults Defaults, logger *zap.Logger) *Service {
	return &Service{gateway: gw, store: store, defaults: defaults, logger: logger}
}

// CreateSessionRequest mirrors the create_session operation's input.
type CreateSessionRequest struct {
	Mode        txbuilder.Mode
	DestAddress string
	Outputs     []txbuilder.OutputRequest
}

// CreateSessionResponse mirrors its output.
type CreateSessionResponse struct {
	SessionID string
	Preview   txbuilder.Preview
	MRequired uint32
	Required  []string
}

// CreateSession builds an unsigned transaction and stores it as a new
// session (Building -> Collecting on success).
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	dest := req.DestAddress
	if dest == "" {
		dest = s.defaults.DestAddress
	}

	artifact, err := txbuilder.Build(ctx, txbuilder.Options{
		MultisigAddress:    s.defaults.MultisigAddress,
		PaymentScriptBytes: s.defaults.PaymentScriptBytes,
		RequiredKeyHashes:  s.defaults.RequiredKeyHashes,
		MRequired:          s.defaults.MRequired,
		Mode:               req.Mode,
		DestAddress:        dest,
		Outputs:            req.Outputs,
		Gateway:            s.gateway,
		NetworkID:          s.defaults.NetworkID,
		MinAdaLovelace:     s.defaults.MinAdaLovelace,
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Create(artifact, s.defaults.RequiredKeyHashes, s.defaults.MRequired, s.defaults.PaymentScriptBytes, time.Now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created",
		zap.String("session_id", rec.SessionID),
		zap.Uint32("m_required", rec.MRequired),
		zap.Uint64("fee", rec.Preview.Fee),
	)

	return &CreateSessionResponse{
		SessionID: rec.SessionID,
		Preview:   rec.Preview,
		MRequired: rec.MRequired,
		Required:  keyHashesHex(rec.RequiredKeyHashes),
	}, nil
}

// GetBodyResponse mirrors the get_body operation's output.
type GetBodyResponse struct {
	TxHex     string
	TxBodyHex string
}

// GetBody returns the serialized unsigned transaction and body.
func (s *Service) GetBody(sessionID string) (*GetBodyResponse, error) {
	rec, err := s.store.Read(sessionID)
	if err != nil {
		return nil, err
	}
	return &GetBodyResponse{
		TxHex:     hex.EncodeToString(rec.UnsignedTxBytes),
		TxBodyHex: hex.EncodeToString(rec.BodyBytes),
	}, nil
}

// WitnessEntry pairs a signer's key hash with its stored witness bytes.
type WitnessEntry struct {
	SignerKeyHash string
	WitnessHex    string
}

// ListWitnessesResponse mirrors the list_witnesses operation's output.
type ListWitnessesResponse struct {
	Witnesses []WitnessEntry
	MRequired uint32
	Required  []string
}

// ListWitnesses returns every witness collected so far for a session.
func (s *Service) ListWitnesses(sessionID string) (*ListWitnessesResponse, error) {
	rec, err := s.store.Read(sessionID)
	if err != nil {
		return nil, err
	}

	entries := make([]WitnessEntry, 0, len(rec.Witnesses()))
	for kh, w := range rec.Witnesses() {
		wsBytes, err := witness.NormalizedWitnessSet(w)
		if err != nil {
			return nil, err
		}
		entries = append(entries, WitnessEntry{SignerKeyHash: kh.Hex(), WitnessHex: hex.EncodeToString(wsBytes)})
	}

	return &ListWitnessesResponse{
		Witnesses: entries,
		MRequired: rec.MRequired,
		Required:  keyHashesHex(rec.RequiredKeyHashes),
	}, nil
}

// SubmitWitnessResponse mirrors the submit_witness operation's output.
type SubmitWitnessResponse struct {
	Accepted  []string
	Ignored   []string
	Collected int
	Required  int
}

// SubmitWitness validates and stores a signer's witness blob, per §4.6.
func (s *Service) SubmitWitness(sessionID string, witnessBytes []byte) (*SubmitWitnessResponse, error) {
	rec, err := s.store.Read(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := witness.Intake(witnessBytes, rec.RequiredKeyHashes)
	if err != nil {
		return nil, err
	}

	for kh, w := range result.Witnesses {
		if err := s.store.AppendWitness(sessionID, kh, w); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.Read(sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("witness submitted",
		zap.String("session_id", sessionID),
		zap.Int("accepted", len(result.Accepted)),
		zap.Int("ignored", len(result.Ignored)),
		zap.Int("collected", updated.Collected()),
	)

	return &SubmitWitnessResponse{
		Accepted:  keyHashesHex(result.Accepted),
		Ignored:   keyHashesHex(result.Ignored),
		Collected: updated.Collected(),
		Required:  int(updated.MRequired),
	}, nil
}

// StatusResponse mirrors the status operation's output.
type StatusResponse struct {
	MRequired int
	Required  []string
	Collected []string
	Preview   txbuilder.Preview
	State     session.Status
}

// Status reports a session's collected-signer progress.
func (s *Service) Status(sessionID string) (*StatusResponse, error) {
	rec, err := s.store.Read(sessionID)
	if err != nil {
		return nil, err
	}

	collected := make([]string, 0, rec.Collected())
	for kh := range rec.Witnesses() {
		collected = append(collected, kh.Hex())
	}

	return &StatusResponse{
		MRequired: int(rec.MRequired),
		Required:  keyHashesHex(rec.RequiredKeyHashes),
		Collected: collected,
		Preview:   rec.Preview,
		State:     rec.Status(),
	}, nil
}

// Submit assembles and submits the final transaction for sessionID, per
// §4.7. On success the session is removed from the store.
func (s *Service) Submit(ctx context.Context, sessionID string) (txHash string, err error) {
	rec, err := s.store.Read(sessionID)
	if err != nil {
		return "", err
	}

	txHash, err = assembler.Submit(ctx, s.gateway, rec)
	if err != nil {
		if apperr.Is(err, apperr.NotEnoughWitnessesKind) {
			return "", err
		}
		s.logger.Warn("submit rejected", zap.String("session_id", sessionID), zap.Error(err))
		return "", err
	}

	s.store.Clear(sessionID)
	s.logger.Info("session submitted", zap.String("session_id", sessionID), zap.String("tx_hash", txHash))
	return txHash, nil
}

// Reset discards sessionID, or every session when sessionID is empty.
func (s *Service) Reset(sessionID string) {
	if sessionID == "" {
		s.store.ClearAll()
		s.logger.Info("all sessions reset")
		return
	}
	s.store.Clear(sessionID)
	s.logger.Info("session reset", zap.String("session_id", sessionID))
}

func keyHashesHex(khs []cardano.KeyHash) []string {
	out := make([]string, len(khs))
	for i, kh := range khs {
		out[i] = kh.Hex()
	}
	return out
}
