package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jask/finlink/internal/aa"
	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/fault"
)

// SessionService manages data-pull sessions: creation against an active
// consent, and the poll that ingests and reconciles the returned data.
type SessionService struct {
	sessions   *repository.SessionRepo
	consents   *repository.ConsentRepo
	provider   aa.Provider
	ingestor   *Ingestor
	reconciler *Reconciler
	log        zerolog.Logger
}

func NewSessionService(sessions *repository.SessionRepo, consents *repository.ConsentRepo,
	provider aa.Provider, ingestor *Ingestor, reconciler *Reconciler, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions:   sessions,
		consents:   consents,
		provider:   provider,
		ingestor:   ingestor,
		reconciler: reconciler,
		log:        log,
	}
}

// IngestResult summarizes one poll: the session status after the poll, how
// many provider records became rows, how many of those found a device
// counterpart, and the per-record failures that did not stop the run.
type IngestResult struct {
	Session  repository.DataSession
	Ingested int
	Matched  int
	Failures []string
}

// Create opens a data-pull session. The local consent must be ACTIVE; the
// gate runs before any provider call so an inactive consent costs nothing.
func (s *SessionService) Create(ctx context.Context, userID, consentID string, rng aa.DateRange) (*repository.DataSession, error) {
	consent, err := s.consents.GetForUser(ctx, userID, consentID)
	if err != nil {
		return nil, err
	}
	if consent == nil {
		return nil, fault.New(fault.NotFound, "consent not found")
	}
	if consent.Status != repository.ConsentActive {
		return nil, fault.Newf(fault.Precondition, "consent is %s, data pull requires ACTIVE", consent.Status)
	}

	resp, err := s.provider.CreateSession(ctx, aa.SessionRequest{ConsentID: consent.ID, Range: rng})
	if err != nil {
		return nil, err
	}

	sess := repository.DataSession{
		ID:        resp.ID,
		ConsentID: consent.ID,
		Status:    normalizeStatus(resp.Status, repository.SessionPending),
	}
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return nil, fault.Wrap(fault.Conflict, "session already recorded", err)
	}
	s.log.Info().Str("session_id", sess.ID).Str("consent_id", consent.ID).Msg("data session created")
	return &sess, nil
}

// Poll refreshes a session from the provider. The reported status is always
// persisted, including FAILED. On COMPLETED the nested payload is flattened
// and ingested record by record; one bad record is reported in Failures and
// never aborts the rest, and each newly stored row immediately goes through
// reconciliation.
func (s *SessionService) Poll(ctx context.Context, userID, sessionID string) (*IngestResult, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fault.New(fault.NotFound, "session not found")
	}
	consent, err := s.consents.GetForUser(ctx, userID, sess.ConsentID)
	if err != nil {
		return nil, err
	}
	if consent == nil {
		return nil, fault.New(fault.NotFound, "session not found")
	}

	st, err := s.provider.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	status := normalizeStatus(st.Status, sess.Status)
	if status != sess.Status {
		if err := s.sessions.SetStatus(ctx, sess.ID, status); err != nil {
			return nil, err
		}
		sess.Status = status
	}

	result := &IngestResult{Session: *sess}
	if status != repository.SessionCompleted {
		return result, nil
	}

	for i, raw := range st.Transactions() {
		txn, created, err := s.ingestor.IngestAA(ctx, raw, *consent)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		if !created {
			continue
		}
		result.Ingested++

		matched, err := s.reconciler.Reconcile(ctx, *txn)
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("record %d: reconcile: %v", i, err))
			continue
		}
		if matched != nil {
			result.Matched++
		}
	}
	s.log.Info().Str("session_id", sess.ID).Int("ingested", result.Ingested).
		Int("matched", result.Matched).Int("failed", len(result.Failures)).Msg("session poll finished")
	return result, nil
}

// Get returns a session owned by the user via its consent.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*repository.DataSession, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fault.New(fault.NotFound, "session not found")
	}
	consent, err := s.consents.GetForUser(ctx, userID, sess.ConsentID)
	if err != nil {
		return nil, err
	}
	if consent == nil {
		return nil, fault.New(fault.NotFound, "session not found")
	}
	return sess, nil
}
