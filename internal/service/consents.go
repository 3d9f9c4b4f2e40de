// Package service implements the application core: consent and session
// lifecycles, the two ingestion paths, and reconciliation. Services depend on
// narrow provider interfaces so tests can substitute stubs.
package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jask/finlink/internal/aa"
	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/fault"
)

// ConsentService manages the consent lifecycle against the AA provider.
type ConsentService struct {
	consents *repository.ConsentRepo
	provider aa.Provider
	log      zerolog.Logger
}

func NewConsentService(consents *repository.ConsentRepo, provider aa.Provider, log zerolog.Logger) *ConsentService {
	return &ConsentService{consents: consents, provider: provider, log: log}
}

// Create registers a consent with the provider and records it locally under
// the provider-assigned id. The stored status is whatever the provider
// reported, PENDING when it reported none.
func (s *ConsentService) Create(ctx context.Context, userID, vua string, rng aa.DateRange, durationMonths int) (*repository.Consent, error) {
	vua = strings.TrimSpace(vua)
	if vua == "" {
		return nil, fault.New(fault.Validation, "vua required")
	}

	resp, err := s.provider.CreateConsent(ctx, aa.ConsentRequest{
		VUA:            vua,
		Range:          rng,
		DurationMonths: durationMonths,
	})
	if err != nil {
		return nil, err
	}

	c := repository.Consent{
		ID:     resp.ID,
		UserID: userID,
		VUA:    vua,
		Status: normalizeStatus(resp.Status, repository.ConsentPending),
	}
	if resp.VUA != "" {
		c.VUA = resp.VUA
	}
	if err := s.consents.Insert(ctx, c); err != nil {
		// provider ids are unique; a second insert means the id was already
		// recorded for some user
		return nil, fault.Wrap(fault.Conflict, "consent already recorded", err)
	}
	s.log.Info().Str("consent_id", c.ID).Str("status", c.Status).Msg("consent created")
	return &c, nil
}

// Get returns a consent owned by the user.
func (s *ConsentService) Get(ctx context.Context, userID, consentID string) (*repository.Consent, error) {
	c, err := s.consents.GetForUser(ctx, userID, consentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.New(fault.NotFound, "consent not found")
	}
	return c, nil
}

// List returns the user's consents, newest first.
func (s *ConsentService) List(ctx context.Context, userID string) ([]repository.Consent, error) {
	return s.consents.ListForUser(ctx, userID)
}

// Poll refreshes a consent's status from the provider and returns the stored
// row. Polling is idempotent: an unchanged provider status writes nothing.
func (s *ConsentService) Poll(ctx context.Context, userID, consentID string) (*repository.Consent, error) {
	c, err := s.consents.GetForUser(ctx, userID, consentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.New(fault.NotFound, "consent not found")
	}
	if c.Terminal() {
		return c, nil
	}

	resp, err := s.provider.GetConsent(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	next, changed := applyConsentStatus(*c, resp)
	if !changed {
		return c, nil
	}
	if err := s.consents.SetStatus(ctx, next.ID, next.Status, next.VUA); err != nil {
		return nil, err
	}
	s.log.Info().Str("consent_id", next.ID).
		Str("from", c.Status).Str("to", next.Status).Msg("consent status changed")
	return &next, nil
}

// applyConsentStatus is the single transition function for consent state.
// Terminal states are absorbing, an empty provider report changes nothing,
// and a provider-reported vua supersedes the locally supplied one.
func applyConsentStatus(current repository.Consent, reported aa.ConsentResponse) (repository.Consent, bool) {
	if current.Terminal() {
		return current, false
	}
	status := normalizeStatus(reported.Status, "")
	if status == "" {
		return current, false
	}
	next := current
	next.Status = status
	if reported.VUA != "" {
		next.VUA = reported.VUA
	}
	if next.Status == current.Status && next.VUA == current.VUA {
		return current, false
	}
	return next, true
}

func normalizeStatus(s, fallback string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	return s
}
