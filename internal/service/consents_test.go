package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/finlink/internal/aa"
	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/fault"
)

func TestConsentCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	userID := seedUser(t, db)
	provider := &stubProvider{consentResp: aa.ConsentResponse{ID: "cst-1", Status: "PENDING"}}
	svc := NewConsentService(repository.NewConsentRepo(db), provider, nopLog())

	c, err := svc.Create(ctx, userID, "user@bank", aa.DateRange{}, 12)
	require.NoError(t, err)
	require.Equal(t, "cst-1", c.ID)
	require.Equal(t, repository.ConsentPending, c.Status)
	require.Equal(t, "user@bank", c.VUA)
	require.Equal(t, 1, provider.createConsentCalls)

	got, err := svc.Get(ctx, userID, "cst-1")
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
}

func TestConsentCreateValidatesBeforeProviderCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	userID := seedUser(t, db)
	provider := &stubProvider{}
	svc := NewConsentService(repository.NewConsentRepo(db), provider, nopLog())

	_, err := svc.Create(ctx, userID, "   ", aa.DateRange{}, 12)
	require.True(t, fault.Is(err, fault.Validation))
	require.Equal(t, 0, provider.createConsentCalls)
}

func TestConsentCreateDuplicateID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	userID := seedUser(t, db)
	provider := &stubProvider{consentResp: aa.ConsentResponse{ID: "cst-dup", Status: "PENDING"}}
	svc := NewConsentService(repository.NewConsentRepo(db), provider, nopLog())

	_, err := svc.Create(ctx, userID, "user@bank", aa.DateRange{}, 12)
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, "user@bank", aa.DateRange{}, 12)
	require.True(t, fault.Is(err, fault.Conflict))
}

func TestConsentPollTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	userID := seedUser(t, db)
	consent := seedConsent(t, db, userID, repository.ConsentPending)
	provider := &stubProvider{consentStatus: aa.ConsentResponse{ID: consent.ID, Status: "ACTIVE", VUA: "corrected@bank"}}
	svc := NewConsentService(repository.NewConsentRepo(db), provider, nopLog())

	got, err := svc.Poll(ctx, userID, consent.ID)
	require.NoError(t, err)
	require.Equal(t, repository.ConsentActive, got.Status)
	// provider-reported vua supersedes the locally supplied one
	require.Equal(t, "corrected@bank", got.VUA)

	// second poll with the same report changes nothing
	got, err = svc.Poll(ctx, userID, consent.ID)
	require.NoError(t, err)
	require.Equal(t, repository.ConsentActive, got.Status)
	require.Equal(t, 2, provider.getConsentCalls)
}

func TestConsentPollTerminalIsAbsorbing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	userID := seedUser(t, db)
	consent := seedConsent(t, db, userID, repository.ConsentRevoked)
	provider := &stubProvider{consentStatus: aa.ConsentResponse{ID: consent.ID, Status: "ACTIVE"}}
	svc := NewConsentService(repository.NewConsentRepo(db), provider, nopLog())

	got, err := svc.Poll(ctx, userID, consent.ID)
	require.NoError(t, err)
	require.Equal(t, repository.ConsentRevoked, got.Status)
	require.Equal(t, 0, provider.getConsentCalls)
}

func TestConsentScopedToOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedUser(t, db)
	stranger := seedUser(t, db)
	consent := seedConsent(t, db, owner, repository.ConsentActive)
	svc := NewConsentService(repository.NewConsentRepo(db), &stubProvider{}, nopLog())

	_, err := svc.Get(ctx, stranger, consent.ID)
	require.True(t, fault.Is(err, fault.NotFound))

	_, err = svc.Poll(ctx, stranger, consent.ID)
	require.True(t, fault.Is(err, fault.NotFound))
}

func TestApplyConsentStatus(t *testing.T) {
	t.Parallel()
	current := repository.Consent{ID: "c1", Status: repository.ConsentPending, VUA: "a@bank"}

	// empty report changes nothing
	_, changed := applyConsentStatus(current, aa.ConsentResponse{})
	require.False(t, changed)

	// same status and vua changes nothing
	_, changed = applyConsentStatus(current, aa.ConsentResponse{Status: "PENDING", VUA: "a@bank"})
	require.False(t, changed)

	// status transition applies and normalizes case
	next, changed := applyConsentStatus(current, aa.ConsentResponse{Status: "active"})
	require.True(t, changed)
	require.Equal(t, repository.ConsentActive, next.Status)
	require.Equal(t, "a@bank", next.VUA)

	// terminal state absorbs any further report
	revoked := repository.Consent{ID: "c1", Status: repository.ConsentRevoked}
	_, changed = applyConsentStatus(revoked, aa.ConsentResponse{Status: "ACTIVE"})
	require.False(t, changed)
}
