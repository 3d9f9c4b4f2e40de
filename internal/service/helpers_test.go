package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/finlink/internal/aa"
	"github.com/jask/finlink/internal/classifier"
	"github.com/jask/finlink/internal/database"
	"github.com/jask/finlink/internal/database/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO users(id, mobile) VALUES(?, ?)`, id, "9"+id[:9])
	require.NoError(t, err)
	return id
}

func seedConsent(t *testing.T, db *sql.DB, userID, status string) repository.Consent {
	t.Helper()
	c := repository.Consent{ID: "cst-" + uuid.NewString(), UserID: userID, VUA: "user@bank", Status: status}
	_, err := db.Exec(`INSERT INTO consents(id, user_id, vua, status) VALUES(?, ?, ?, ?)`,
		c.ID, c.UserID, c.VUA, c.Status)
	require.NoError(t, err)
	return c
}

func amt(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return &d
}

func strPtr(s string) *string { return &s }

func deviceTxn(id, userID, amount string, ts time.Time, typ string) repository.Transaction {
	d := decimal.RequireFromString(amount)
	return repository.Transaction{
		ID:         id,
		UserID:     userID,
		Source:     repository.SourceSMS,
		Narration:  "seeded",
		Amount:     &d,
		TxnTime:    &ts,
		TxnType:    &typ,
		RawPayload: "seeded",
	}
}

func aaTxn(id, userID, amount string, ts time.Time, typ string) repository.Transaction {
	d := decimal.RequireFromString(amount)
	return repository.Transaction{
		ID:         id,
		UserID:     userID,
		Source:     repository.SourceAA,
		Narration:  "seeded",
		Amount:     &d,
		TxnTime:    &ts,
		TxnType:    &typ,
		RawPayload: "seeded",
	}
}

// stubProvider is an in-memory AA provider with call counters.
type stubProvider struct {
	consentResp   aa.ConsentResponse
	consentStatus aa.ConsentResponse
	sessionResp   aa.SessionResponse
	sessionStatus aa.SessionStatus
	err           error

	createConsentCalls int
	getConsentCalls    int
	createSessionCalls int
	getSessionCalls    int
}

func (p *stubProvider) CreateConsent(_ context.Context, _ aa.ConsentRequest) (aa.ConsentResponse, error) {
	p.createConsentCalls++
	return p.consentResp, p.err
}

func (p *stubProvider) GetConsent(_ context.Context, _ string) (aa.ConsentResponse, error) {
	p.getConsentCalls++
	return p.consentStatus, p.err
}

func (p *stubProvider) CreateSession(_ context.Context, _ aa.SessionRequest) (aa.SessionResponse, error) {
	p.createSessionCalls++
	return p.sessionResp, p.err
}

func (p *stubProvider) GetSession(_ context.Context, _ string) (aa.SessionStatus, error) {
	p.getSessionCalls++
	return p.sessionStatus, p.err
}

// stubClassifier returns a canned result.
type stubClassifier struct {
	res classifier.Result
	err error
}

func (c *stubClassifier) Classify(_ context.Context, _, _ string) (classifier.Result, error) {
	return c.res, c.err
}

func nopLog() zerolog.Logger { return zerolog.Nop() }
