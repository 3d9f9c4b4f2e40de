package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/finlink/internal/aa"
	"github.com/jask/finlink/internal/classifier"
	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/fault"
)

// Ingestor writes transactions from both pipelines. AA rows keep the
// provider's txnId; device rows get a synthetic source-prefixed uuid.
type Ingestor struct {
	txns *repository.TransactionRepo
	cls  classifier.Classifier
	loc  *time.Location
	log  zerolog.Logger
}

func NewIngestor(txns *repository.TransactionRepo, cls classifier.Classifier, loc *time.Location, log zerolog.Logger) *Ingestor {
	if loc == nil {
		loc = time.UTC
	}
	return &Ingestor{txns: txns, cls: cls, loc: loc, log: log}
}

// IngestAA persists one raw provider transaction under the given consent.
// created=false means the record was skipped: no txnId, or already stored.
// A malformed amount or timestamp does not fail ingestion; the field is
// stored null and the row stays unmatchable.
func (g *Ingestor) IngestAA(ctx context.Context, raw json.RawMessage, consent repository.Consent) (*repository.Transaction, bool, error) {
	parsed, err := aa.DecodeTxn(raw)
	if err != nil {
		return nil, false, fault.Wrap(fault.Validation, "undecodable provider transaction", err)
	}
	if parsed.TxnID == "" {
		g.log.Warn().Str("consent_id", consent.ID).Msg("provider transaction without txnId skipped")
		return nil, false, nil
	}

	t := repository.Transaction{
		ID:         parsed.TxnID,
		UserID:     consent.UserID,
		ConsentID:  &consent.ID,
		Source:     repository.SourceAA,
		Narration:  parsed.Narration,
		TxnType:    normalizeType(parsed.Type),
		RawPayload: string(raw),
	}
	if d, err := decimal.NewFromString(parsed.Amount.String()); err == nil {
		t.Amount = &d
	}
	if ts := parseProviderTime(parsed.Timestamp, g.loc); ts != nil {
		t.TxnTime = ts
	}
	if parsed.Mode != "" {
		t.PaymentMode = &parsed.Mode
	}

	if err := g.txns.Insert(ctx, t); err != nil {
		// skip duplicates on unique constraint
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &t, true, nil
}

// IngestDevice classifies one device narration (an SMS or a forwarded email)
// and persists it when the classifier says it describes a transaction.
// A nil transaction with a nil error means the narration was discarded as a
// non-transaction; that is the expected path for promos and alerts.
func (g *Ingestor) IngestDevice(ctx context.Context, userID, narration string, receivedAt time.Time, source string) (*repository.Transaction, error) {
	narration = strings.TrimSpace(narration)
	if narration == "" {
		return nil, fault.New(fault.Validation, "message content required")
	}
	if receivedAt.IsZero() {
		return nil, fault.New(fault.Validation, "message timestamp required")
	}
	if source != repository.SourceSMS && source != repository.SourceEmail {
		return nil, fault.Newf(fault.Validation, "unsupported source %q", source)
	}

	res, err := g.cls.Classify(ctx, narration, strings.ToLower(source))
	if err != nil {
		return nil, err
	}
	if !res.IsTransaction {
		return nil, nil
	}

	ts := receivedAt.In(g.loc)
	t := repository.Transaction{
		ID:         fmt.Sprintf("%s-%s", strings.ToLower(source), uuid.NewString()),
		UserID:     userID,
		Source:     source,
		Narration:  narration,
		Amount:     res.Amount,
		TxnTime:    &ts,
		TxnType:    normalizeType(res.TransactionType),
		RawPayload: narration,
	}
	if res.PaymentMode != "" {
		t.PaymentMode = &res.PaymentMode
	}
	if res.MerchantName != "" {
		t.MerchantName = &res.MerchantName
	}
	if res.MainCategory != "" {
		t.MainCategory = &res.MainCategory
	}
	if res.SubCategory != "" {
		t.SubCategory = &res.SubCategory
	}

	if err := g.txns.Insert(ctx, t); err != nil {
		return nil, err
	}
	g.log.Debug().Str("txn_id", t.ID).Str("source", source).Msg("device transaction stored")
	return &t, nil
}

// normalizeType lowercases a reported transaction type, mapping a missing or
// blank one to "unknown" so two rows the source never typed still compare
// equal during reconciliation.
func normalizeType(s string) *string {
	typ := strings.ToLower(strings.TrimSpace(s))
	if typ == "" {
		typ = repository.TypeUnknown
	}
	return &typ
}

// parseProviderTime reads the provider's ISO-8601 UTC timestamp and converts
// it to the configured local zone. Unreadable timestamps map to nil.
func parseProviderTime(s string, loc *time.Location) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			local := t.In(loc)
			return &local
		}
	}
	return nil
}
