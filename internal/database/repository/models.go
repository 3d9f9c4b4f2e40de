package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Consent statuses reported by the AA provider. REVOKED and EXPIRED are
// terminal; a consent row is never deleted.
const (
	ConsentPending = "PENDING"
	ConsentActive  = "ACTIVE"
	ConsentRevoked = "REVOKED"
	ConsentExpired = "EXPIRED"
)

// Data session statuses.
const (
	SessionPending   = "PENDING"
	SessionCompleted = "COMPLETED"
	SessionFailed    = "FAILED"
)

// Transaction sources. SMS and EMAIL are device-originated and form the
// candidate pool the reconciler matches AA rows against.
const (
	SourceAA    = "AA"
	SourceSMS   = "SMS"
	SourceEmail = "EMAIL"
)

// Transaction types as reported by the provider or classifier.
const (
	TypeDebit   = "debit"
	TypeCredit  = "credit"
	TypeRefund  = "refund"
	TypeUnknown = "unknown"
)

// User represents a user row, keyed by mobile number.
type User struct {
	ID        string
	Mobile    string
	Email     *string
	CreatedAt time.Time
}

// OTPRequest represents an issued one-time code.
type OTPRequest struct {
	ID        string
	Mobile    string
	Code      string
	CreatedAt time.Time
}

// Consent represents a consent row.
type Consent struct {
	ID        string
	UserID    string
	VUA       string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the consent can never change status again.
func (c Consent) Terminal() bool {
	return c.Status == ConsentRevoked || c.Status == ConsentExpired
}

// DataSession represents a data-pull session row.
type DataSession struct {
	ID        string
	ConsentID string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction represents a transaction row from either source. Amount and
// TxnTime are nil when the source payload could not be parsed; such rows are
// kept for audit but never matched. MatchedTxnID is a weak reference to the
// opposite-source counterpart and is the only field mutated after insert.
type Transaction struct {
	ID           string
	UserID       string
	ConsentID    *string
	Source       string
	Narration    string
	Amount       *decimal.Decimal
	TxnTime      *time.Time
	TxnType      *string
	PaymentMode  *string
	MerchantName *string
	MainCategory *string
	SubCategory  *string
	RawPayload   string
	MatchedTxnID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Matchable reports whether the row carries the fields reconciliation
// requires. Rows missing amount or timestamp are guaranteed unmatchable.
func (t Transaction) Matchable() bool {
	return t.Amount != nil && t.TxnTime != nil
}
