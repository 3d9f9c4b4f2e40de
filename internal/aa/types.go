package aa

import (
	"context"
	"encoding/json"
	"time"
)

// Provider is the narrow contract the services consume. The production
// implementation is Client; tests substitute stubs.
type Provider interface {
	CreateConsent(ctx context.Context, req ConsentRequest) (ConsentResponse, error)
	GetConsent(ctx context.Context, consentID string) (ConsentResponse, error)
	CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (SessionStatus, error)
}

// DateRange bounds a consent or data pull.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ConsentRequest creates a consent for a vua.
type ConsentRequest struct {
	VUA            string
	Range          DateRange
	DurationMonths int
}

// ConsentResponse is the provider's view of a consent.
type ConsentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	VUA    string `json:"vua"`
}

// SessionRequest creates a data-pull session against an active consent.
type SessionRequest struct {
	ConsentID string
	Range     DateRange
}

// SessionResponse is the provider's acknowledgement of a session.
type SessionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SessionStatus carries the session state and, once COMPLETED, the nested
// per-FIP, per-account transaction lists.
type SessionStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	FIPs   []FIP  `json:"fips"`
}

// FIP is one financial information provider block in a session payload.
type FIP struct {
	ID       string    `json:"id"`
	Accounts []Account `json:"accounts"`
}

// Account wraps one linked account's data block.
type Account struct {
	LinkRefNumber string      `json:"linkRefNumber"`
	Data          AccountData `json:"data"`
}

type AccountData struct {
	Account AccountDetail `json:"account"`
}

type AccountDetail struct {
	Transactions TransactionList `json:"transactions"`
}

// TransactionList holds the raw transaction objects. Entries stay raw so the
// ingestion pipeline can persist the exact payload for audit before parsing.
type TransactionList struct {
	Transaction []json.RawMessage `json:"transaction"`
}

// Txn is the parsed shape of one provider transaction.
type Txn struct {
	TxnID     string      `json:"txnId"`
	Narration string      `json:"narration"`
	Amount    json.Number `json:"amount"`
	Type      string      `json:"type"`
	Mode      string      `json:"mode"`
	Timestamp string      `json:"transactionTimestamp"` // ISO-8601, UTC
	Reference string      `json:"reference"`
}

// DecodeTxn parses a raw provider transaction object.
func DecodeTxn(raw json.RawMessage) (Txn, error) {
	var t Txn
	err := json.Unmarshal(raw, &t)
	return t, err
}

// Transactions flattens every raw transaction in the session payload.
func (s SessionStatus) Transactions() []json.RawMessage {
	var out []json.RawMessage
	for _, fip := range s.FIPs {
		for _, acc := range fip.Accounts {
			out = append(out, acc.Data.Account.Transactions.Transaction...)
		}
	}
	return out
}
