// Package classifier turns free-text transaction narrations into structured
// fields. The real work happens in an external model service; a heuristic
// fallback keeps ingestion alive when that service is unreachable.
package classifier

import (
	"context"

	"github.com/shopspring/decimal"
)

// Classifier is the contract services depend on.
type Classifier interface {
	Classify(ctx context.Context, narration, sourceTag string) (Result, error)
}

// Result is the classifier's verdict on one narration. IsTransaction=false is
// a common, expected outcome (promotions, OTP messages, balance alerts); it
// is not an error.
type Result struct {
	IsTransaction   bool             `json:"is_transaction"`
	Amount          *decimal.Decimal `json:"amount"`
	MerchantName    string           `json:"merchant_name"`
	PaymentMode     string           `json:"payment_mode"`
	TransactionType string           `json:"transaction_type"`
	MainCategory    string           `json:"main_category"`
	SubCategory     string           `json:"sub_category"`
}
