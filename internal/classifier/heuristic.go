package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Heuristic is an offline-friendly classifier built on keyword and regex
// extraction. It trades recall for availability: narrations it cannot read
// are reported as non-transactions rather than guessed at.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rs\.?\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`inr\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`₹\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`amount\s*:?\s*rs\.?\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(\d+(?:,\d{3})*(?:\.\d{1,2})?)\s*rupees?`),
}

var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:at|to)\s+([a-z][a-z\s]{1,48}?)(?:\s+(?:on|for|via|using)\b|\s*$|[.,])`),
	regexp.MustCompile(`merchant\s*:?\s*([a-z][a-z\s]{1,48}?)(?:\s+(?:on|for|via)\b|\s*$|[.,])`),
}

var debitWords = []string{"debit", "debited", "spent", "purchase", "payment", "paid", "withdrawn"}
var creditWords = []string{"credit", "credited", "received", "deposited"}

func (h *Heuristic) Classify(_ context.Context, narration, _ string) (Result, error) {
	text := strings.ToLower(narration)

	var amount *decimal.Decimal
	for _, p := range amountPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		amount = &d
		break
	}

	txnType := ""
	switch {
	case strings.Contains(text, "refund"):
		txnType = "refund"
	case containsAny(text, debitWords):
		txnType = "debit"
	case containsAny(text, creditWords):
		txnType = "credit"
	}

	// a narration with no amount or no direction is not a transaction
	if amount == nil || txnType == "" {
		return Result{IsTransaction: false}, nil
	}

	mode := ""
	switch {
	case strings.Contains(text, "upi"):
		mode = "UPI"
	case strings.Contains(text, "card"):
		mode = "CARD"
	case strings.Contains(text, "net banking") || strings.Contains(text, "netbanking"):
		mode = "NET_BANKING"
	}

	merchant := ""
	for _, p := range merchantPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(name) > 2 {
			merchant = titleCase(name)
			break
		}
	}

	return Result{
		IsTransaction:   true,
		Amount:          amount,
		MerchantName:    merchant,
		PaymentMode:     mode,
		TransactionType: txnType,
	}, nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
