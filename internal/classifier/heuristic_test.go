package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeuristicClassify(t *testing.T) {
	t.Parallel()
	h := NewHeuristic()
	ctx := context.Background()

	tests := []struct {
		name      string
		narration string
		isTxn     bool
		amount    string
		txnType   string
		mode      string
		merchant  string
	}{
		{
			name:      "upi debit with merchant",
			narration: "Rs. 499.00 debited at Swiggy via UPI on 15-01-26",
			isTxn:     true,
			amount:    "499",
			txnType:   "debit",
			mode:      "UPI",
			merchant:  "Swiggy",
		},
		{
			name:      "credit with inr prefix",
			narration: "INR 50,000 credited to your account",
			isTxn:     true,
			amount:    "50000",
			txnType:   "credit",
		},
		{
			name:      "refund",
			narration: "Refund of Rs. 250 received from merchant: flipkart",
			isTxn:     true,
			amount:    "250",
			txnType:   "refund",
		},
		{
			name:      "card payment in rupees",
			narration: "Payment of 1200 rupees made using card",
			isTxn:     true,
			amount:    "1200",
			txnType:   "debit",
			mode:      "CARD",
		},
		{
			name:      "otp message",
			narration: "Your OTP for login is 482913. Do not share it.",
			isTxn:     false,
		},
		{
			name:      "promo without amount",
			narration: "Get 50% off on your next purchase!",
			isTxn:     false,
		},
		{
			name:      "amount without direction",
			narration: "Your balance is Rs. 5000",
			isTxn:     false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := h.Classify(ctx, tc.narration, "sms")
			require.NoError(t, err)
			require.Equal(t, tc.isTxn, res.IsTransaction)
			if !tc.isTxn {
				return
			}
			require.NotNil(t, res.Amount)
			require.Equal(t, tc.amount, res.Amount.String())
			require.Equal(t, tc.txnType, res.TransactionType)
			if tc.mode != "" {
				require.Equal(t, tc.mode, res.PaymentMode)
			}
			if tc.merchant != "" {
				require.Equal(t, tc.merchant, res.MerchantName)
			}
		})
	}
}
