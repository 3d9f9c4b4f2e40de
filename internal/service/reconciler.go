package service

import (
	"context"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"github.com/jask/finlink/internal/database/repository"
)

// MerchantComparator decides whether two merchant names refer to the same
// merchant. Used only when both sides carry a name.
type MerchantComparator func(a, b string) bool

// ExactMerchants matches names case-insensitively after trimming.
func ExactMerchants(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FuzzyMerchants tolerates small spelling differences between the bank's
// merchant name and the one extracted from a device message.
func FuzzyMerchants(maxDistance int) MerchantComparator {
	return func(a, b string) bool {
		a = strings.ToLower(strings.TrimSpace(a))
		b = strings.ToLower(strings.TrimSpace(b))
		if a == b {
			return true
		}
		return levenshtein.ComputeDistance(a, b) <= maxDistance
	}
}

// Reconciler links AA transactions to their device-sourced counterparts.
// Matching is driven from the AA side only: bank rows are authoritative, and
// device rows wait in the candidate pool until a bank row claims them.
type Reconciler struct {
	txns     *repository.TransactionRepo
	window   time.Duration
	sameName MerchantComparator
	log      zerolog.Logger
}

func NewReconciler(txns *repository.TransactionRepo, window time.Duration, sameName MerchantComparator, log zerolog.Logger) *Reconciler {
	if sameName == nil {
		sameName = ExactMerchants
	}
	return &Reconciler{txns: txns, window: window, sameName: sameName, log: log}
}

// Reconcile tries to link one AA transaction to an unmatched device
// transaction. It returns the claimed counterpart, or nil when no candidate
// qualifies. Candidates arrive ordered by timestamp proximity then id, and
// the first one that passes the predicate and survives the claim wins; a
// lost claim race simply moves on to the next candidate.
func (r *Reconciler) Reconcile(ctx context.Context, aaTxn repository.Transaction) (*repository.Transaction, error) {
	if aaTxn.Source != repository.SourceAA || aaTxn.MatchedTxnID != nil || !aaTxn.Matchable() {
		return nil, nil
	}

	candidates, err := r.txns.UnmatchedDeviceInWindow(ctx, aaTxn.UserID, *aaTxn.TxnTime, r.window)
	if err != nil {
		return nil, err
	}

	for _, cand := range candidates {
		if !r.matches(aaTxn, cand) {
			continue
		}
		claimed, err := r.txns.ClaimMatch(ctx, aaTxn.ID, cand.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		r.log.Info().Str("aa_txn", aaTxn.ID).Str("device_txn", cand.ID).Msg("transactions reconciled")
		cand.MatchedTxnID = &aaTxn.ID
		return &cand, nil
	}
	return nil, nil
}

// matches applies the predicate in fixed order: amount and type must agree;
// payment mode and merchant name are compared only when both sides have one.
func (r *Reconciler) matches(aaTxn, cand repository.Transaction) bool {
	if !cand.Matchable() {
		return false
	}
	if !aaTxn.Amount.Equal(*cand.Amount) {
		return false
	}
	if aaTxn.TxnType == nil || cand.TxnType == nil || !strings.EqualFold(*aaTxn.TxnType, *cand.TxnType) {
		return false
	}
	if aaTxn.PaymentMode != nil && cand.PaymentMode != nil &&
		!strings.EqualFold(*aaTxn.PaymentMode, *cand.PaymentMode) {
		return false
	}
	if aaTxn.MerchantName != nil && cand.MerchantName != nil &&
		!r.sameName(*aaTxn.MerchantName, *cand.MerchantName) {
		return false
	}
	return true
}
