package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRepo handles transactions from both sources.
type TransactionRepo struct{ db *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const txnColumns = `id, user_id, consent_id, source, narration, amount, txn_time, txn_type,
 payment_mode, merchant_name, main_category, sub_category, raw_payload, matched_txn_id,
 created_at, updated_at`

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	var amount *string
	if t.Amount != nil {
		s := t.Amount.StringFixed(2)
		amount = &s
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO transactions(
	 id, user_id, consent_id, source, narration, amount, txn_time, txn_type,
	 payment_mode, merchant_name, main_category, sub_category, raw_payload,
	 created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`,
		t.ID, t.UserID, t.ConsentID, t.Source, t.Narration, amount, t.TxnTime, t.TxnType,
		t.PaymentMode, t.MerchantName, t.MainCategory, t.SubCategory, t.RawPayload)
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListForUser returns a user's transactions, newest first. source may be
// empty to list all sources.
func (r *TransactionRepo) ListForUser(ctx context.Context, userID, source string) ([]Transaction, error) {
	query := `SELECT ` + txnColumns + ` FROM transactions WHERE user_id = ?`
	args := []interface{}{userID}
	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY txn_time DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UnmatchedDeviceInWindow returns the reconciliation candidate pool: the
// user's device-sourced rows with no counterpart yet and a timestamp inside
// [center-window, center+window]. Ordering is the deterministic tie-break:
// closest timestamp to center first, then ascending id.
func (r *TransactionRepo) UnmatchedDeviceInWindow(ctx context.Context, userID string, center time.Time, window time.Duration) ([]Transaction, error) {
	start := center.Add(-window).Unix()
	end := center.Add(window).Unix()
	rows, err := r.db.QueryContext(ctx, `
	SELECT `+txnColumns+` FROM transactions
	WHERE user_id = ? AND source != 'AA' AND matched_txn_id IS NULL
	  AND txn_time IS NOT NULL
	  AND CAST(strftime('%s', txn_time) AS INTEGER) BETWEEN ? AND ?
	ORDER BY ABS(CAST(strftime('%s', txn_time) AS INTEGER) - ?) ASC, id ASC;
	`, userID, start, end, center.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ClaimMatch links an AA row and a device row symmetrically. Both updates are
// conditional on the matched pointer still being null and run in one
// transaction, so a reader never observes one side set without the other and
// two racing reconcilers cannot consume the same candidate twice. Returns
// false when either side was already taken.
func (r *TransactionRepo) ClaimMatch(ctx context.Context, aaID, deviceID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	UPDATE transactions SET matched_txn_id = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND matched_txn_id IS NULL`, aaID, deviceID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `
	UPDATE transactions SET matched_txn_id = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND matched_txn_id IS NULL`, deviceID, aaID)
	if err != nil {
		return false, err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}

	return true, tx.Commit()
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var consent, amount, txnType, mode, merchant, mainCat, subCat, matched sql.NullString
	var txnTime sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &consent, &t.Source, &t.Narration, &amount, &txnTime,
		&txnType, &mode, &merchant, &mainCat, &subCat, &t.RawPayload, &matched,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if consent.Valid {
		t.ConsentID = &consent.String
	}
	if amount.Valid {
		d, err := decimal.NewFromString(amount.String)
		if err != nil {
			return Transaction{}, err
		}
		t.Amount = &d
	}
	if txnTime.Valid {
		t.TxnTime = &txnTime.Time
	}
	if txnType.Valid {
		t.TxnType = &txnType.String
	}
	if mode.Valid {
		t.PaymentMode = &mode.String
	}
	if merchant.Valid {
		t.MerchantName = &merchant.String
	}
	if mainCat.Valid {
		t.MainCategory = &mainCat.String
	}
	if subCat.Valid {
		t.SubCategory = &subCat.String
	}
	if matched.Valid {
		t.MatchedTxnID = &matched.String
	}
	return t, nil
}
