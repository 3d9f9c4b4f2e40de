package repository

import (
	"context"
	"database/sql"
)

// ConsentRepo handles consents.
type ConsentRepo struct{ db *sql.DB }

func NewConsentRepo(db *sql.DB) *ConsentRepo { return &ConsentRepo{db: db} }

func (r *ConsentRepo) Insert(ctx context.Context, c Consent) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO consents(id, user_id, vua, status, created_at, updated_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, c.ID, c.UserID, c.VUA, c.Status)
	return err
}

func (r *ConsentRepo) Get(ctx context.Context, id string) (*Consent, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, user_id, vua, status, created_at, updated_at FROM consents WHERE id = ?`, id)
	return scanConsent(row)
}

// GetForUser scopes the lookup to the owning user.
func (r *ConsentRepo) GetForUser(ctx context.Context, userID, id string) (*Consent, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, user_id, vua, status, created_at, updated_at FROM consents WHERE id = ? AND user_id = ?`, id, userID)
	return scanConsent(row)
}

func (r *ConsentRepo) ListForUser(ctx context.Context, userID string) ([]Consent, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, user_id, vua, status, created_at, updated_at FROM consents
	WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Consent
	for rows.Next() {
		var c Consent
		if err := rows.Scan(&c.ID, &c.UserID, &c.VUA, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetStatus records the provider-reported status and, when the provider
// supersedes the locally supplied vua, the new vua, as one update.
func (r *ConsentRepo) SetStatus(ctx context.Context, id, status, vua string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE consents SET status = ?, vua = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, vua, id)
	return err
}

func scanConsent(row *sql.Row) (*Consent, error) {
	var c Consent
	if err := row.Scan(&c.ID, &c.UserID, &c.VUA, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
