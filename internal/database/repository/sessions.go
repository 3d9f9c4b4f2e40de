package repository

import (
	"context"
	"database/sql"
)

// SessionRepo handles data-pull sessions.
type SessionRepo struct{ db *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) Insert(ctx context.Context, s DataSession) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO data_sessions(id, consent_id, status, created_at, updated_at)
	VALUES(?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`, s.ID, s.ConsentID, s.Status)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*DataSession, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, consent_id, status, created_at, updated_at FROM data_sessions WHERE id = ?`, id)
	var s DataSession
	if err := row.Scan(&s.ID, &s.ConsentID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE data_sessions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}
