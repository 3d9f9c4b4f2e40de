package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// UserRepo handles users and OTP requests.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetOrCreateByMobile returns the user for a mobile number, creating it on
// first verification.
func (r *UserRepo) GetOrCreateByMobile(ctx context.Context, mobile string) (User, error) {
	if u, err := r.GetByMobile(ctx, mobile); err != nil {
		return User{}, err
	} else if u != nil {
		return *u, nil
	}
	u := User{ID: uuid.NewString(), Mobile: mobile}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO users(id, mobile, created_at) VALUES(?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(mobile) DO NOTHING;
	`, u.ID, u.Mobile)
	if err != nil {
		return User{}, err
	}
	// re-read to cover the conflict path
	got, err := r.GetByMobile(ctx, mobile)
	if err != nil {
		return User{}, err
	}
	return *got, nil
}

func (r *UserRepo) GetByMobile(ctx context.Context, mobile string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, mobile, email, created_at FROM users WHERE mobile = ?`, mobile)
	return scanUser(row)
}

func (r *UserRepo) Get(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, mobile, email, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var email sql.NullString
	if err := row.Scan(&u.ID, &u.Mobile, &email, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	return &u, nil
}

func (r *UserRepo) AddOTP(ctx context.Context, o OTPRequest) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO otp_requests(id, mobile, code, created_at) VALUES(?, ?, ?, ?)
	`, o.ID, o.Mobile, o.Code, o.CreatedAt)
	return err
}

// LatestOTP returns the most recent code issued for a mobile/code pair, or
// nil when no such code was issued.
func (r *UserRepo) LatestOTP(ctx context.Context, mobile, code string) (*OTPRequest, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, mobile, code, created_at FROM otp_requests
	WHERE mobile = ? AND code = ? ORDER BY created_at DESC LIMIT 1
	`, mobile, code)
	var o OTPRequest
	if err := row.Scan(&o.ID, &o.Mobile, &o.Code, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
