package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jask/finlink/internal/database"
	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/fault"
)

const tokenLifetime = 30 * 24 * time.Hour

var mobilePattern = regexp.MustCompile(`^\d{10}$`)

// AuthService issues OTP codes and exchanges them for signed session tokens.
// Users are created lazily on first successful verification.
type AuthService struct {
	users      *repository.UserRepo
	signingKey []byte
	otpTTL     time.Duration
	log        zerolog.Logger
}

func NewAuthService(users *repository.UserRepo, signingKey []byte, otpTTL time.Duration, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, signingKey: signingKey, otpTTL: otpTTL, log: log}
}

// RequestOTP issues a 6-digit code for a mobile number. The sandbox returns
// the code in the response instead of sending a real SMS.
func (s *AuthService) RequestOTP(ctx context.Context, mobile string) (string, error) {
	if !mobilePattern.MatchString(mobile) {
		return "", fault.New(fault.Validation, "mobile must be 10 digits")
	}
	code, err := otpCode()
	if err != nil {
		return "", err
	}
	req := repository.OTPRequest{
		ID:        uuid.NewString(),
		Mobile:    mobile,
		Code:      code,
		CreatedAt: database.Now(),
	}
	if err := s.users.AddOTP(ctx, req); err != nil {
		return "", err
	}
	s.log.Info().Str("mobile", mobile).Msg("otp issued")
	return code, nil
}

// VerifyOTP checks the latest code for the mobile and returns a signed
// session token, creating the user on first login.
func (s *AuthService) VerifyOTP(ctx context.Context, mobile, code string) (string, error) {
	if !mobilePattern.MatchString(mobile) {
		return "", fault.New(fault.Validation, "mobile must be 10 digits")
	}
	issued, err := s.users.LatestOTP(ctx, mobile, code)
	if err != nil {
		return "", err
	}
	if issued == nil {
		return "", fault.New(fault.Validation, "invalid otp")
	}
	if time.Since(issued.CreatedAt) > s.otpTTL {
		return "", fault.New(fault.Validation, "otp expired")
	}

	user, err := s.users.GetOrCreateByMobile(ctx, mobile)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    user.ID,
		"mobile": user.Mobile,
		"iat":    now.Unix(),
		"exp":    now.Add(tokenLifetime).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ParseToken validates a session token and returns the user id.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return "", fault.New(fault.Validation, "invalid session token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fault.New(fault.Validation, "invalid session token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fault.New(fault.Validation, "invalid session token")
	}
	return sub, nil
}

func otpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
