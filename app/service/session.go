package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/dto"
	"github.com/vibast-solutions/ms-go-desk-lookup/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

type SessionClaims struct {
	TokenID string `json:"token_id"`
	jwt.RegisteredClaims
}

// SessionService gates the lookup endpoints behind the shared operator
// password and issues short-lived session tokens for it.
type SessionService struct {
	cfg *config.Config
}

func NewSessionService(cfg *config.Config) *SessionService {
	return &SessionService{cfg: cfg}
}

// Login verifies the operator password and returns a signed session token
// plus its lifetime in seconds.
func (s *SessionService) Login(password string) (*dto.SessionResult, error) {
	if err := s.verifyPassword(password); err != nil {
		return nil, err
	}

	now := time.Now()
	claims := &SessionClaims{
		TokenID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Session.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Session.Secret))
	if err != nil {
		return nil, err
	}

	return &dto.SessionResult{
		Token:     signed,
		ExpiresIn: int64(s.cfg.Session.TTL.Seconds()),
	}, nil
}

// ValidateSessionToken parses and verifies a session token.
func (s *SessionService) ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Session.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *SessionService) verifyPassword(password string) error {
	if hash := s.cfg.Session.PasswordHash; hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			return ErrInvalidPassword
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(s.cfg.Session.Password), []byte(password)) != 1 {
		return ErrInvalidPassword
	}
	return nil
}
