package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raffle/internal/shared/clock"
	"raffle/internal/shared/config"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidToken    = errors.New("invalid token")
)

type Service interface {
	VerifyPassword(ctx context.Context, password string) (*VerifyPasswordResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
	PublicKey() string
}

type service struct {
	hash      []byte
	secret    []byte
	ttl       time.Duration
	publicKey string
	clock     clock.Clock
}

// NewService prepares the password gate. A plain ACCESS_PASSWORD is hashed
// once here so every check goes through bcrypt. With neither a password nor
// a hash configured every attempt is refused.
func NewService(cfg *config.Config, clk clock.Clock) (Service, error) {
	if clk == nil {
		clk = clock.NewSystem()
	}

	s := &service{
		secret:    []byte(cfg.JWT.Secret),
		ttl:       cfg.JWT.JWTExpiresIn,
		publicKey: cfg.MercadoPago.PublicKey,
		clock:     clk,
	}

	switch {
	case cfg.Access.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.Access.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid ACCESS_PASSWORD_HASH: %w", err)
		}
		s.hash = []byte(cfg.Access.PasswordHash)
	case cfg.Access.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Access.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash access password: %w", err)
		}
		s.hash = hash
	}

	return s, nil
}

func (s *service) VerifyPassword(ctx context.Context, password string) (*VerifyPasswordResponse, error) {
	if len(s.hash) == 0 || password == "" {
		return &VerifyPasswordResponse{Success: false}, ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		return &VerifyPasswordResponse{Success: false}, ErrInvalidPassword
	}

	token, err := s.generateToken()
	if err != nil {
		return nil, err
	}

	return &VerifyPasswordResponse{
		Success:   true,
		Token:     token,
		ExpiresIn: int64(s.ttl.Seconds()),
	}, nil
}

func (s *service) generateToken() (string, error) {
	now := s.clock.Now()

	claims := Claims{
		Role: RoleOperator,
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "raffle",
			Subject:   "operator",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.Type == TokenTypeAccess {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *service) PublicKey() string {
	return s.publicKey
}
