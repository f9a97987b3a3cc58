package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleManager Role = "manager"
	RoleStudent Role = "student"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongRole    = errors.New("token issued for another role")
)

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and parses HS256 bearer tokens for both account kinds.
type Tokens struct {
	secret     []byte
	managerTTL time.Duration
	studentTTL time.Duration
	now        func() time.Time
}

func NewTokens(secret string, managerTTL, studentTTL time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	return &Tokens{
		secret:     []byte(secret),
		managerTTL: managerTTL,
		studentTTL: studentTTL,
		now:        time.Now,
	}, nil
}

// WithTimeFunc replaces the clock used for issuing and validating tokens.
func (t *Tokens) WithTimeFunc(now func() time.Time) *Tokens {
	t.now = now
	return t
}

func (t *Tokens) ttl(role Role) time.Duration {
	if role == RoleManager {
		return t.managerTTL
	}
	return t.studentTTL
}

func (t *Tokens) Issue(role Role, accountID int64) (string, error) {
	now := t.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl(role))),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates raw and returns the account id it was issued for.
func (t *Tokens) Parse(raw string, want Role) (int64, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != want {
		return 0, ErrWrongRole
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
