package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	purposeSession = "session"
	purposeReject  = "reject"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	Purpose string `json:"purpose"`
	// Target is the resource a confirmation token is bound to.
	Target string `json:"target,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens for sessions and confirmations.
type Tokens struct {
	secret          []byte
	sessionTTL      time.Duration
	confirmationTTL time.Duration
	now             func() time.Time
}

func NewTokens(secret string, sessionTTL, confirmationTTL time.Duration) *Tokens {
	return &Tokens{
		secret:          []byte(secret),
		sessionTTL:      sessionTTL,
		confirmationTTL: confirmationTTL,
		now:             time.Now,
	}
}

func (t *Tokens) sign(subject, purpose, target string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject cannot be empty")
	}
	if len(t.secret) == 0 {
		return "", time.Time{}, errors.New("token secret cannot be empty")
	}
	now := t.now()
	expires := now.Add(ttl)
	claims := Claims{
		Purpose: purpose,
		Target:  target,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (t *Tokens) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueSession returns a session token for accountID.
func (t *Tokens) IssueSession(accountID string) (string, error) {
	token, _, err := t.sign(accountID, purposeSession, "", t.sessionTTL)
	return token, err
}

// ParseSession returns the account id a session token was issued for.
func (t *Tokens) ParseSession(tokenString string) (string, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Purpose != purposeSession {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// IssueRejection binds a short-lived confirmation to one request and owner.
func (t *Tokens) IssueRejection(ownerID, requestID string) (string, time.Time, error) {
	return t.sign(ownerID, purposeReject, requestID, t.confirmationTTL)
}

func (t *Tokens) VerifyRejection(tokenString, ownerID, requestID string) error {
	claims, err := t.parse(tokenString)
	if err != nil {
		return err
	}
	if claims.Purpose != purposeReject || claims.Subject != ownerID || claims.Target != requestID {
		return ErrInvalidToken
	}
	return nil
}
