package auth

import (
	"fmt"
	"time"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ChallengeClaims are the claims carried by an MFA challenge token.
type ChallengeClaims struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	TenantID  string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// ChallengeTokenManager issues and validates the short-lived token that
// carries the password-verified-but-not-yet-MFA-verified login state
// between the login and verify-mfa requests. No session exists until the
// challenge is answered.
type ChallengeTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewChallengeTokenManager creates a new ChallengeTokenManager
func NewChallengeTokenManager(secret string, ttl time.Duration) *ChallengeTokenManager {
	return &ChallengeTokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate creates a signed challenge token for the given account
func (tm *ChallengeTokenManager) Generate(accountID, tenantID string) (string, error) {
	now := time.Now()
	claims := &ChallengeClaims{
		Type:      "mfa_challenge",
		AccountID: accountID,
		TenantID:  tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge token: %w", err)
	}

	return tokenString, nil
}

// Validate parses a challenge token and returns its claims
func (tm *ChallengeTokenManager) Validate(tokenString string) (*ChallengeClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ChallengeClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, models.ErrUnauthorized
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok || !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "mfa_challenge" {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
