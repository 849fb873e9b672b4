package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost         = 14 // OWASP 2026 recommendation - stronger than cost 12 (Feb 2026)
	SessionTokenLength = 32 // 256 bits
	MaxPasswordLen     = 128
)

// PasswordRules carries the tenant-configurable complexity requirements.
type PasswordRules struct {
	MinLength        int
	RequireUppercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// Common weak passwords to reject regardless of tenant rules
var commonPasswords = map[string]bool{
	"password":     true,
	"12345678":     true,
	"qwerty":       true,
	"abc123":       true,
	"password123":  true,
	"password123!": true,
	"123456":       true,
	"admin":        true,
	"letmein":      true,
	"welcome":      true,
	"monkey":       true,
	"dragon":       true,
	"master":       true,
	"123123":       true,
	"passw0rd":     true,
	"shadow":       true,
	"sunshine":     true,
	"princess":     true,
	"starwars":     true,
	"football":     true,
	"trustno1":     true,
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateSessionToken returns an opaque 256-bit session identifier.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidatePassword checks a candidate password against the tenant's rules and
// returns every violation found, so the caller can surface all of them at once.
func ValidatePassword(password string, rules PasswordRules) []string {
	violations := make([]string, 0)

	if len(password) < rules.MinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", rules.MinLength))
	}
	if len(password) > MaxPasswordLen {
		violations = append(violations, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if rules.RequireUppercase && !hasUpper {
		violations = append(violations, "must contain at least one uppercase letter")
	}
	if rules.RequireNumber && !hasDigit {
		violations = append(violations, "must contain at least one number")
	}
	if rules.RequireSpecial && !hasSpecial {
		violations = append(violations, "must contain at least one special character")
	}

	if commonPasswords[strings.ToLower(password)] {
		violations = append(violations, "is too common, please choose a more unique password")
	}

	return violations
}
