package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// BackupCodeLength is the number of characters in a backup code after
// normalization (hyphen stripped)
const BackupCodeLength = 8

// CodeKind classifies a submitted MFA challenge code by shape
type CodeKind int

const (
	CodeKindUnknown CodeKind = iota
	CodeKindTOTP             // 6-digit numeric
	CodeKindBackup           // 8-character alphanumeric, hyphen optional
)

var (
	totpCodePattern   = regexp.MustCompile(`^[0-9]{6}$`)
	backupCodePattern = regexp.MustCompile(`^[0-9A-Z]{8}$`)
)

// TOTPManager handles TOTP secret generation, provisioning, and validation
type TOTPManager struct {
	issuer string
}

// NewTOTPManager creates a new TOTP manager
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// GenerateSecret creates a new TOTP secret for the given account email.
// Returns the base32 secret and the otpauth:// provisioning URL.
func (tm *TOTPManager) GenerateSecret(accountEmail string) (secret, provisioningURL string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountEmail,
		SecretSize:  32, // 256 bits
		Period:      30,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// QRCodePNG renders a provisioning URL as a scannable PNG data URL
func (tm *TOTPManager) QRCodePNG(provisioningURL string) (string, error) {
	qr, err := qrcode.New(provisioningURL, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(200)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// FormatSecretGroups renders a base32 secret in human-typeable 4-character
// groups, as a fallback when the QR code cannot be scanned
func FormatSecretGroups(secret string) string {
	var b strings.Builder
	for i, r := range secret {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateCode validates a 6-digit TOTP code against a base32 secret.
// Skew 1 accepts codes from the previous, current, and next 30-second
// window to absorb client clock drift.
func (tm *TOTPManager) ValidateCode(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// GenerateBackupCodes generates n single-use backup codes. Each code is
// 8 uppercase hex characters rendered as two 4-character groups joined by
// a hyphen (e.g. "3FA9-C04D").
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, n)
	for i := 0; i < n; i++ {
		raw := make([]byte, 4)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		h := strings.ToUpper(hex.EncodeToString(raw))
		codes[i] = h[:4] + "-" + h[4:]
	}
	return codes, nil
}

// NormalizeBackupCode strips hyphens and upper-cases a submitted code
func NormalizeBackupCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}

// HashBackupCode returns the SHA-256 hex digest of a normalized backup code
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(NormalizeBackupCode(code)))
	return hex.EncodeToString(sum[:])
}

// BackupCodeHashEqual compares a computed hash against a stored one in
// constant time
func BackupCodeHashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ClassifyChallengeCode determines how a submitted login challenge code
// should be dispatched. Anything that is neither a 6-digit number nor an
// 8-character alphanumeric code is malformed and rejected outright.
func ClassifyChallengeCode(code string) CodeKind {
	trimmed := strings.TrimSpace(code)
	if totpCodePattern.MatchString(trimmed) {
		return CodeKindTOTP
	}
	if backupCodePattern.MatchString(NormalizeBackupCode(trimmed)) {
		return CodeKindBackup
	}
	return CodeKindUnknown
}
