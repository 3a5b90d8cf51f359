// Package twofactor wraps TOTP secret generation, QR rendering and code
// verification for authenticator apps, plus single-use backup codes.
package twofactor

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP time step in seconds.
	Period = 30
	// Skew is the number of time steps accepted on either side of now.
	Skew = 1

	backupCodeLength   = 8
	backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	qrSize             = 200
)

var ErrEmptySecret = errors.New("two-factor secret is empty")

// Enrollment is what a user needs to register the account in an authenticator app.
type Enrollment struct {
	Secret      string
	URL         string // otpauth:// provisioning URI
	QRCodeURL   string // PNG data URL of URL
	BackupCodes []string
}

// Generator creates enrollments for a fixed issuer.
type Generator struct {
	issuer          string
	backupCodeCount int
}

// NewGenerator returns a Generator. backupCodeCount <= 0 falls back to 5.
func NewGenerator(issuer string, backupCodeCount int) *Generator {
	if backupCodeCount <= 0 {
		backupCodeCount = 5
	}
	return &Generator{issuer: issuer, backupCodeCount: backupCodeCount}
}

// AccountName is the label shown next to the issuer in authenticator apps.
func AccountName(email string) string {
	return fmt.Sprintf("Library Management (%s)", email)
}

// Generate creates a new secret bound to email, its QR code and a fresh set of backup codes.
func (g *Generator) Generate(email string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: AccountName(email),
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	qr, err := QRCodeDataURL(key)
	if err != nil {
		return nil, err
	}

	codes, err := GenerateBackupCodes(g.backupCodeCount)
	if err != nil {
		return nil, err
	}

	return &Enrollment{
		Secret:      key.Secret(),
		URL:         key.URL(),
		QRCodeURL:   qr,
		BackupCodes: codes,
	}, nil
}

// QRCodeDataURL renders the key's provisioning URI as a base64 PNG data URL.
func QRCodeDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Verify checks a six-digit code against secret at time at, accepting one
// time step of clock drift in either direction.
func Verify(secret, code string, at time.Time) (bool, error) {
	if secret == "" {
		return false, ErrEmptySecret
	}
	code = strings.TrimSpace(code)
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// Malformed input is simply a wrong code.
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// GenerateBackupCodes returns n random upper-case alphanumeric codes.
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < n; i++ {
		var sb strings.Builder
		for j := 0; j < backupCodeLength; j++ {
			idx, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, fmt.Errorf("failed to generate backup code: %w", err)
			}
			sb.WriteByte(backupCodeAlphabet[idx.Int64()])
		}
		codes = append(codes, sb.String())
	}
	return codes, nil
}

// NormalizeBackupCodes upper-cases and trims codes, dropping empty entries.
func NormalizeBackupCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ConsumeBackupCode removes code (case-insensitive) from codes.
// It returns the remaining codes and whether the code was present.
func ConsumeBackupCode(codes []string, code string) ([]string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return codes, false
	}
	for i, c := range codes {
		if c == code {
			remaining := make([]string, 0, len(codes)-1)
			remaining = append(remaining, codes[:i]...)
			remaining = append(remaining, codes[i+1:]...)
			return remaining, true
		}
	}
	return codes, false
}
