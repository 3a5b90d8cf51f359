package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}

// dummyHasher holds a hash of a random password at the configured cost.
// Comparing against it when an account does not exist keeps sign-in timing
// close to the wrong-password path.
type dummyHasher struct {
	once sync.Once
	cost int
	hash string
}

func (d *dummyHasher) compare(password string) {
	d.once.Do(func() {
		secret, err := GenerateSecret()
		if err != nil {
			secret = "library-dummy-password"
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), d.cost)
		if err == nil {
			d.hash = string(hash)
		}
	})
	if d.hash == "" {
		return
	}
	_ = bcrypt.CompareHashAndPassword([]byte(d.hash), []byte(password))
}

// GenerateSecret creates a random 32-byte hex secret.
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
