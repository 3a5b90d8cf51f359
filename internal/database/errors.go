package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by repositories when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
)

// NotFoundOr maps gorm.ErrRecordNotFound to ErrNotFound and passes other errors through.
func NotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ContainsPattern builds a lower-cased LIKE pattern for case-insensitive substring search.
func ContainsPattern(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}
