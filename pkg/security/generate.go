package security

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	charsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	charsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	charsetDigits    = "0123456789"
	charsetSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// MinGeneratedLength and MaxGeneratedLength bound generator requests.
	MinGeneratedLength = 8
	MaxGeneratedLength = 256
	// DefaultGeneratedLength is used when no length is requested.
	DefaultGeneratedLength = 24
)

// ErrEmptyCharset indicates every character class was excluded.
var ErrEmptyCharset = errors.New("security: no characters available for generation")

// ErrBadLength indicates a requested length outside the allowed bounds.
var ErrBadLength = errors.New("security: password length out of range")

// GenerateOptions selects the character classes for password generation.
// The zero value enables everything.
type GenerateOptions struct {
	NoLowercase bool
	NoUppercase bool
	NoDigits    bool
	NoSymbols   bool
	// Exclude lists individual characters to omit, e.g. "0O1lI".
	Exclude string
}

// GeneratePassword returns a cryptographically random password of the given
// length from the enabled character classes.
func GeneratePassword(length int, opts GenerateOptions) (string, error) {
	if length < MinGeneratedLength || length > MaxGeneratedLength {
		return "", ErrBadLength
	}

	var charset strings.Builder
	if !opts.NoLowercase {
		charset.WriteString(charsetLowercase)
	}
	if !opts.NoUppercase {
		charset.WriteString(charsetUppercase)
	}
	if !opts.NoDigits {
		charset.WriteString(charsetDigits)
	}
	if !opts.NoSymbols {
		charset.WriteString(charsetSymbols)
	}

	chars := charset.String()
	if opts.Exclude != "" {
		var kept strings.Builder
		for _, r := range chars {
			if !strings.ContainsRune(opts.Exclude, r) {
				kept.WriteRune(r)
			}
		}
		chars = kept.String()
	}
	if chars == "" {
		return "", ErrEmptyCharset
	}

	max := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}
