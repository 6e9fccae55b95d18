// Package isbn provides ISBN normalization and validation.
// The 13-digit form is canonical: every lookup key and provider call
// uses the ISBN-13, with ISBN-10 input converted before use.
package isbn

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalid is returned when the input is not a well-formed ISBN-10 or ISBN-13.
	ErrInvalid = errors.New("invalid ISBN")

	// ErrCheckDigit is returned when the ISBN has the right shape but a wrong check digit.
	ErrCheckDigit = errors.New("ISBN check digit mismatch")
)

// Normalize strips separators from raw and returns the canonical ISBN-13.
// ISBN-10 input is converted to its ISBN-13 equivalent.
func Normalize(raw string) (string, error) {
	s := strip(raw)

	switch len(s) {
	case 13:
		if !digitsOnly(s) {
			return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
		}
		if checkDigit13(s[:12]) != s[12] {
			return "", fmt.Errorf("%w: %q", ErrCheckDigit, raw)
		}
		return s, nil
	case 10:
		if !validISBN10(s) {
			return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
		}
		return To13(s), nil
	default:
		return "", fmt.Errorf("%w: %q has %d significant characters", ErrInvalid, raw, len(s))
	}
}

// Valid reports whether raw is a well-formed ISBN-10 or ISBN-13.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// To13 converts a bare 10-digit ISBN to its 13-digit form.
// The input must already be stripped and valid; use Normalize for raw input.
func To13(isbn10 string) string {
	body := "978" + isbn10[:9]
	return body + string(checkDigit13(body))
}

func strip(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// checkDigit13 computes the EAN-13 check digit for a 12-digit body.
func checkDigit13(body string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 9; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		sum += int(s[i]-'0') * (10 - i)
	}
	last := s[9]
	switch {
	case last == 'X' || last == 'x':
		sum += 10
	case last >= '0' && last <= '9':
		sum += int(last - '0')
	default:
		return false
	}
	return sum%11 == 0
}
