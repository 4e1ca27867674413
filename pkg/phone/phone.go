// Package phone normalises phone numbers to E.164.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// Normalizer parses numbers written without a country prefix using its
// default region.
type Normalizer struct {
	region string
}

func NewNormalizer(defaultRegion string) *Normalizer {
	return &Normalizer{region: strings.ToUpper(defaultRegion)}
}

// Normalize formats input as E.164. Empty input is returned unchanged.
func (n *Normalizer) Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidPhone
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// Valid reports whether input parses to a valid number.
func (n *Normalizer) Valid(input string) bool {
	_, err := n.Normalize(input)
	return err == nil
}
