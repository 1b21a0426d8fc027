package domain

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// IDAlphabet is the 62-symbol alphabet of wallet and transaction ids.
	IDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// IDLength gives ~71 bits of entropy.
	IDLength = 12
)

// NewID returns a random identifier drawn from crypto/rand.
func NewID() (string, error) {
	id, err := gonanoid.Generate(IDAlphabet, IDLength)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id, nil
}

// IsValidID reports whether s has the shape of an identifier produced by NewID.
func IsValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
