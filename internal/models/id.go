package models

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Link ids use a lowercase alphabet with the look-alike characters removed,
// so lookups can be case-normalized without ambiguity.
const linkIDAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// NewLinkID mints a fresh externally visible link identifier.
func NewLinkID() (string, error) {
	const size = 10
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate link id: %w", err)
	}
	id := make([]byte, size)
	for i, b := range buf {
		id[i] = linkIDAlphabet[int(b)%len(linkIDAlphabet)]
	}
	return string(id), nil
}

// NormalizeLinkID case-normalizes an externally supplied link identifier.
func NormalizeLinkID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
