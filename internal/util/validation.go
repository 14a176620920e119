package util

import (
	"strings"

	"github.com/google/uuid"
)

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailInDomain reports whether email belongs to domain. An empty domain
// allows every address.
func EmailInDomain(email, domain string) bool {
	if domain == "" {
		return true
	}
	return strings.HasSuffix(NormalizeEmail(email), "@"+strings.ToLower(domain))
}
