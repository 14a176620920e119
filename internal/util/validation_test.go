package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("3f2c1b9e-6a4d-4c8e-9b1a-2d3e4f5a6b7c"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID("3f2c1b9e-6a4d-4c8e-9b1a"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}

func TestEmailInDomain(t *testing.T) {
	t.Run("empty domain allows all", func(t *testing.T) {
		assert.True(t, EmailInDomain("x@anything.io", ""))
	})

	t.Run("matches case-insensitively", func(t *testing.T) {
		assert.True(t, EmailInDomain("Ana@Example.com", "example.com"))
	})

	t.Run("rejects other domains", func(t *testing.T) {
		assert.False(t, EmailInDomain("ana@evil.com", "example.com"))
	})

	t.Run("rejects lookalike suffix", func(t *testing.T) {
		assert.False(t, EmailInDomain("ana@notexample.com", "example.com"))
	})
}
