package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ana@example.com", Normalize("  Ana@Example.COM "))
	assert.Equal(t, "", Normalize("   "))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "example.com", Domain("ana@Example.com"))
	assert.Equal(t, "", Domain("ana"))
	assert.Equal(t, "", Domain("ana@"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "a***@example.com", Mask("ana@example.com"))
	assert.Equal(t, "***", Mask("@example.com"))
	assert.Equal(t, "***", Mask("nobody"))
}
