package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinimumRequired(t *testing.T) {
	high := int64(1500)

	// First bid only has to reach the starting price.
	assert.Equal(t, int64(1000), MinimumRequired(1000, 100, nil))
	assert.Equal(t, int64(0), MinimumRequired(0, 100, nil))

	// With a standing bid the increment applies.
	assert.Equal(t, int64(1600), MinimumRequired(1000, 100, &high))

	zero := int64(0)
	assert.Equal(t, int64(100), MinimumRequired(0, 100, &zero))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "bu****@example.com", MaskEmail("buyer@example.com"))
	assert.Equal(t, "al****@shop.io", MaskEmail("alice.smith@shop.io"))
	assert.Equal(t, "b****@x.com", MaskEmail("b@x.com"))
	assert.Equal(t, "ab****@x.com", MaskEmail("ab@x.com"))
	assert.Equal(t, "****", MaskEmail("@example.com"))
	assert.Equal(t, "****", MaskEmail("not-an-email"))
	assert.Equal(t, "****", MaskEmail(""))
}
