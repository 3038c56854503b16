package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$50.00", FormatAmount(5000, "usd"))
	assert.Equal(t, "$50.00", FormatAmount(5000, ""))
	assert.Equal(t, "$0.99", FormatAmount(99, "USD"))
	assert.Equal(t, "EUR 12.34", FormatAmount(1234, "eur"))
	assert.Equal(t, "GBP 0.00", FormatAmount(0, "gbp"))
}

func TestSendDisabledIsNoop(t *testing.T) {
	m := New("localhost", "587", "", "", "no-reply@test.local", "Test", false)
	assert.NoError(t, m.Send("buyer@example.com", "subject", "<p>body</p>"))
}
