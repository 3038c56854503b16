// Package mailer delivers transactional email over SMTP. Delivery is
// best-effort: callers decide whether a failure matters.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"linkmarket/internal/util"
)

// Mailer sends HTML email through a single SMTP relay
type Mailer struct {
	host      string
	port      string
	username  string
	password  string
	fromEmail string
	fromName  string
	enabled   bool
	logger    *zap.Logger
}

// New creates a new mailer. When disabled, messages are logged instead of
// sent, which keeps development environments quiet.
func New(host, port, username, password, fromEmail, fromName string, enabled bool) *Mailer {
	return &Mailer{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   enabled,
		logger:    util.GetLogger(),
	}
}

// Send delivers one HTML message
func (m *Mailer) Send(to, subject, html string) error {
	if !m.enabled {
		m.logger.Info("Email disabled - message not sent",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.fromName, m.fromEmail),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		html,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	addr := m.host + ":" + m.port

	if err := smtp.SendMail(addr, auth, m.fromEmail, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	m.logger.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// SendWinnerNotification tells an auction winner how to complete the
// purchase before the follow-up link expires.
func (m *Mailer) SendWinnerNotification(to, checkoutURL string, amountCents int64, currency string, expiresAt time.Time) error {
	amount := FormatAmount(amountCents, currency)
	subject := fmt.Sprintf("You won the auction! Complete your purchase of %s", amount)
	body := fmt.Sprintf(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Congratulations, you won!</h2>
  <p>Your bid of <strong>%s</strong> was the highest when the auction closed.</p>
  <p><a href="%s" style="background:#4f46e5;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none;">Complete your purchase</a></p>
  <p>This link expires on <strong>%s</strong>. After that the item may be relisted.</p>
</body>
</html>`, amount, checkoutURL, expiresAt.UTC().Format("Jan 2, 2006 15:04 MST"))

	return m.Send(to, subject, body)
}

// SendReceipt confirms a paid order; downloadURL is empty for physical goods.
func (m *Mailer) SendReceipt(to, title string, amountCents int64, currency, downloadURL string) error {
	amount := FormatAmount(amountCents, currency)
	subject := fmt.Sprintf("Receipt for %s", title)

	download := ""
	if downloadURL != "" {
		download = fmt.Sprintf(`<p><a href="%s">Download your file</a></p>`, downloadURL)
	}

	body := fmt.Sprintf(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Thanks for your purchase</h2>
  <p>You paid <strong>%s</strong> for <strong>%s</strong>.</p>
  %s
</body>
</html>`, amount, title, download)

	return m.Send(to, subject, body)
}

// FormatAmount renders minor units as a currency string, e.g. 5000 usd ->
// "$50.00", 5000 eur -> "EUR 50.00".
func FormatAmount(cents int64, currency string) string {
	value := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
	switch strings.ToLower(currency) {
	case "usd", "":
		return "$" + value
	default:
		return strings.ToUpper(currency) + " " + value
	}
}
