package reminders

import (
	"os"
	"strconv"
	"strings"

	"github.com/chasinhq/chasin_backend/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer sends one reminder email. Send reports failure as false rather
// than an error: a dead mail transport must not abort the batch.
type Mailer interface {
	Send(to string, subject string, body string) bool
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer() *SMTPMailer {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = `"Chasin" <billing@chasin.ai>`
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(os.Getenv("SMTP_HOST"), port, os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASS")),
		from:   from,
	}
}

// Send delivers the plaintext body plus an HTML alternative with newlines
// rendered as line breaks.
func (m *SMTPMailer) Send(to string, subject string, body string) bool {
	logger := config.GetLogger()

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	msg.AddAlternative("text/html", "<p>"+strings.ReplaceAll(body, "\n", "<br />")+"</p>")

	if err := m.dialer.DialAndSend(msg); err != nil {
		config.LogError(logger, "reminders", "Send", "smtp send to "+to, nil, err)
		return false
	}

	logger.WithFields(logrus.Fields{
		"module": "reminders",
		"to":     to,
	}).Info("email sent")
	return true
}
