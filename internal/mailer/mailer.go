// Package mailer sends the player result email: a branded HTML message
// pointing at the player's download page, with an inline logo and QR code.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"powerplay/internal/config"
	"powerplay/internal/logging"
	"powerplay/internal/services"
)

const qrPixelSize = 256

// sendFunc matches smtp.SendMail so tests can capture outgoing mail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers result emails over authenticated SMTP with STARTTLS.
type Mailer struct {
	cfg    config.SMTP
	logger *slog.Logger
	send   sendFunc
}

// New constructs a Mailer from SMTP configuration.
func New(cfg config.SMTP, logger *slog.Logger) *Mailer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mailer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "mailer"),
		send:   smtp.SendMail,
	}
}

// WithSendFunc overrides mail transport, for tests.
func (m *Mailer) WithSendFunc(send sendFunc) {
	if m != nil && send != nil {
		m.send = send
	}
}

// Configured reports whether credentials are present.
func (m *Mailer) Configured() bool {
	return strings.TrimSpace(m.cfg.Username) != "" && strings.TrimSpace(m.cfg.Password) != ""
}

// SendResultEmail delivers the download-page email for a finished item.
func (m *Mailer) SendResultEmail(ctx context.Context, toEmail, firstName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.Configured() {
		return services.Wrap(services.ErrConfiguration, "notify", "send email",
			"Email credentials are not configured", nil)
	}
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return services.Wrap(services.ErrValidation, "notify", "send email",
			"Recipient email is empty", nil)
	}

	name := formatName(firstName)
	downloadURL := downloadLink(m.cfg.DownloadBaseURL, toEmail)
	brand := m.cfg.BrandName
	if strings.TrimSpace(brand) == "" {
		brand = "Powerplay"
	}

	subject := fmt.Sprintf("Your %s Hero is Ready!", brand)
	plain := fmt.Sprintf(
		"Hi %s,\n\nYour %s hero content is ready.\nOpen your download page:\n%s\n\nIf you didn't request this email, you can ignore it.\n",
		name, brand, downloadURL)

	qrPNG, err := qrcode.Encode(downloadURL, qrcode.Medium, qrPixelSize)
	if err != nil {
		return fmt.Errorf("render download qr: %w", err)
	}

	var logoPNG []byte
	if path := strings.TrimSpace(m.cfg.LogoPath); path != "" {
		logoPNG, err = os.ReadFile(path)
		if err != nil {
			m.logger.Warn("logo unavailable, sending without it", logging.Error(err))
			logoPNG = nil
		}
	}

	msg, err := buildMessage(m.cfg.From, toEmail, subject, plain, htmlData{
		BrandName:   brand,
		BrandBlue:   brandBlue,
		BrandRed:    brandRed,
		Name:        name,
		DownloadURL: downloadURL,
		LogoCID:     logoCID,
		QRCID:       qrCID,
		HasLogo:     len(logoPNG) > 0,
	}, logoPNG, qrPNG)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.From, []string{toEmail}, msg); err != nil {
		return services.Wrap(services.ErrTransient, "notify", "send email",
			"SMTP delivery failed; check credentials and connectivity", err)
	}

	m.logger.Info("result email sent", logging.String("to", toEmail))
	return nil
}
