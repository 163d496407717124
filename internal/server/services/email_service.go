package services

import (
	"fmt"

	"github.com/intelvis/intelvis/internal/server/config"
	"github.com/resendlabs/resend-go"
)

// EmailService sends transactional mail through Resend. Without an API key,
// or with SKIP_EMAIL_SEND set, every send is a no-op.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	siteURL   string
}

func NewEmailService(cfg config.EmailConfig, siteURL string) *EmailService {
	s := &EmailService{
		fromEmail: cfg.FromEmail,
		siteURL:   siteURL,
	}
	if cfg.ResendAPIKey != "" && !cfg.Skip {
		s.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return s
}

// Enabled reports whether mail is actually delivered.
func (s *EmailService) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *EmailService) SendWelcomeEmail(email string) error {
	if !s.Enabled() {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: "Welcome to IntelVis",
		Html: fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Welcome to IntelVis!</h2>
				<p>Your account has been created.</p>
				<h3>Next Steps:</h3>
				<ol>
					<li>Power on your sensor and connect it to the network</li>
					<li>Scan the QR label on the device, or enter its MAC address in the <a href="%s/dashboard">dashboard</a></li>
					<li>Give it a name and watch it come online</li>
				</ol>
				<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
				<p style="color: #999; font-size: 12px;">IntelVis - Sensor Device Pairing</p>
			</div>
		`, s.siteURL),
	}

	_, err := s.client.Emails.Send(params)
	return err
}

func (s *EmailService) SendDeviceClaimedEmail(email, mac string) error {
	if !s.Enabled() {
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: "A device was added to your IntelVis account",
		Html: fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Device paired</h2>
				<p>The device <code>%s</code> is now linked to your account.</p>
				<p style="color: #666;">If you didn't do this, contact support.</p>
				<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
				<p style="color: #999; font-size: 12px;">IntelVis - Sensor Device Pairing</p>
			</div>
		`, mac),
	}

	_, err := s.client.Emails.Send(params)
	return err
}
