package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/captureai/backend/internal/config"
)

// EmailService delivers license keys over the provider's HTTP API. Delivery
// is best-effort: callers log a failed send and carry on, they never fail the
// request over it.
type EmailService struct {
	cfg    *config.Config
	client *http.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg, client: &http.Client{}}
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendLicenseKey emails a license key to its owner. The outbound call is
// bounded by the configured email timeout.
func (s *EmailService) SendLicenseKey(ctx context.Context, to, licenseKey string) error {
	if s.cfg.EmailAPIKey == "" {
		return fmt.Errorf("email provider not configured")
	}

	body, err := json.Marshal(emailPayload{
		From:    s.cfg.EmailFrom,
		To:      []string{to},
		Subject: "Your CaptureAI license key",
		HTML: fmt.Sprintf(
			`<p>Welcome to CaptureAI!</p><p>Your license key:</p><p><strong>%s</strong></p>`+
				`<p>Paste it into the extension settings to get started.</p>`,
			licenseKey),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.EmailTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.EmailAPIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.EmailAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &UpstreamError{Service: "email provider", Status: resp.StatusCode, Message: string(detail)}
	}
	return nil
}
