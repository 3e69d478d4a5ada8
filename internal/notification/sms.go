package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultSMSBaseURL = "https://www.smslocal.com/dev/bulkV2"
	defaultSMSTimeout = 15 * time.Second
)

// SMSNotifier sends messages through an HTTP SMS gateway. OTP messages use
// the gateway's otp route; everything else is sent as plain text.
type SMSNotifier struct {
	APIKey     string
	BaseURL    string
	Sender     string
	HTTPClient *http.Client
}

// NewSMSNotifier returns a notifier for the given API key. Empty baseURL
// selects the default gateway.
func NewSMSNotifier(apiKey, baseURL, sender string) *SMSNotifier {
	if baseURL == "" {
		baseURL = defaultSMSBaseURL
	}
	return &SMSNotifier{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Sender:     sender,
		HTTPClient: &http.Client{Timeout: defaultSMSTimeout},
	}
}

// Send delivers message. The body is never included in returned errors.
func (n *SMSNotifier) Send(ctx context.Context, message Message) error {
	if n.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	body := map[string]any{"numbers": message.Destination}
	if message.Kind == KindOTP {
		body["route"] = "otp"
		body["variables"] = message.Body
	} else {
		body["route"] = "q"
		body["message"] = message.Body
	}
	if n.Sender != "" {
		body["sender_id"] = n.Sender
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", n.APIKey)
	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
