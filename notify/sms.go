package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/amirsamani13/househunt-hq-sub000/config"
)

// SMSSender delivers a short text message to a phone number.
type SMSSender interface {
	Send(phone, message string) error
}

// GatewaySender posts messages to an HTTP SMS gateway with a bearer
// token.
type GatewaySender struct {
	client *http.Client
	url    string
	token  string
	from   string
}

func NewGatewaySender(client *http.Client, cfg config.NotifyConfig) (*GatewaySender, error) {
	if cfg.SMSGatewayURL == "" {
		return nil, fmt.Errorf("sms gateway not configured")
	}
	return &GatewaySender{
		client: client,
		url:    cfg.SMSGatewayURL,
		token:  cfg.SMSToken,
		from:   cfg.SMSFrom,
	}, nil
}

func (s *GatewaySender) Send(phone, message string) error {
	payload, err := json.Marshal(map[string]string{
		"from": s.from,
		"to":   phone,
		"body": message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", phone, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send sms to %s: status %d", phone, resp.StatusCode)
	}
	return nil
}
