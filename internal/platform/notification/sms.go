package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/arsmn/go-smsir/smsir"
	"github.com/nyaruka/phonenumbers"
)

type SMSIRConfig struct {
	APIKey     string
	SecretKey  string
	TemplateID string
	// DefaultRegion is the ISO country code used to parse numbers written
	// without a leading +.
	DefaultRegion string
}

// SMSIRSender sends SMS through sms.ir's template API. The template must
// declare a "message" parameter.
type SMSIRSender struct {
	templateID string
	region     string
	send       func(ctx context.Context, req *smsir.UltraFastSendRequest) error
}

func NewSMSIRSender(cfg SMSIRConfig) (*SMSIRSender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("sms.ir API key is required")
	}
	if cfg.TemplateID == "" {
		return nil, fmt.Errorf("sms.ir template ID is required")
	}

	client := smsir.NewClient().WithAuthentication(cfg.APIKey, cfg.SecretKey)
	return &SMSIRSender{
		templateID: cfg.TemplateID,
		region:     cfg.DefaultRegion,
		send: func(ctx context.Context, req *smsir.UltraFastSendRequest) error {
			_, err := client.Verification.UltraFastSend(ctx, req)
			return err
		},
	}, nil
}

func (s *SMSIRSender) SendSMS(ctx context.Context, to, body string) error {
	mobile, err := NormalizePhone(to, s.region)
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("sms body is required")
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     mobile,
		TemplateID: s.templateID,
		Parameters: []smsir.UltraFastParameter{
			{Key: "message", Value: body},
		},
	}
	if err := s.send(ctx, req); err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}
	return nil
}

// NormalizePhone parses raw in region and returns it in E.164 form.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("phone number is required")
	}
	if region == "" {
		region = "US"
	}

	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil {
		return "", fmt.Errorf("parse phone number %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
