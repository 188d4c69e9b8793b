// Package notification delivers outbound reminder messages over email and
// SMS. WhatsApp is a deep-link only channel and is never delivered here.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Channel is the delivery method of a notification.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

var (
	// ErrUnsupportedChannel is returned for channels that cannot be
	// delivered server-side.
	ErrUnsupportedChannel = errors.New("unsupported delivery channel")
	// ErrChannelDisabled is returned when no sender is configured for a channel.
	ErrChannelDisabled = errors.New("delivery channel not configured")
)

// Message is a single outbound notification.
type Message struct {
	Channel   Channel
	Recipient string
	Subject   string
	Body      string
}

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Router hands each message to the sender for its channel. Either sender
// may be nil, in which case that channel reports ErrChannelDisabled.
type Router struct {
	email EmailSender
	sms   SMSSender
}

func NewRouter(email EmailSender, sms SMSSender) *Router {
	return &Router{email: email, sms: sms}
}

// Deliver sends m over its channel.
func (r *Router) Deliver(ctx context.Context, m Message) error {
	if strings.TrimSpace(m.Recipient) == "" {
		return fmt.Errorf("deliver %s: recipient is required", m.Channel)
	}

	switch m.Channel {
	case ChannelEmail:
		if r.email == nil {
			return fmt.Errorf("deliver email: %w", ErrChannelDisabled)
		}
		return r.email.SendEmail(ctx, m.Recipient, m.Subject, m.Body)
	case ChannelSMS:
		if r.sms == nil {
			return fmt.Errorf("deliver sms: %w", ErrChannelDisabled)
		}
		return r.sms.SendSMS(ctx, m.Recipient, m.Body)
	default:
		return fmt.Errorf("deliver %s: %w", m.Channel, ErrUnsupportedChannel)
	}
}

// Supports reports whether the router can deliver over ch.
func (r *Router) Supports(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return r.email != nil
	case ChannelSMS:
		return r.sms != nil
	}
	return false
}

// Render replaces {{key}} placeholders in text with values from data.
// Unknown placeholders are left as-is.
func Render(text string, data map[string]string) string {
	for k, v := range data {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return text
}

var subjects = map[string]string{
	"appointment_reminder": "Appointment Reminder",
	"medication_reminder":  "Medication Reminder",
	"survey_reminder":      "Health Survey Reminder",
}

// SubjectFor returns the email subject used for a notification type.
func SubjectFor(notificationType string) string {
	if s, ok := subjects[notificationType]; ok {
		return s
	}
	return "Health Tracker Message"
}
