// Package messaging builds the deep links the front end opens to contact a
// patient over SMS, WhatsApp or email. Nothing is sent and no delivery is
// recorded.
package messaging

import (
	"net/url"
	"strings"

	"github.com/followup/followup/pkg/validation"
)

const (
	MethodSMS      = "sms"
	MethodWhatsApp = "whatsapp"
	MethodEmail    = "email"
)

// DefaultSubject is used for emails that carry a body but no subject.
const DefaultSubject = "Health Tracker Message"

// Link is a composed deep link.
type Link struct {
	Method    string `json:"method"`
	Recipient string `json:"recipient"`
	URI       string `json:"uri"`
}

// escape percent-encodes a query component with spaces as %20, not +.
// Unlike encodeURIComponent it also escapes !'()*; both decode to the same text.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WhatsAppLink returns https://wa.me/<digits> with every non-digit removed
// from phone, plus ?text= when text is not empty.
func WhatsAppLink(phone, text string) string {
	uri := "https://wa.me/" + digits(phone)
	if text != "" {
		uri += "?text=" + escape(text)
	}
	return uri
}

// SMSLink returns sms:<phone> with the number kept as entered.
func SMSLink(phone, body string) string {
	uri := "sms:" + phone
	if body != "" {
		uri += "?body=" + escape(body)
	}
	return uri
}

// EmailLink returns mailto:<address>. A body without a subject gets
// DefaultSubject.
func EmailLink(address, subject, body string) string {
	if body != "" && subject == "" {
		subject = DefaultSubject
	}
	var params []string
	if subject != "" {
		params = append(params, "subject="+escape(subject))
	}
	if body != "" {
		params = append(params, "body="+escape(body))
	}
	uri := "mailto:" + address
	if len(params) > 0 {
		uri += "?" + strings.Join(params, "&")
	}
	return uri
}

// Request is the compose form.
type Request struct {
	Method    string `json:"method"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

func (r *Request) normalize() {
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	r.Recipient = strings.TrimSpace(r.Recipient)
	r.Subject = strings.TrimSpace(r.Subject)
}

// Compose validates r and builds the link for its method.
func Compose(r Request) (*Link, error) {
	r.normalize()

	errs := validation.Errors{}
	errs.Required("method", r.Method)
	errs.OneOf("method", r.Method, MethodSMS, MethodWhatsApp, MethodEmail)
	errs.Required("recipient", r.Recipient)
	if r.Method == MethodWhatsApp && r.Recipient != "" && digits(r.Recipient) == "" {
		errs.Add("recipient", "recipient must contain a phone number")
	}
	if r.Method == MethodEmail {
		errs.Email("recipient", r.Recipient)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	link := &Link{Method: r.Method, Recipient: r.Recipient}
	switch r.Method {
	case MethodWhatsApp:
		link.URI = WhatsAppLink(r.Recipient, r.Message)
	case MethodSMS:
		link.URI = SMSLink(r.Recipient, r.Message)
	case MethodEmail:
		link.URI = EmailLink(r.Recipient, r.Subject, r.Message)
	}
	return link, nil
}
