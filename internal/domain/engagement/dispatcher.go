package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/followup/followup/internal/domain/patient"
	"github.com/followup/followup/internal/platform/notification"
)

// Deliverer sends one message over its channel.
type Deliverer interface {
	Deliver(ctx context.Context, m notification.Message) error
	Supports(ch notification.Channel) bool
}

// Dispatcher drains due notification schedules. Each row is attempted once:
// success marks it sent, any failure marks it failed. Rows whose delivery
// method has no configured sender, WhatsApp included, stay pending.
type Dispatcher struct {
	svc    *Service
	router Deliverer
	logger zerolog.Logger

	Interval  time.Duration
	BatchSize int

	dispatched metric.Int64Counter
}

func NewDispatcher(svc *Service, router Deliverer, logger zerolog.Logger) *Dispatcher {
	counter, _ := otel.Meter("github.com/followup/followup/engagement").Int64Counter(
		"notifications_dispatched",
		metric.WithDescription("Notification schedules processed by the dispatcher"),
		metric.WithUnit("{notification}"),
	)
	return &Dispatcher{
		svc:        svc,
		router:     router,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
		Interval:   time.Minute,
		BatchSize:  100,
		dispatched: counter,
	}
}

// Start runs a pass every Interval until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().Dur("interval", d.Interval).Msg("notification dispatcher started")
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("notification dispatcher stopped")
			return nil
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil {
				d.logger.Error().Err(err).Msg("dispatch pass failed")
			}
		}
	}
}

// Result counts the outcome of one pass.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// RunOnce delivers the notifications due now.
func (d *Dispatcher) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	due, err := d.svc.DueNotifications(ctx, d.methods(), d.BatchSize)
	if err != nil {
		return res, fmt.Errorf("load due notifications: %w", err)
	}

	for _, n := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		log := d.logger.With().Str("notification_id", n.ID.String()).Str("method", n.DeliveryMethod).Logger()

		if err := d.deliver(ctx, n); err != nil {
			log.Warn().Err(err).Msg("notification delivery failed")
			if err := d.svc.MarkFailed(ctx, n.ID); err != nil {
				if errors.Is(err, ErrStatusChanged) {
					log.Info().Msg("notification changed during delivery, status kept")
					continue
				}
				return res, fmt.Errorf("mark notification %s failed: %w", n.ID, err)
			}
			res.Failed++
			d.record(ctx, n, NotificationFailed)
			continue
		}
		if err := d.svc.MarkSent(ctx, n.ID); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				log.Info().Msg("notification changed during delivery, status kept")
				continue
			}
			return res, fmt.Errorf("mark notification %s sent: %w", n.ID, err)
		}
		res.Sent++
		d.record(ctx, n, NotificationSent)
		log.Debug().Msg("notification sent")
	}
	return res, nil
}

func (d *Dispatcher) methods() []string {
	var out []string
	for _, m := range []string{MethodSMS, MethodEmail} {
		if d.router.Supports(notification.Channel(m)) {
			out = append(out, m)
		}
	}
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, n *NotificationSchedule) error {
	p, err := d.svc.Contact(ctx, n)
	if err != nil {
		return err
	}
	msg, err := composeMessage(n, p)
	if err != nil {
		return err
	}
	return d.router.Deliver(ctx, msg)
}

func (d *Dispatcher) record(ctx context.Context, n *NotificationSchedule, outcome string) {
	if d.dispatched == nil {
		return
	}
	d.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", n.DeliveryMethod),
		attribute.String("type", n.NotificationType),
		attribute.String("outcome", outcome),
	))
}

// composeMessage addresses n to the patient's contact for its delivery
// method and fills the {{first_name}}, {{last_name}}, {{patient_name}} and
// {{code_number}} placeholders.
func composeMessage(n *NotificationSchedule, p *patient.Patient) (notification.Message, error) {
	msg := notification.Message{
		Channel: notification.Channel(n.DeliveryMethod),
		Subject: notification.SubjectFor(n.NotificationType),
		Body: notification.Render(n.MessageContent, map[string]string{
			"first_name":   p.FirstName,
			"last_name":    p.LastName,
			"patient_name": p.FullName(),
			"code_number":  p.CodeNumber,
		}),
	}
	var contact *string
	switch n.DeliveryMethod {
	case MethodEmail:
		contact = p.Email
	case MethodSMS, MethodWhatsApp:
		contact = p.Phone
	}
	if contact == nil || *contact == "" {
		return msg, fmt.Errorf("patient %s has no contact for %s", p.ID, n.DeliveryMethod)
	}
	msg.Recipient = *contact
	return msg, nil
}
