package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/temple-membership/internal/application/dispatcher"
	"github.com/garyjia/temple-membership/internal/application/port"
	"github.com/garyjia/temple-membership/internal/domain/entity"
	"github.com/garyjia/temple-membership/internal/domain/event"
)

const notificationHandlerName = "committee-notifier"

// NotificationService turns application events into staff notifications
type NotificationService interface {
	// Register subscribes the service to the events it reports on
	Register(d dispatcher.Dispatcher)

	// HandleEvent formats and delivers a notification for one event
	HandleEvent(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	sink   port.NotificationSink
	logger Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(sink port.NotificationSink, logger Logger) NotificationService {
	return &notificationServiceImpl{
		sink:   sink,
		logger: logger,
	}
}

// NotifiedEvents lists the event types that produce a notification
func NotifiedEvents() []event.Type {
	return []event.Type{
		event.TypeApplicationSubmitted,
		event.TypeReferralVerified,
		event.TypeApprovalRequested,
		event.TypeInterviewScheduled,
		event.TypeApplicationApproved,
		event.TypeApplicationRejected,
		event.TypeRefundProcessed,
	}
}

// Register subscribes the service to the events it reports on
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.Subscribe(notificationHandlerName, s.HandleEvent, NotifiedEvents()...)
}

// HandleEvent formats and delivers a notification for one event
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("event cannot be nil")
	}

	title, body, ok := formatNotification(evt)
	if !ok {
		return nil
	}

	notification := port.Notification{
		ApplicationID: evt.ApplicationID,
		EventType:     evt.Type.String(),
		Title:         title,
		Body:          body,
	}

	if err := s.sink.Notify(ctx, notification); err != nil {
		s.logger.Error("Failed to send notification",
			"error", err,
			"application_id", evt.ApplicationID,
			"event_type", evt.Type,
		)
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Info("Notification sent",
		"application_id", evt.ApplicationID,
		"event_type", evt.Type,
		"event_id", evt.ID,
	)
	return nil
}

func formatNotification(evt *event.Event) (string, string, bool) {
	name := evt.Payload.String("applicant_name")
	if name == "" {
		name = "(unnamed applicant)"
	}
	header := fmt.Sprintf("Application #%d, %s", evt.ApplicationID, name)

	var title string
	lines := []string{header}

	switch evt.Type {
	case event.TypeApplicationSubmitted:
		title = "New membership application submitted"
		lines = append(lines, "Ready for referral verification.")
	case event.TypeReferralVerified:
		title = "Referral verified"
		lines = append(lines, fmt.Sprintf("Referral %d (%s) verified by %s.",
			evt.Payload.Int("referral_number"), evt.Payload.String("member_id"), evt.ActorID))
	case event.TypeApprovalRequested:
		title = "Application awaiting committee approval"
		lines = append(lines, "Both referrals are verified.")
	case event.TypeInterviewScheduled:
		title = "Interview scheduled"
		line := fmt.Sprintf("Interview on %s", evt.Payload.String("date_time"))
		if loc := evt.Payload.String("location"); loc != "" {
			line += " at " + loc
		}
		lines = append(lines, line+".")
	case event.TypeApplicationApproved:
		title = "Membership approved"
		lines = append(lines,
			fmt.Sprintf("Member ID: %s", evt.Payload.String("permanent_member_id")),
			fmt.Sprintf("Committee: %s", evt.Payload.String("committee")))
	case event.TypeApplicationRejected:
		title = "Membership rejected"
		lines = append(lines, fmt.Sprintf("Reason: %s", evt.Payload.String("reason")))
		if evt.Payload.Bool("refund_eligible") {
			lines = append(lines, fmt.Sprintf("Refund due: %s", entity.FormatCents(evt.Payload.Int("refund_amount_cents"))))
		}
	case event.TypeRefundProcessed:
		title = "Entry fee refunded"
		lines = append(lines, fmt.Sprintf("Refunded %s, reference %s.",
			entity.FormatCents(evt.Payload.Int("refund_amount_cents")), evt.Payload.String("reference")))
	default:
		return "", "", false
	}

	return title, strings.Join(lines, "\n"), true
}
