package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/garyjia/temple-membership/internal/application/dispatcher"
	"github.com/garyjia/temple-membership/internal/domain/event"
)

func TestNotificationService_HandleEvent_Approved(t *testing.T) {
	sink := &mockSink{}
	svc := NewNotificationService(sink, &mockLogger{})

	evt := event.NewEvent(event.TypeApplicationApproved, 7, "chair-1", map[string]interface{}{
		"applicant_name":      "Lim Wei Ming",
		"permanent_member_id": "TM202600001",
		"committee":           "Board of Trustees",
	})

	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(sink.notifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(sink.notifications))
	}
	n := sink.notifications[0]
	if n.ApplicationID != 7 {
		t.Errorf("ApplicationID = %d, want 7", n.ApplicationID)
	}
	if n.EventType != "application.approved" {
		t.Errorf("EventType = %s, want application.approved", n.EventType)
	}
	if n.Title != "Membership approved" {
		t.Errorf("Title = %q", n.Title)
	}
	for _, want := range []string{"Application #7, Lim Wei Ming", "Member ID: TM202600001", "Committee: Board of Trustees"} {
		if !strings.Contains(n.Body, want) {
			t.Errorf("Body %q does not contain %q", n.Body, want)
		}
	}
}

func TestNotificationService_HandleEvent_RejectedWithRefund(t *testing.T) {
	sink := &mockSink{}
	svc := NewNotificationService(sink, &mockLogger{})

	evt := event.NewEvent(event.TypeApplicationRejected, 3, "chair-1", map[string]interface{}{
		"applicant_name":      "Tan Mei Ling",
		"reason":              "Committee Decision",
		"refund_eligible":     true,
		"refund_amount_cents": int64(5100),
	})

	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	body := sink.notifications[0].Body
	if !strings.Contains(body, "Reason: Committee Decision") {
		t.Errorf("Body missing reason: %q", body)
	}
	if !strings.Contains(body, "Refund due: 51.00") {
		t.Errorf("Body missing refund amount: %q", body)
	}
}

func TestNotificationService_HandleEvent_RejectedWithoutRefund(t *testing.T) {
	sink := &mockSink{}
	svc := NewNotificationService(sink, &mockLogger{})

	evt := event.NewEvent(event.TypeApplicationRejected, 3, "chair-1", map[string]interface{}{
		"reason":          "Other",
		"refund_eligible": false,
	})

	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	body := sink.notifications[0].Body
	if strings.Contains(body, "Refund due") {
		t.Errorf("Body should not mention a refund: %q", body)
	}
	if !strings.Contains(body, "(unnamed applicant)") {
		t.Errorf("Body should fall back to placeholder name: %q", body)
	}
}

func TestNotificationService_HandleEvent_Refund(t *testing.T) {
	sink := &mockSink{}
	svc := NewNotificationService(sink, &mockLogger{})

	evt := event.NewEvent(event.TypeRefundProcessed, 9, "treasurer", map[string]interface{}{
		"applicant_name":      "Ong Kah Seng",
		"refund_amount_cents": int64(2500),
		"reference":           "TRX-001",
	})

	if err := svc.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	n := sink.notifications[0]
	if n.Title != "Entry fee refunded" {
		t.Errorf("Title = %q", n.Title)
	}
	if !strings.Contains(n.Body, "Refunded 25.00, reference TRX-001.") {
		t.Errorf("Body = %q", n.Body)
	}
}

func TestNotificationService_HandleEvent_SkipsUnreportedTypes(t *testing.T) {
	sink := &mockSink{}
	svc := NewNotificationService(sink, &mockLogger{})

	for _, typ := range []event.Type{event.TypeDraftUpdated, event.TypeApplicationCreated, event.TypeStatusChanged} {
		if err := svc.HandleEvent(context.Background(), event.NewEvent(typ, 1, "clerk-1", nil)); err != nil {
			t.Errorf("HandleEvent(%s) error = %v", typ, err)
		}
	}

	if len(sink.notifications) != 0 {
		t.Errorf("Expected no notifications, got %d", len(sink.notifications))
	}
}

func TestNotificationService_HandleEvent_NilEvent(t *testing.T) {
	svc := NewNotificationService(&mockSink{}, &mockLogger{})

	if err := svc.HandleEvent(context.Background(), nil); err == nil {
		t.Error("Expected error for nil event")
	}
}

func TestNotificationService_HandleEvent_SinkError(t *testing.T) {
	sinkErr := errors.New("lark unavailable")
	svc := NewNotificationService(&mockSink{err: sinkErr}, &mockLogger{})

	evt := event.NewEvent(event.TypeApplicationSubmitted, 1, "clerk-1", nil)
	err := svc.HandleEvent(context.Background(), evt)
	if !errors.Is(err, sinkErr) {
		t.Errorf("Expected wrapped sink error, got %v", err)
	}
}

func TestNotificationService_Register(t *testing.T) {
	sink := &mockSink{}
	svc := NewNotificationService(sink, &mockLogger{})
	d := dispatcher.NewDispatcher()
	defer d.Close()

	svc.Register(d)

	for _, typ := range NotifiedEvents() {
		handlers := d.ListHandlers(typ)
		if len(handlers) != 1 {
			t.Errorf("ListHandlers(%s) = %d handlers, want 1", typ, len(handlers))
			continue
		}
		if handlers[0].Name != notificationHandlerName {
			t.Errorf("handler name = %s, want %s", handlers[0].Name, notificationHandlerName)
		}
	}
	if len(d.ListHandlers(event.TypeDraftUpdated)) != 0 {
		t.Error("draft updates should not be subscribed")
	}

	evt := event.NewEvent(event.TypeInterviewScheduled, 4, "secretary", map[string]interface{}{
		"applicant_name": "Lee Chong",
		"date_time":      "2026-11-02T10:00:00Z",
		"location":       "Main Hall",
	})
	if err := d.Dispatch(context.Background(), evt); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(sink.notifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(sink.notifications))
	}
	if !strings.Contains(sink.notifications[0].Body, "Interview on 2026-11-02T10:00:00Z at Main Hall.") {
		t.Errorf("Body = %q", sink.notifications[0].Body)
	}
}
