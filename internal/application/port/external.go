package port

import (
	"context"
	"io"

	"github.com/garyjia/temple-membership/internal/domain/entity"
)

// MemberDirectory answers whether a member ID or IC number belongs to an active member
type MemberDirectory interface {
	IsActiveMember(ctx context.Context, memberIDOrIC string) (*entity.MemberLookup, error)
}

// Notification is a fire-and-forget message about an application
type Notification struct {
	ApplicationID int64
	EventType     string
	Title         string
	Body          string
}

// NotificationSink delivers notifications to staff
type NotificationSink interface {
	Notify(ctx context.Context, notification Notification) error
}

// RegisterExporter renders the application register as a spreadsheet
type RegisterExporter interface {
	WriteRegister(w io.Writer, apps []*entity.MemberApplication) error
}
