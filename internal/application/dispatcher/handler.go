package dispatcher

import (
	"context"

	"github.com/garyjia/temple-membership/internal/domain/event"
)

// Handler reacts to one application lifecycle event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a subscription without exposing the handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
}
