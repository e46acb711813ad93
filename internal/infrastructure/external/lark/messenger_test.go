package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/application/port"
)

type fakeSender struct {
	receiveIDType string
	receiveID     string
	msgType       string
	content       string
	err           error
}

func (f *fakeSender) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.receiveIDType = receiveIDType
	f.receiveID = receiveID
	f.msgType = msgType
	f.content = content
	return "om_123", nil
}

func TestMessenger_Notify(t *testing.T) {
	sender := &fakeSender{}
	m := newMessenger(sender, "oc_committee", zap.NewNop())

	err := m.Notify(context.Background(), port.Notification{
		ApplicationID: 5,
		EventType:     "application.approved",
		Title:         "Membership approved",
		Body:          "Application #5, \"Lim\"\nMember ID: TM202600001",
	})
	require.NoError(t, err)

	assert.Equal(t, "chat_id", sender.receiveIDType)
	assert.Equal(t, "oc_committee", sender.receiveID)
	assert.Equal(t, "text", sender.msgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(sender.content), &content))
	assert.Equal(t, "Membership approved\nApplication #5, \"Lim\"\nMember ID: TM202600001", content["text"])
}

func TestMessenger_Notify_Errors(t *testing.T) {
	m := newMessenger(&fakeSender{}, "", zap.NewNop())
	assert.Error(t, m.Notify(context.Background(), port.Notification{Title: "x"}), "missing chat")

	m = newMessenger(&fakeSender{}, "oc_committee", zap.NewNop())
	assert.Error(t, m.Notify(context.Background(), port.Notification{}), "empty content")

	sendErr := errors.New("rate limited")
	m = newMessenger(&fakeSender{err: sendErr}, "oc_committee", zap.NewNop())
	assert.ErrorIs(t, m.Notify(context.Background(), port.Notification{Title: "x"}), sendErr)
}

func TestNewSDKClient(t *testing.T) {
	c := NewSDKClient(Config{AppID: "cli_a", AppSecret: "secret", ChatID: "oc_1", Timeout: 3 * time.Second}, zap.NewNop())
	assert.NotNil(t, c.GetClient())
	assert.Equal(t, "oc_1", c.GetChatID())

	m := NewMessenger(c, zap.NewNop())
	assert.Equal(t, "oc_1", m.chatID)
}
