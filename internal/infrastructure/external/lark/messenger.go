package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/application/port"
)

const receiveIDTypeChat = "chat_id"

// messageSender sends a single IM message and returns its message ID
type messageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// MessageAPI handles Lark messaging operations
type MessageAPI struct {
	client *SDKClient
	logger *zap.Logger
}

// NewMessageAPI creates a new message API handler
func NewMessageAPI(client *SDKClient, logger *zap.Logger) *MessageAPI {
	return &MessageAPI{
		client: client,
		logger: logger,
	}
}

// SendMessage sends a message to a user or group
func (m *MessageAPI) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	return messageID, nil
}

// Messenger delivers committee notifications to a Lark group chat.
// Implements port.NotificationSink.
type Messenger struct {
	sender messageSender
	chatID string
	logger *zap.Logger
}

// NewMessenger creates a notification sink posting to the client's chat
func NewMessenger(client *SDKClient, logger *zap.Logger) *Messenger {
	return newMessenger(NewMessageAPI(client, logger), client.GetChatID(), logger)
}

func newMessenger(sender messageSender, chatID string, logger *zap.Logger) *Messenger {
	return &Messenger{
		sender: sender,
		chatID: chatID,
		logger: logger,
	}
}

// Notify posts the notification as a text message
func (m *Messenger) Notify(ctx context.Context, notification port.Notification) error {
	if m.chatID == "" {
		return fmt.Errorf("chat ID cannot be empty")
	}

	content, err := textContent(notification)
	if err != nil {
		return err
	}

	messageID, err := m.sender.SendMessage(ctx, receiveIDTypeChat, m.chatID, "text", content)
	if err != nil {
		return fmt.Errorf("failed to notify chat: %w", err)
	}

	m.logger.Info("Notification posted to Lark",
		zap.String("message_id", messageID),
		zap.Int64("application_id", notification.ApplicationID),
		zap.String("event_type", notification.EventType))
	return nil
}

// textContent builds the JSON content of a Lark text message
func textContent(n port.Notification) (string, error) {
	text := n.Title
	if n.Body != "" {
		text += "\n" + n.Body
	}
	if text == "" {
		return "", fmt.Errorf("content cannot be empty")
	}

	data, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal text content: %w", err)
	}
	return string(data), nil
}

// Verify interface compliance
var _ port.NotificationSink = (*Messenger)(nil)
