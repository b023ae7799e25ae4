package model

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeFile  MessageType = "file"
	MessageTypeImage MessageType = "image"
)

// Sender is the denormalized author snapshot carried on every message.
type Sender struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// ChatMessage is a single message in a conversation. Messages are immutable
// once created, except for IsRead/ReadAt which transition false -> true.
type ChatMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	Content        string      `json:"content"`
	MessageType    MessageType `json:"messageType"`
	AttachmentURL  string      `json:"attachmentUrl,omitempty"`
	AttachmentName string      `json:"attachmentName,omitempty"`
	IsRead         bool        `json:"isRead"`
	ReadAt         *time.Time  `json:"readAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Sender         Sender      `json:"sender"`
}

// Summary projects the message into the shape embedded on a conversation.
func (m ChatMessage) Summary() MessageSummary {
	return MessageSummary{
		ID:        m.ID,
		Content:   m.Content,
		Type:      m.MessageType,
		CreatedAt: m.CreatedAt,
		SenderID:  m.SenderID,
	}
}
