package model

import "time"

// MessageSummary is the last-message digest embedded on a conversation.
type MessageSummary struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"createdAt"`
	SenderID  string      `json:"senderId"`
}

// Conversation is a direct thread between the current user and OtherUser.
// The server guarantees exactly one conversation per user pair; the client
// must never create a duplicate local entry for the same id.
type Conversation struct {
	ID            string          `json:"id"`
	OtherUser     Employee        `json:"otherUser"`
	LastMessage   *MessageSummary `json:"lastMessage,omitempty"`
	UnreadCount   int             `json:"unreadCount"`
	LastMessageAt *time.Time      `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}
