// Package sync orchestrates the fetch/refresh cycles that keep the chat
// state store consistent with the server: initial load, periodic polling,
// presence heartbeat, and the send/read flows.
package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"deskline.app/chatsync/common/logger"
	"deskline.app/chatsync/internal/api"
	"deskline.app/chatsync/internal/model"
	"deskline.app/chatsync/internal/notify"
	"deskline.app/chatsync/internal/session"
	"deskline.app/chatsync/internal/state"
)

// API is the slice of the request client the engine depends on.
type API interface {
	Employees(ctx context.Context) ([]model.Employee, error)
	UpdateStatus(ctx context.Context, update model.StatusUpdate) error
	Conversations(ctx context.Context) ([]model.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
	SendMessage(ctx context.Context, recipientID, content string) (*model.ChatMessage, error)
	SendFileMessage(ctx context.Context, recipientID, attachmentURL, attachmentName string, messageType model.MessageType) (*model.ChatMessage, error)
	Upload(ctx context.Context, filename string, file io.Reader) (*api.UploadResult, error)
	UnreadCount(ctx context.Context) (int, error)
	RateLimitedUntil() time.Time
}

var _ API = (*api.Client)(nil)

// conversationStarter is the canned first message that makes the server
// create the conversation for a new counterpart.
const conversationStarter = "Started a conversation"

type Engine struct {
	api      API
	store    *state.Store
	notifier notify.Notifier
	user     session.User
}

func NewEngine(apiClient API, store *state.Store, notifier notify.Notifier, user session.User) *Engine {
	return &Engine{
		api:      apiClient,
		store:    store,
		notifier: notifier,
		user:     user,
	}
}

// Store exposes the state store for subscribers (the presentation layer).
func (e *Engine) Store() *state.Store {
	return e.store
}

func (e *Engine) User() session.User {
	return e.user
}

// FetchEmployees replaces the employee directory.
func (e *Engine) FetchEmployees(ctx context.Context) error {
	employees, err := e.api.Employees(ctx)
	if err != nil {
		return e.readFailure(ctx, "fetch_employees", err)
	}
	e.store.Dispatch(state.SetEmployees{Employees: employees})
	return nil
}

// FetchConversations replaces the conversation list.
func (e *Engine) FetchConversations(ctx context.Context) error {
	conversations, err := e.api.Conversations(ctx)
	if err != nil {
		return e.readFailure(ctx, "fetch_conversations", err)
	}
	e.store.Dispatch(state.SetConversations{Conversations: conversations})
	return nil
}

// FetchMessages replaces the active thread with the conversation's history.
func (e *Engine) FetchMessages(ctx context.Context, conversationID string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ConversationID: logger.Ptr(conversationID)})
	messages, err := e.api.Messages(ctx, conversationID)
	if err != nil {
		return e.readFailure(ctx, "fetch_messages", err)
	}
	e.store.Dispatch(state.SetActiveMessages{Messages: messages})
	return nil
}

// SetActiveConversation selects a conversation and, when selecting (not
// clearing), marks its messages read locally and fetches the thread.
func (e *Engine) SetActiveConversation(ctx context.Context, conversationID string) {
	e.store.Dispatch(state.SetActiveConversation{ID: conversationID})
	if conversationID == "" {
		return
	}
	e.MarkMessagesRead(conversationID)
	if err := e.FetchMessages(ctx, conversationID); err != nil {
		slog.WarnContext(ctx, "fetching thread for selected conversation failed",
			"error", err,
			"conversation_id", conversationID)
	}
}

// StartConversation sends the canned first message to the employee — the
// server creates the conversation on first message — then refreshes the list
// and returns the server-assigned conversation id.
func (e *Engine) StartConversation(ctx context.Context, employeeID string) (string, error) {
	msg, err := e.api.SendMessage(ctx, employeeID, conversationStarter)
	if err != nil {
		return "", fmt.Errorf("starting conversation: %w", err)
	}
	if err := e.FetchConversations(ctx); err != nil {
		slog.WarnContext(ctx, "conversation refresh after start failed", "error", err)
	}
	return msg.ConversationID, nil
}

// SendMessage posts a text message. The confirmed message (carrying the
// server-assigned id) is appended to the store, then the conversation list
// is refreshed — the server stays the source of truth for ordering and
// last-message summaries.
func (e *Engine) SendMessage(ctx context.Context, recipientID, content string) error {
	msg, err := e.api.SendMessage(ctx, recipientID, content)
	if err != nil {
		return e.writeFailure(ctx, "send_message", "Failed to send message", err)
	}
	e.store.Dispatch(state.AddMessage{Message: *msg})
	if err := e.FetchConversations(ctx); err != nil {
		slog.WarnContext(ctx, "conversation refresh after send failed", "error", err)
	}
	return nil
}

// SendFileMessage uploads the file, then posts a message referencing the
// uploaded URL. The message type is inferred from the MIME type: image/*
// becomes an image message, everything else a file message. Upload failure
// aborts the send.
func (e *Engine) SendFileMessage(ctx context.Context, recipientID, filename, mimeType string, file io.Reader) error {
	uploaded, err := e.api.Upload(ctx, filename, file)
	if err != nil {
		return e.writeFailure(ctx, "upload_file", "Failed to upload file", err)
	}

	messageType := model.MessageTypeFile
	if strings.HasPrefix(mimeType, "image/") {
		messageType = model.MessageTypeImage
	}

	msg, err := e.api.SendFileMessage(ctx, recipientID, uploaded.URL, uploaded.Filename, messageType)
	if err != nil {
		return e.writeFailure(ctx, "send_file_message", "Failed to send file", err)
	}
	e.store.Dispatch(state.AddMessage{Message: *msg})
	if err := e.FetchConversations(ctx); err != nil {
		slog.WarnContext(ctx, "conversation refresh after send failed", "error", err)
	}
	return nil
}

// MarkMessagesRead is a client-local state change: the contract has no
// mark-read endpoint, and the aggregate counter is reconciled by the
// periodic unread fetch.
func (e *Engine) MarkMessagesRead(conversationID string) {
	e.store.Dispatch(state.MarkMessagesRead{
		ConversationID: conversationID,
		At:             time.Now().UTC(),
	})
}

// UpdateStatus patches the agent's presence. Best-effort: failures are
// logged, never surfaced.
func (e *Engine) UpdateStatus(ctx context.Context, update model.StatusUpdate) {
	if err := e.api.UpdateStatus(ctx, update); err != nil {
		slog.WarnContext(ctx, "presence update failed", "error", err)
		return
	}
	now := time.Now().UTC()
	e.store.Dispatch(state.UpdateEmployeeStatus{
		EmployeeID: e.user.ID,
		IsOnline:   update.IsOnline,
		LastSeen:   &now,
		Status:     update.Status,
	})
}

// RefreshUnreadCount reconciles the aggregate unread counter against the
// server and returns the fresh value.
func (e *Engine) RefreshUnreadCount(ctx context.Context) (int, error) {
	count, err := e.api.UnreadCount(ctx)
	if err != nil {
		return 0, e.readFailure(ctx, "refresh_unread_count", err)
	}
	e.store.Dispatch(state.SetUnreadCount{Count: count})
	return count, nil
}

// readFailure handles fetch-path errors: the store error replaces the main
// view, and auth failures additionally raise the re-login notice.
func (e *Engine) readFailure(ctx context.Context, op string, err error) error {
	slog.ErrorContext(ctx, "chat fetch failed", "operation", op, "error", err)
	e.store.Dispatch(state.SetError{Message: err.Error()})
	if api.IsAuthError(err) {
		e.notifier.Notify(ctx, err.Error())
	}
	return fmt.Errorf("%s: %w", op, err)
}

// writeFailure handles send-path errors: the rest of the UI stays usable
// (no store error), but the user is told what failed.
func (e *Engine) writeFailure(ctx context.Context, op, what string, err error) error {
	slog.ErrorContext(ctx, "chat send failed", "operation", op, "error", err)
	e.notifier.Notify(ctx, fmt.Sprintf("%s: %s", what, err.Error()))
	return fmt.Errorf("%s: %w", op, err)
}
