package state

import (
	"time"

	"deskline.app/chatsync/internal/model"
)

// Action is the closed set of state transitions. The reducer switches
// exhaustively over these types; adding a case here without handling it in
// Reduce is a bug.
type Action interface {
	isAction()
}

type SetLoading struct {
	Loading bool
}

// SetError records a fetch failure for the UI. A non-empty message also
// forces Loading off. Empty message clears the error.
type SetError struct {
	Message string
}

type SetEmployees struct {
	Employees []model.Employee
}

type SetConversations struct {
	Conversations []model.Conversation
}

// SetActiveConversation selects a conversation ("" deselects). Deselecting
// clears the active thread; selecting does NOT — the caller fetches and
// replaces messages separately, so the previous thread stays visible instead
// of flashing empty while the fetch is in flight.
type SetActiveConversation struct {
	ID string
}

type SetActiveMessages struct {
	Messages []model.ChatMessage
}

// AddMessage appends a confirmed message. Unread counters increment only
// when the message belongs to a conversation other than the active one.
type AddMessage struct {
	Message model.ChatMessage
}

// UpdateMessage replaces a message in the active thread by id (read-state
// propagation).
type UpdateMessage struct {
	Message model.ChatMessage
}

// SetUnreadCount reconciles the aggregate counter against the server.
type SetUnreadCount struct {
	Count int
}

// MarkMessagesRead marks every unread message of the conversation in the
// active thread as read at At, and zeroes that conversation's unread count.
// The aggregate counter is left alone; the periodic unread fetch reconciles it.
type MarkMessagesRead struct {
	ConversationID string
	At             time.Time
}

// UpdateEmployeeStatus merges presence fields into the employee by id.
// Nil fields are left untouched.
type UpdateEmployeeStatus struct {
	EmployeeID string
	IsOnline   *bool
	LastSeen   *time.Time
	Status     *string
}

type SetTyping struct {
	ConversationID string
	Typing         bool
}

// UpdateConversation upserts: replace in place when the id exists, otherwise
// prepend (new conversations sort newest-first).
type UpdateConversation struct {
	Conversation model.Conversation
}

type SetSearchQuery struct {
	Query string
}

type SetSelectedDepartment struct {
	Department string
}

type SetShowOnlineOnly struct {
	ShowOnlineOnly bool
}

func (SetLoading) isAction()            {}
func (SetError) isAction()              {}
func (SetEmployees) isAction()          {}
func (SetConversations) isAction()      {}
func (SetActiveConversation) isAction() {}
func (SetActiveMessages) isAction()     {}
func (AddMessage) isAction()            {}
func (UpdateMessage) isAction()         {}
func (SetUnreadCount) isAction()        {}
func (MarkMessagesRead) isAction()      {}
func (UpdateEmployeeStatus) isAction()  {}
func (SetTyping) isAction()             {}
func (UpdateConversation) isAction()    {}
func (SetSearchQuery) isAction()        {}
func (SetSelectedDepartment) isAction() {}
func (SetShowOnlineOnly) isAction()     {}
