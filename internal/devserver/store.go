package devserver

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"deskline.app/chatsync/common/id"
	"deskline.app/chatsync/internal/model"
)

// memStore is the in-memory backing state of the stub server. It enforces
// the server-side invariants the client relies on: one conversation per
// user pair, server-assigned ids, per-user unread bookkeeping.
type memStore struct {
	mu        sync.Mutex
	employees map[string]*model.Employee
	order     []string
	convs     []*conversation
	messages  map[string][]model.ChatMessage
	uploads   map[string]upload
}

type conversation struct {
	id            string
	participants  [2]string
	createdAt     time.Time
	lastMessage   *model.MessageSummary
	lastMessageAt *time.Time
	unread        map[string]int
}

type upload struct {
	filename    string
	contentType string
	data        []byte
}

func newMemStore() *memStore {
	return &memStore{
		employees: map[string]*model.Employee{},
		messages:  map[string][]model.ChatMessage{},
		uploads:   map[string]upload{},
	}
}

func (s *memStore) upsertEmployee(e model.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	copied := e
	s.employees[e.ID] = &copied
}

func (s *memStore) employee(userID string) (model.Employee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[userID]
	if !ok {
		return model.Employee{}, false
	}
	return *e, true
}

// employeeList returns staff and admins in registration order. Customers
// never appear in the chat directory.
func (s *memStore) employeeList() []model.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Employee, 0, len(s.order))
	for _, eid := range s.order {
		e := s.employees[eid]
		if !e.Role.CanChat() {
			continue
		}
		out = append(out, *e)
	}
	return out
}

func (s *memStore) setStatus(userID string, isOnline *bool, status *string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[userID]
	if !ok {
		return false
	}
	now := time.Now().UTC()
	if isOnline != nil {
		e.IsOnline = *isOnline
		e.LastSeen = &now
	}
	if status != nil {
		e.Status = *status
	}
	return true
}

// ensureConversation finds or creates the unique conversation for the pair.
func (s *memStore) ensureConversation(a, b string) *conversation {
	for _, c := range s.convs {
		if (c.participants[0] == a && c.participants[1] == b) ||
			(c.participants[0] == b && c.participants[1] == a) {
			return c
		}
	}
	c := &conversation{
		id:           id.NewString(),
		participants: [2]string{a, b},
		createdAt:    time.Now().UTC(),
		unread:       map[string]int{},
	}
	s.convs = append(s.convs, c)
	return c
}

func (s *memStore) appendMessage(sender model.Employee, recipientID, content string, messageType model.MessageType, attachmentURL, attachmentName string) (model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[recipientID]; !ok {
		return model.ChatMessage{}, fmt.Errorf("recipient not found")
	}

	conv := s.ensureConversation(sender.ID, recipientID)
	now := time.Now().UTC()
	msg := model.ChatMessage{
		ID:             id.NewString(),
		ConversationID: conv.id,
		SenderID:       sender.ID,
		Content:        content,
		MessageType:    messageType,
		AttachmentURL:  attachmentURL,
		AttachmentName: attachmentName,
		CreatedAt:      now,
		UpdatedAt:      now,
		Sender: model.Sender{
			ID:    sender.ID,
			Name:  sender.Name,
			Email: sender.Email,
			Role:  sender.Role,
		},
	}
	s.messages[conv.id] = append(s.messages[conv.id], msg)

	summary := msg.Summary()
	conv.lastMessage = &summary
	conv.lastMessageAt = &now
	conv.unread[recipientID]++

	return msg, nil
}

// messagesFor returns the history of a conversation the user participates
// in, marking everything read for that user — fetching a thread is the
// server-side read receipt.
func (s *memStore) messagesFor(userID, convID string) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findConversation(convID)
	if conv == nil || !conv.has(userID) {
		return nil, fmt.Errorf("conversation not found")
	}

	now := time.Now().UTC()
	msgs := s.messages[convID]
	for i := range msgs {
		if msgs[i].SenderID != userID && !msgs[i].IsRead {
			msgs[i].IsRead = true
			msgs[i].ReadAt = &now
			msgs[i].UpdatedAt = now
		}
	}
	conv.unread[userID] = 0

	out := make([]model.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// conversationsFor lists the user's conversations, most recent activity
// first, each with the counterpart snapshot and the user's unread count.
func (s *memStore) conversationsFor(userID string) []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Conversation
	for _, c := range s.convs {
		if !c.has(userID) {
			continue
		}
		other := s.employees[c.other(userID)]
		if other == nil {
			continue
		}
		out = append(out, model.Conversation{
			ID:            c.id,
			OtherUser:     *other,
			LastMessage:   c.lastMessage,
			UnreadCount:   c.unread[userID],
			LastMessageAt: c.lastMessageAt,
			CreatedAt:     c.createdAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
	return out
}

func (s *memStore) unreadTotal(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.convs {
		if c.has(userID) {
			total += c.unread[userID]
		}
	}
	return total
}

func (s *memStore) saveUpload(filename, contentType string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uploadID := id.NewString()
	s.uploads[uploadID] = upload{filename: filename, contentType: contentType, data: data}
	return uploadID
}

func (s *memStore) getUpload(uploadID string) (upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[uploadID]
	return u, ok
}

func (s *memStore) findConversation(convID string) *conversation {
	for _, c := range s.convs {
		if c.id == convID {
			return c
		}
	}
	return nil
}

func (c *conversation) has(userID string) bool {
	return c.participants[0] == userID || c.participants[1] == userID
}

func (c *conversation) other(userID string) string {
	if c.participants[0] == userID {
		return c.participants[1]
	}
	return c.participants[0]
}
