package state

import (
	"maps"
	"slices"

	"deskline.app/chatsync/internal/model"
)

// Reduce applies one action to the state and returns the next state. Pure:
// the input state is never mutated; slices and maps are copied before writes.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetLoading:
		s.Loading = a.Loading

	case SetError:
		s.Error = a.Message
		if a.Message != "" {
			s.Loading = false
		}

	case SetEmployees:
		s.Employees = slices.Clone(a.Employees)

	case SetConversations:
		s.Conversations = slices.Clone(a.Conversations)

	case SetActiveConversation:
		s.ActiveConversationID = a.ID
		if a.ID == "" {
			s.ActiveMessages = nil
		}

	case SetActiveMessages:
		s.ActiveMessages = slices.Clone(a.Messages)

	case AddMessage:
		s = addMessage(s, a.Message)

	case UpdateMessage:
		msgs := slices.Clone(s.ActiveMessages)
		for i, m := range msgs {
			if m.ID == a.Message.ID {
				msgs[i] = a.Message
			}
		}
		s.ActiveMessages = msgs

	case SetUnreadCount:
		s.UnreadCount = a.Count

	case MarkMessagesRead:
		msgs := slices.Clone(s.ActiveMessages)
		for i, m := range msgs {
			if m.ConversationID == a.ConversationID && !m.IsRead {
				at := a.At
				msgs[i].IsRead = true
				msgs[i].ReadAt = &at
			}
		}
		s.ActiveMessages = msgs
		convs := slices.Clone(s.Conversations)
		for i, c := range convs {
			if c.ID == a.ConversationID {
				convs[i].UnreadCount = 0
			}
		}
		s.Conversations = convs

	case UpdateEmployeeStatus:
		emps := slices.Clone(s.Employees)
		for i, e := range emps {
			if e.ID != a.EmployeeID {
				continue
			}
			if a.IsOnline != nil {
				emps[i].IsOnline = *a.IsOnline
			}
			if a.LastSeen != nil {
				emps[i].LastSeen = a.LastSeen
			}
			if a.Status != nil {
				emps[i].Status = *a.Status
			}
		}
		s.Employees = emps

	case SetTyping:
		typing := maps.Clone(s.Typing)
		if typing == nil {
			typing = map[string]bool{}
		}
		typing[a.ConversationID] = a.Typing
		s.Typing = typing

	case UpdateConversation:
		convs := slices.Clone(s.Conversations)
		replaced := false
		for i, c := range convs {
			if c.ID == a.Conversation.ID {
				convs[i] = a.Conversation
				replaced = true
			}
		}
		if !replaced {
			convs = append([]model.Conversation{a.Conversation}, convs...)
		}
		s.Conversations = convs

	case SetSearchQuery:
		s.SearchQuery = a.Query

	case SetSelectedDepartment:
		s.SelectedDepartment = a.Department

	case SetShowOnlineOnly:
		s.ShowOnlineOnly = a.ShowOnlineOnly
	}

	return s
}

func addMessage(s State, msg model.ChatMessage) State {
	if s.ActiveConversationID != "" && msg.ConversationID == s.ActiveConversationID {
		s.ActiveMessages = append(slices.Clone(s.ActiveMessages), msg)
	}

	summary := msg.Summary()
	createdAt := msg.CreatedAt
	incrementUnread := msg.ConversationID != s.ActiveConversationID

	convs := slices.Clone(s.Conversations)
	for i, c := range convs {
		if c.ID != msg.ConversationID {
			continue
		}
		convs[i].LastMessage = &summary
		convs[i].LastMessageAt = &createdAt
		if incrementUnread {
			convs[i].UnreadCount++
		}
	}
	s.Conversations = convs

	if incrementUnread {
		s.UnreadCount++
	}
	return s
}
