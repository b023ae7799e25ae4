// Package state holds the client-side chat cache: a normalized state tree
// mutated only through a closed set of actions applied by a pure reducer.
package state

import (
	"strings"

	"deskline.app/chatsync/internal/model"
)

// State is the root of the chat cache. Conversations keep the server-provided
// order (most recent activity first); ActiveMessages belongs to the active
// conversation only.
type State struct {
	Employees            []model.Employee
	Conversations        []model.Conversation
	ActiveConversationID string
	ActiveMessages       []model.ChatMessage
	UnreadCount          int
	Loading              bool
	Error                string

	SearchQuery        string
	SelectedDepartment string
	ShowOnlineOnly     bool

	// Typing is a per-conversation typing flag. No producer wires it yet;
	// it is the extension point for a future typing broadcast.
	Typing map[string]bool
}

// NewState returns the empty initial state.
func NewState() State {
	return State{Typing: map[string]bool{}}
}

// FilteredEmployees is the derived directory view: employees matching the
// search (name or email, case-insensitive), the department filter, and the
// online-only toggle. All three predicates are ANDed. Pure projection,
// recomputed on demand.
func (s State) FilteredEmployees() []model.Employee {
	query := strings.ToLower(s.SearchQuery)
	var out []model.Employee
	for _, e := range s.Employees {
		if query != "" &&
			!strings.Contains(strings.ToLower(e.Name), query) &&
			!strings.Contains(strings.ToLower(e.Email), query) {
			continue
		}
		if s.SelectedDepartment != "" && e.Department != s.SelectedDepartment {
			continue
		}
		if s.ShowOnlineOnly && !e.IsOnline {
			continue
		}
		out = append(out, e)
	}
	return out
}
