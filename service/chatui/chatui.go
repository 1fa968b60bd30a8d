// Package chatui renders a chat transcript as an HTML message list.
package chatui

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Status is the state of the chat request lifecycle.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusSubmitted, StatusStreaming:
		return true
	}
	return false
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat transcript.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Props is everything the message list is rendered from.
type Props struct {
	ChatID            string
	Status            Status
	Messages          []Message
	IsReadonly        bool
	IsArtifactVisible bool
}

// MessageView is a message as the template sees it.
type MessageView struct {
	Message
	IsLoading  bool
	IsReadonly bool
}

// View is the template model for the message list.
type View struct {
	ChatID       string
	ShowGreeting bool
	ShowThinking bool
	Messages     []MessageView
	Artifact     bool
}

// BuildView derives the template model from props.
func BuildView(p Props) View {
	v := View{
		ChatID:       p.ChatID,
		ShowGreeting: len(p.Messages) == 0,
		Artifact:     p.IsArtifactVisible,
		Messages:     make([]MessageView, len(p.Messages)),
	}
	last := len(p.Messages) - 1
	for i, m := range p.Messages {
		v.Messages[i] = MessageView{
			Message:    m,
			IsLoading:  p.Status == StatusStreaming && i == last,
			IsReadonly: p.IsReadonly,
		}
	}
	v.ShowThinking = p.Status == StatusSubmitted &&
		len(p.Messages) > 0 &&
		p.Messages[last].Role == RoleUser
	return v
}

// ShouldSkipRender reports whether next would render the same list as prev.
// Only status and messages are compared; the other props never force a
// re-render on their own. Any status change re-renders, whatever the two
// statuses are.
func ShouldSkipRender(prev, next Props) bool {
	if prev.Status != next.Status {
		return false
	}
	if len(prev.Messages) != len(next.Messages) {
		return false
	}
	return cmp.Equal(prev.Messages, next.Messages, cmpopts.EquateEmpty())
}
