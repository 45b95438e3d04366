package chat

import (
	"time"

	"github.com/zhouzirui/research-partner/backend/internal/model/profile"
)

// State is the render loop state of a session.
type State string

const (
	StateAwaitingInput State = "awaiting_input"
	StateProcessing    State = "processing"
)

// Session is a point-in-time copy of one conversation. Callers own the copy.
type Session struct {
	ID         string          `json:"id"`
	Locale     string          `json:"locale"`
	Profile    profile.Profile `json:"profile"`
	Messages   []Message       `json:"messages"`
	State      State           `json:"state"`
	CreatedAt  time.Time       `json:"createdAt"`
	LastActive time.Time       `json:"lastActive"`
}

// Started reports whether the transcript has been initialized.
func (s Session) Started() bool {
	return len(s.Messages) > 0
}
