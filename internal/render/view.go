package render

import (
	"github.com/zhouzirui/research-partner/backend/internal/model/chat"
	"github.com/zhouzirui/research-partner/backend/internal/model/profile"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
)

// Entry is one visible line of the conversation.
type Entry struct {
	ID      string    `json:"id"`
	Role    chat.Role `json:"role"`
	Label   string    `json:"label"`
	Content string    `json:"content"`
}

// Form carries the localized copy for the profile form and the chat input.
type Form struct {
	NameLabel        string `json:"nameLabel"`
	FieldLabel       string `json:"fieldLabel"`
	StartLabel       string `json:"startLabel"`
	InputPlaceholder string `json:"inputPlaceholder"`
}

// View is everything a client needs to draw the page after a state change.
type View struct {
	SessionID    string          `json:"sessionId"`
	Locale       string          `json:"locale"`
	Title        string          `json:"title"`
	Intro        string          `json:"intro,omitempty"`
	Profile      profile.Profile `json:"profile"`
	NeedsProfile bool            `json:"needsProfile"`
	State        chat.State      `json:"state"`
	Messages     []Entry         `json:"messages"`
	Notice       string          `json:"notice,omitempty"`
	Form         Form            `json:"form"`
}

// Render builds the view of a session. System entries are never shown.
func Render(session chat.Session, pack prompt.Pack, notice string) View {
	view := View{
		SessionID:    session.ID,
		Locale:       session.Locale,
		Title:        pack.Title,
		Profile:      session.Profile,
		NeedsProfile: !session.Profile.Initialized,
		State:        session.State,
		Messages:     make([]Entry, 0, len(session.Messages)),
		Notice:       notice,
		Form: Form{
			NameLabel:        pack.NameLabel,
			FieldLabel:       pack.FieldLabel,
			StartLabel:       pack.StartLabel,
			InputPlaceholder: pack.InputPlaceholder,
		},
	}
	if view.NeedsProfile {
		view.Intro = pack.Intro
	}

	for _, msg := range session.Messages {
		var label string
		switch msg.Role {
		case chat.RoleUser:
			label = pack.UserLabel
		case chat.RoleAssistant:
			label = pack.AssistantLabel
		default:
			continue
		}
		view.Messages = append(view.Messages, Entry{
			ID:      msg.ID,
			Role:    msg.Role,
			Label:   label,
			Content: msg.Content,
		})
	}
	return view
}
