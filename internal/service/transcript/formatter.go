package transcript

import (
	"strings"

	"github.com/zhouzirui/research-partner/backend/internal/model/chat"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
)

// Formatter flattens a transcript into the text sent to the completion service.
// System entries are skipped; the system prompt travels separately.
type Formatter struct {
	UserLabel      string
	AssistantLabel string
}

// ForPack returns a Formatter using the pack's role labels.
func ForPack(pack prompt.Pack) Formatter {
	return Formatter{UserLabel: pack.UserLabel, AssistantLabel: pack.AssistantLabel}
}

// Format renders every non-system message as "<label>: <content>", one per line,
// in input order.
func (f Formatter) Format(messages []chat.Message) string {
	var builder strings.Builder
	for _, msg := range messages {
		label, ok := f.label(msg.Role)
		if !ok {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(label)
		builder.WriteString(": ")
		builder.WriteString(msg.Content)
	}
	return builder.String()
}

func (f Formatter) label(role chat.Role) (string, bool) {
	switch role {
	case chat.RoleUser:
		return f.UserLabel, true
	case chat.RoleAssistant:
		return f.AssistantLabel, true
	default:
		return "", false
	}
}
