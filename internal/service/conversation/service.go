package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/model/chat"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
	"github.com/zhouzirui/research-partner/backend/internal/render"
	"github.com/zhouzirui/research-partner/backend/internal/service/completion"
	"github.com/zhouzirui/research-partner/backend/internal/service/session"
	"github.com/zhouzirui/research-partner/backend/internal/service/transcript"
)

// OutcomeKind classifies how a submission resolved.
type OutcomeKind string

const (
	// OutcomeReplied means the assistant reply was appended.
	OutcomeReplied OutcomeKind = "replied"
	// OutcomeFailed means the completion call failed; the user message stays
	// in history without a reply.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeIgnored means the submission was blank and nothing changed.
	OutcomeIgnored OutcomeKind = "ignored"
)

// Outcome is the result of one turn together with the view to draw next.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reply  string      `json:"reply,omitempty"`
	Notice string      `json:"notice,omitempty"`
	View   render.View `json:"view"`
	Err    error       `json:"-"`
}

// Service drives the AwaitingInput -> Processing -> AwaitingInput loop of a
// session. Turns of one session never overlap.
type Service struct {
	sessions *session.Service
	packs    prompt.Store
	client   completion.Client
	logger   *zap.Logger
}

// NewService wires the render loop to its collaborators.
func NewService(sessions *session.Service, packs prompt.Store, client completion.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions: sessions,
		packs:    packs,
		client:   client,
		logger:   logger.Named("conversation"),
	}
}

// View renders the current state of a session.
func (s *Service) View(ctx context.Context, sessionID, notice string) (render.View, error) {
	snap, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return render.View{}, err
	}
	pack, err := s.pack(snap.Locale)
	if err != nil {
		return render.View{}, err
	}
	return render.Render(snap, pack, notice), nil
}

// Submit runs one turn for the given input. Completion failures are reported
// through Outcome; the returned error covers everything that prevents the turn
// from starting.
func (s *Service) Submit(ctx context.Context, sessionID, input string) (Outcome, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		view, err := s.View(ctx, sessionID, "")
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeIgnored, View: view}, nil
	}

	outcome, err := s.runTurn(ctx, sessionID, input)
	if err != nil {
		return Outcome{}, err
	}

	view, err := s.View(ctx, sessionID, outcome.Notice)
	if err != nil {
		return Outcome{}, err
	}
	outcome.View = view
	return outcome, nil
}

func (s *Service) runTurn(ctx context.Context, sessionID, input string) (Outcome, error) {
	snap, err := s.sessions.BeginTurn(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	defer s.sessions.EndTurn(ctx, sessionID)

	pack, err := s.pack(snap.Locale)
	if err != nil {
		return Outcome{}, err
	}

	userMsg := chat.UserMessage(input)
	if err := s.sessions.Append(ctx, sessionID, userMsg); err != nil {
		return Outcome{}, err
	}
	history := append(snap.Messages, userMsg)

	request := completion.Prompt{
		System:     systemPrompt(history),
		Transcript: transcript.ForPack(pack).Format(history),
	}

	reply, err := s.client.Complete(ctx, request)
	if err != nil {
		if !errors.Is(err, completion.ErrCompletion) {
			err = &completion.CompletionError{Provider: "unknown", Err: err}
		}
		s.logger.Warn("turn aborted",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return Outcome{
			Kind:   OutcomeFailed,
			Notice: fmt.Sprintf("%s: %v", pack.FailureNotice, err),
			Err:    err,
		}, nil
	}

	if err := s.sessions.Append(ctx, sessionID, chat.AssistantMessage(reply)); err != nil {
		return Outcome{}, err
	}

	s.logger.Info("turn completed",
		zap.String("session_id", sessionID),
		zap.Int("history_len", len(history)+1),
	)
	return Outcome{Kind: OutcomeReplied, Reply: reply}, nil
}

func (s *Service) pack(locale string) (prompt.Pack, error) {
	pack, ok := s.packs.Find(locale)
	if !ok {
		return prompt.Pack{}, fmt.Errorf("%w: %s", session.ErrUnknownLocale, locale)
	}
	return pack, nil
}

func systemPrompt(messages []chat.Message) string {
	if len(messages) > 0 && messages[0].Role == chat.RoleSystem {
		return messages[0].Content
	}
	return ""
}
