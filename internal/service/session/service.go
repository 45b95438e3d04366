package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/research-partner/backend/internal/model/chat"
	"github.com/zhouzirui/research-partner/backend/internal/model/profile"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownLocale   = errors.New("unknown locale")
	ErrProfileLocked   = errors.New("profile already submitted")
	ErrProfileRequired = errors.New("profile must be submitted first")
	ErrNotInitialized  = errors.New("transcript not initialized")
	ErrInvalidMessage  = errors.New("invalid message")
	ErrTurnInProgress  = errors.New("a reply is already being generated")
)

// Service keeps every live session in process memory.
type Service struct {
	mu       sync.RWMutex
	packs    prompt.Store
	sessions map[string]*chat.Session
}

// NewService bootstraps an empty in-memory store.
func NewService(packs prompt.Store) *Service {
	return &Service{
		packs:    packs,
		sessions: make(map[string]*chat.Session),
	}
}

// Create provisions an empty session speaking the given locale.
func (s *Service) Create(_ context.Context, locale string) (chat.Session, error) {
	if locale == "" {
		locale = prompt.DefaultLocale
	}
	if _, ok := s.packs.Find(locale); !ok {
		return chat.Session{}, fmt.Errorf("%w: %s", ErrUnknownLocale, locale)
	}

	now := time.Now().UTC()
	session := &chat.Session{
		ID:         uuid.NewString(),
		Locale:     locale,
		State:      chat.StateAwaitingInput,
		CreatedAt:  now,
		LastActive: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return snapshot(session), nil
}

// Get returns a copy of the session.
func (s *Service) Get(_ context.Context, id string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return snapshot(session), nil
}

// SubmitProfile captures the researcher profile and initializes the transcript.
// The profile can be set only once per session.
func (s *Service) SubmitProfile(ctx context.Context, id, name, field string) (chat.Session, error) {
	captured, err := profile.Capture(name, field)
	if err != nil {
		return chat.Session{}, err
	}

	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return chat.Session{}, ErrSessionNotFound
	}
	if session.Profile.Initialized {
		s.mu.Unlock()
		return chat.Session{}, ErrProfileLocked
	}
	session.Profile = captured
	session.LastActive = time.Now().UTC()
	s.mu.Unlock()

	return s.Initialize(ctx, id)
}

// Initialize creates the transcript with the system prompt followed by the
// personalized greeting. The profile must be captured first. Repeated calls
// leave the transcript as is.
func (s *Service) Initialize(_ context.Context, id string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	if session.Started() {
		return snapshot(session), nil
	}
	if !session.Profile.Initialized {
		return chat.Session{}, ErrProfileRequired
	}

	pack, ok := s.packs.Find(session.Locale)
	if !ok {
		return chat.Session{}, fmt.Errorf("%w: %s", ErrUnknownLocale, session.Locale)
	}

	session.Messages = make([]chat.Message, 0, 16)
	session.Messages = append(session.Messages,
		stamp(chat.SystemMessage(pack.SystemPrompt)),
		stamp(chat.AssistantMessage(pack.Greeting(session.Profile))),
	)
	session.LastActive = time.Now().UTC()

	return snapshot(session), nil
}

// Append adds a user or assistant message to the tail of the transcript.
func (s *Service) Append(_ context.Context, id string, message chat.Message) error {
	if err := validate(message); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !session.Started() {
		return ErrNotInitialized
	}

	session.Messages = append(session.Messages, stamp(message))
	session.LastActive = time.Now().UTC()
	return nil
}

// BeginTurn moves the session into Processing. Only one turn may be in flight.
func (s *Service) BeginTurn(_ context.Context, id string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	if !session.Profile.Initialized {
		return chat.Session{}, ErrProfileRequired
	}
	if !session.Started() {
		return chat.Session{}, ErrNotInitialized
	}
	if session.State == chat.StateProcessing {
		return chat.Session{}, ErrTurnInProgress
	}

	session.State = chat.StateProcessing
	session.LastActive = time.Now().UTC()
	return snapshot(session), nil
}

// EndTurn returns the session to AwaitingInput.
func (s *Service) EndTurn(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		session.State = chat.StateAwaitingInput
		session.LastActive = time.Now().UTC()
	}
}

// Delete ends the session and drops its profile and transcript. A session in
// the middle of a turn cannot be deleted.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.State == chat.StateProcessing {
		return ErrTurnInProgress
	}
	delete(s.sessions, id)
	return nil
}

// ReapIdle removes sessions that have been idle for longer than ttl and are
// not processing a turn. It returns how many were removed.
func (s *Service) ReapIdle(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.State == chat.StateProcessing {
			continue
		}
		if now.Sub(session.LastActive) > ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions are live.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func validate(message chat.Message) error {
	switch message.Role {
	case chat.RoleUser, chat.RoleAssistant:
	case chat.RoleSystem:
		return fmt.Errorf("%w: system prompt is set by Initialize", ErrInvalidMessage)
	default:
		return fmt.Errorf("%w: role %q", ErrInvalidMessage, message.Role)
	}
	if strings.TrimSpace(message.Content) == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidMessage)
	}
	return nil
}

func stamp(message chat.Message) chat.Message {
	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	return message
}

func snapshot(session *chat.Session) chat.Session {
	copied := *session
	if session.Messages != nil {
		copied.Messages = make([]chat.Message, len(session.Messages))
		copy(copied.Messages, session.Messages)
	}
	return copied
}
