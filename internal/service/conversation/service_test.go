package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/model/chat"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
	"github.com/zhouzirui/research-partner/backend/internal/service/completion"
	"github.com/zhouzirui/research-partner/backend/internal/service/conversation"
	"github.com/zhouzirui/research-partner/backend/internal/service/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClient struct {
	prompts []completion.Prompt
	replies []string
	errs    []error
}

func (f *fakeClient) Complete(_ context.Context, p completion.Prompt) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, p)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "reply", nil
}

type fixture struct {
	sessions *session.Service
	convo    *conversation.Service
	client   *fakeClient
	id       string
}

func newFixture(t *testing.T, client *fakeClient) fixture {
	t.Helper()
	packs := prompt.NewMemoryStore(prompt.Seed())
	sessions := session.NewService(packs)
	created, err := sessions.Create(context.Background(), "en")
	require.NoError(t, err)
	return fixture{
		sessions: sessions,
		convo:    conversation.NewService(sessions, packs, client, zap.NewNop()),
		client:   client,
		id:       created.ID,
	}
}

func TestEndToEndTurn(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeClient{replies: []string{"X is a brain region."}})

	started, err := fx.sessions.SubmitProfile(ctx, fx.id, "A", "B")
	require.NoError(t, err)
	require.Len(t, started.Messages, 2)
	assert.Equal(t, chat.RoleSystem, started.Messages[0].Role)
	assert.Contains(t, started.Messages[1].Content, "A")
	assert.Contains(t, started.Messages[1].Content, "B")

	outcome, err := fx.convo.Submit(ctx, fx.id, "Tell me about X")
	require.NoError(t, err)
	assert.Equal(t, conversation.OutcomeReplied, outcome.Kind)
	assert.Equal(t, "X is a brain region.", outcome.Reply)

	after, err := fx.sessions.Get(ctx, fx.id)
	require.NoError(t, err)
	require.Len(t, after.Messages, len(started.Messages)+2)
	tail := after.Messages[len(after.Messages)-2:]
	assert.Equal(t, chat.RoleUser, tail[0].Role)
	assert.Equal(t, "Tell me about X", tail[0].Content)
	assert.Equal(t, chat.RoleAssistant, tail[1].Role)
	assert.Equal(t, "X is a brain region.", tail[1].Content)
	assert.Equal(t, chat.StateAwaitingInput, after.State)

	require.Len(t, outcome.View.Messages, 3)
	assert.Equal(t, chat.StateAwaitingInput, outcome.View.State)
}

func TestSystemPromptTravelsSeparately(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeClient{})
	started, err := fx.sessions.SubmitProfile(ctx, fx.id, "A", "B")
	require.NoError(t, err)

	_, err = fx.convo.Submit(ctx, fx.id, "Tell me about X")
	require.NoError(t, err)

	require.Len(t, fx.client.prompts, 1)
	sent := fx.client.prompts[0]
	assert.Equal(t, started.Messages[0].Content, sent.System)
	assert.NotContains(t, sent.Transcript, sent.System)
	assert.True(t, strings.HasPrefix(sent.Transcript, "Assistant: "))
	assert.True(t, strings.HasSuffix(sent.Transcript, "\nUser: Tell me about X"))
}

func TestCompletionFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	failure := &completion.CompletionError{Provider: "fake", Err: errors.New("quota exceeded")}
	fx := newFixture(t, &fakeClient{errs: []error{failure}, replies: []string{"", "second try works"}})
	started, err := fx.sessions.SubmitProfile(ctx, fx.id, "A", "B")
	require.NoError(t, err)

	outcome, err := fx.convo.Submit(ctx, fx.id, "Tell me about X")
	require.NoError(t, err)
	assert.Equal(t, conversation.OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, completion.ErrCompletion)
	assert.Contains(t, outcome.Notice, "quota exceeded")
	assert.Equal(t, outcome.Notice, outcome.View.Notice)

	after, err := fx.sessions.Get(ctx, fx.id)
	require.NoError(t, err)
	require.Len(t, after.Messages, len(started.Messages)+1)
	last := after.Messages[len(after.Messages)-1]
	assert.Equal(t, chat.RoleUser, last.Role)
	assert.Equal(t, "Tell me about X", last.Content)
	assert.Equal(t, chat.StateAwaitingInput, after.State)

	next, err := fx.convo.Submit(ctx, fx.id, "Try again")
	require.NoError(t, err)
	assert.Equal(t, conversation.OutcomeReplied, next.Kind)
	assert.Equal(t, "second try works", next.Reply)
}

func TestUnclassifiedClientErrorIsCompletionFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeClient{errs: []error{errors.New("boom")}})
	_, err := fx.sessions.SubmitProfile(ctx, fx.id, "A", "B")
	require.NoError(t, err)

	outcome, err := fx.convo.Submit(ctx, fx.id, "hi")
	require.NoError(t, err)
	assert.Equal(t, conversation.OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, completion.ErrCompletion)
}

func TestSubmitRequiresProfile(t *testing.T) {
	fx := newFixture(t, &fakeClient{})

	_, err := fx.convo.Submit(context.Background(), fx.id, "hello")

	assert.ErrorIs(t, err, session.ErrProfileRequired)
	assert.Empty(t, fx.client.prompts)
}

func TestSubmitBlankInputIsIgnored(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeClient{})
	started, err := fx.sessions.SubmitProfile(ctx, fx.id, "A", "B")
	require.NoError(t, err)

	outcome, err := fx.convo.Submit(ctx, fx.id, "   ")
	require.NoError(t, err)
	assert.Equal(t, conversation.OutcomeIgnored, outcome.Kind)

	after, _ := fx.sessions.Get(ctx, fx.id)
	assert.Len(t, after.Messages, len(started.Messages))
	assert.Empty(t, fx.client.prompts)
}

func TestSubmitWhileProcessingIsRejected(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeClient{})
	_, err := fx.sessions.SubmitProfile(ctx, fx.id, "A", "B")
	require.NoError(t, err)

	_, err = fx.sessions.BeginTurn(ctx, fx.id)
	require.NoError(t, err)

	_, err = fx.convo.Submit(ctx, fx.id, "second")
	assert.ErrorIs(t, err, session.ErrTurnInProgress)
	assert.Empty(t, fx.client.prompts)

	fx.sessions.EndTurn(ctx, fx.id)
	outcome, err := fx.convo.Submit(ctx, fx.id, "second")
	require.NoError(t, err)
	assert.Equal(t, conversation.OutcomeReplied, outcome.Kind)
}

func TestSubmitUnknownSession(t *testing.T) {
	fx := newFixture(t, &fakeClient{})

	_, err := fx.convo.Submit(context.Background(), "missing", "hello")

	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
