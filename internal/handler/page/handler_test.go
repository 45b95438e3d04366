package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/model/chat"
	"github.com/zhouzirui/research-partner/backend/internal/model/prompt"
	"github.com/zhouzirui/research-partner/backend/internal/service/completion"
	"github.com/zhouzirui/research-partner/backend/internal/service/conversation"
	sessionService "github.com/zhouzirui/research-partner/backend/internal/service/session"
)

func setup(client completion.Client) (*chi.Mux, *sessionService.Service) {
	packs := prompt.NewMemoryStore(prompt.Seed())
	sessions := sessionService.NewService(packs)
	convo := conversation.NewService(sessions, packs, client, zap.NewNop())

	r := chi.NewRouter()
	New(sessions, convo, packs, "en", false, zap.NewNop()).RegisterRoutes(r)
	return r, sessions
}

func get(r http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func post(r http.Handler, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func sessionCookie(t *testing.T, resp *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func startProfile(t *testing.T, r http.Handler) *http.Cookie {
	t.Helper()
	cookie := sessionCookie(t, get(r, "/", nil))
	resp := post(r, "/profile", cookie, url.Values{"name": {"Ada"}, "field": {"Neuroscience"}})
	require.Equal(t, http.StatusSeeOther, resp.Code)
	return cookie
}

func echo() completion.Client {
	return completion.ClientFunc(func(context.Context, completion.Prompt) (string, error) {
		return "echo reply", nil
	})
}

func TestIndexStartsSessionWithProfileForm(t *testing.T) {
	r, sessions := setup(echo())

	resp := get(r, "/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	cookie := sessionCookie(t, resp)
	assert.Equal(t, 1, sessions.Len())

	body := resp.Body.String()
	assert.Contains(t, body, `action="/profile"`)
	assert.Contains(t, body, "Your name")

	// same cookie, same session
	get(r, "/", cookie)
	assert.Equal(t, 1, sessions.Len())
}

func TestIndexHonoursLangQuery(t *testing.T) {
	r, sessions := setup(echo())

	cookie := sessionCookie(t, get(r, "/?lang=ko", nil))
	snap, err := sessions.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "ko", snap.Locale)

	cookie = sessionCookie(t, get(r, "/?lang=xx", nil))
	snap, err = sessions.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "en", snap.Locale)
}

func TestIncompleteProfileReshowsForm(t *testing.T) {
	r, sessions := setup(echo())
	cookie := sessionCookie(t, get(r, "/", nil))

	resp := post(r, "/profile", cookie, url.Values{"name": {"Ada"}, "field": {"  "}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "Please fill in both your name and research field.")
	assert.Contains(t, resp.Body.String(), `value="Ada"`)

	snap, err := sessions.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.False(t, snap.Profile.Initialized)
	assert.Empty(t, snap.Messages)
}

func TestProfileThenChat(t *testing.T) {
	r, sessions := setup(echo())
	cookie := startProfile(t, r)

	page := get(r, "/", cookie).Body.String()
	assert.Contains(t, page, "Hello, Ada.")
	assert.Contains(t, page, "Neuroscience")
	assert.NotContains(t, page, "research colleague")

	resp := post(r, "/chat", cookie, url.Values{"message": {"Tell me about X"}})
	require.Equal(t, http.StatusSeeOther, resp.Code)

	page = get(r, "/", cookie).Body.String()
	assert.Contains(t, page, "Tell me about X")
	assert.Contains(t, page, "echo reply")

	snap, err := sessions.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 4)
}

func TestChatFailureRendersNotice(t *testing.T) {
	failing := completion.ClientFunc(func(context.Context, completion.Prompt) (string, error) {
		return "", &completion.CompletionError{Provider: "fake", Err: errors.New("quota exceeded")}
	})
	r, sessions := setup(failing)
	cookie := startProfile(t, r)

	resp := post(r, "/chat", cookie, url.Values{"message": {"hello"}})
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, "Something went wrong while generating a reply")
	assert.Contains(t, body, "quota exceeded")

	snap, err := sessions.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "hello", snap.Messages[2].Content)
}

func TestChatBeforeProfileRedirects(t *testing.T) {
	r, _ := setup(echo())
	cookie := sessionCookie(t, get(r, "/", nil))

	resp := post(r, "/chat", cookie, url.Values{"message": {"hi"}})
	assert.Equal(t, http.StatusSeeOther, resp.Code)
}

func TestResetEndsSession(t *testing.T) {
	r, sessions := setup(echo())
	cookie := startProfile(t, r)

	resp := post(r, "/reset", cookie, nil)
	require.Equal(t, http.StatusSeeOther, resp.Code)
	cleared := sessionCookie(t, resp)
	assert.Less(t, cleared.MaxAge, 0)

	_, err := sessions.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, sessionService.ErrSessionNotFound)
}

func TestBusySessionShowsLocalizedNotice(t *testing.T) {
	release := make(chan struct{})
	blocking := completion.ClientFunc(func(ctx context.Context, _ completion.Prompt) (string, error) {
		select {
		case <-release:
			return "late reply", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	r, sessions := setup(blocking)

	cookie := sessionCookie(t, get(r, "/?lang=ko", nil))
	require.Equal(t, http.StatusSeeOther, post(r, "/profile", cookie, url.Values{"name": {"Kim"}, "field": {"Neuroscience"}}).Code)

	done := make(chan int, 1)
	go func() {
		done <- post(r, "/chat", cookie, url.Values{"message": {"first"}}).Code
	}()
	require.Eventually(t, func() bool {
		snap, err := sessions.Get(context.Background(), cookie.Value)
		return err == nil && snap.State == chat.StateProcessing
	}, 5*time.Second, 10*time.Millisecond)

	busyNotice := "이전 질문에 대한 답변을 생성하고 있습니다. 잠시 후 다시 시도해주세요."

	resp := post(r, "/chat", cookie, url.Values{"message": {"second"}})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), busyNotice)
	assert.NotContains(t, resp.Body.String(), sessionService.ErrTurnInProgress.Error())

	resp = post(r, "/reset", cookie, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), busyNotice)

	close(release)
	require.Equal(t, http.StatusSeeOther, <-done)

	snap, err := sessions.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.Len(t, snap.Messages, 4)
	assert.Equal(t, "late reply", snap.Messages[3].Content)
}
