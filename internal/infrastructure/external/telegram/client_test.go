package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		Token:   "test-token",
		BaseURL: baseURL,
	})
}

func okResponse(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	resp := APIResponse{OK: true, Result: raw}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func errorResponse(t *testing.T, w http.ResponseWriter, code int, description string) {
	t.Helper()
	resp := APIResponse{OK: false, ErrorCode: code, Description: description}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestClient_SendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(12345), body["chat_id"])
		assert.Equal(t, "hello", body["text"])
		assert.Equal(t, "HTML", body["parse_mode"])

		okResponse(t, w, Message{MessageID: 77, Text: "hello", Chat: &Chat{ID: 12345}})
	}))
	defer server.Close()

	msg, err := newTestClient(server.URL).SendHTML(context.Background(), 12345, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(77), msg.MessageID)
	assert.Equal(t, int64(12345), msg.Chat.ID)
}

func TestClient_GetMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/getMe", r.URL.Path)
		okResponse(t, w, User{ID: 1, IsBot: true, Username: "confession_bot"})
	}))
	defer server.Close()

	me, err := newTestClient(server.URL).GetMe(context.Background())
	require.NoError(t, err)
	assert.True(t, me.IsBot)
	assert.Equal(t, "confession_bot", me.Username)
}

func TestClient_PermanentAPIErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		errorResponse(t, w, 400, "Bad Request: chat not found")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SendText(context.Background(), 1, "hi")
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load(), "4xx responses must not be retried")
}

func TestClient_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			errorResponse(t, w, 500, "Internal Server Error")
			return
		}
		okResponse(t, w, Message{MessageID: 1})
	}))
	defer server.Close()

	msg, err := newTestClient(server.URL).SendText(context.Background(), 1, "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.MessageID)
	assert.Equal(t, int64(3), calls.Load())
}

func TestIsUserBlocked(t *testing.T) {
	assert.True(t, IsUserBlocked(&APIError{Code: 403, Description: "Forbidden"}))
	assert.True(t, IsUserBlocked(&APIError{Code: 400, Description: "Forbidden: bot was blocked by the user"}))
	assert.True(t, IsUserBlocked(&APIError{Code: 400, Description: "Forbidden: user is deactivated"}))
	assert.False(t, IsUserBlocked(&APIError{Code: 400, Description: "Bad Request"}))
	assert.False(t, IsUserBlocked(context.DeadlineExceeded))
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: 429, Description: "Too Many Requests", RetryAfter: 5}
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Too Many Requests")
}
