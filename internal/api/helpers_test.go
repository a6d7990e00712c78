package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatapp/internal/config"
	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/images"
	"github.com/npezzotti/go-chatapp/internal/server"
	"github.com/npezzotti/go-chatapp/internal/testutil"
	"github.com/npezzotti/go-chatapp/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testSigningKey = []byte("test-signing-key")

type mockChatHub struct {
	mock.Mock
}

func (m *mockChatHub) Connect(user types.User, conn *websocket.Conn) *server.Client {
	args := m.Called(user, conn)
	c, _ := args.Get(0).(*server.Client)
	return c
}

func (m *mockChatHub) Route(msg types.Message) {
	m.Called(msg)
}

func (m *mockChatHub) OnlineUserIds() []int {
	args := m.Called()
	return args.Get(0).([]int)
}

func newTestApp(t *testing.T, db database.ChatRepository, hub ChatHub, store images.ImageStore) *GoChatApp {
	return NewGoChatApp(
		http.NewServeMux(),
		testutil.TestLogger(t),
		hub,
		db,
		store,
		&config.Config{SigningKey: testSigningKey},
	)
}

// authedRequest builds a request as if it had passed authMiddleware.
func authedRequest(method, target string, body io.Reader, userId int) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(WithUserId(req.Context(), userId))
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	return bytes.NewReader(body)
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func assertApiError(t *testing.T, rr *httptest.ResponseRecorder, expected *ApiError) {
	t.Helper()
	var apiErr ApiError
	err := json.NewDecoder(rr.Body).Decode(&apiErr)
	assert.NoError(t, err, "failed to decode error response")
	assert.Equal(t, expected.StatusCode, rr.Code, "expected status code to match")
	assert.Equal(t, *expected, apiErr, "expected ApiError response")
}
