package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/stats"
	"github.com/npezzotti/go-chatapp/internal/types"
	"github.com/stretchr/testify/assert"
)

// newWsTestServer upgrades requests and connects them as the user given in
// the "user" query parameter.
func newWsTestServer(t *testing.T, cs *ChatServer) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId, err := strconv.Atoi(r.URL.Query().Get("user"))
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}

		cs.Connect(types.User{Id: userId}, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialUser(t *testing.T, srv *httptest.Server, userId int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + strconv.Itoa(userId)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads server messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(*ServerMessage) bool) *ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(&msg) {
			return &msg
		}
	}
}

func presenceEquals(ids ...int) func(*ServerMessage) bool {
	return func(msg *ServerMessage) bool {
		if msg.Presence == nil {
			return false
		}
		return assert.ObjectsAreEqual(ids, msg.Presence.OnlineUserIds)
	}
}

func TestChatServer_WebsocketDelivery(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	db.On("MarkMessageSeen", 11, 2).Return(nil).Once()

	cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
	go cs.Run()
	srv := newWsTestServer(t, cs)

	alice := dialUser(t, srv, 1)
	readUntil(t, alice, presenceEquals(1))

	bob := dialUser(t, srv, 2)
	readUntil(t, alice, presenceEquals(1, 2))
	readUntil(t, bob, presenceEquals(1, 2))

	// bob has alice's conversation open: the push is acknowledged right away
	cs.Route(types.Message{Id: 11, SenderId: 1, ReceiverId: 2, Text: "hello", CreatedAt: Now()})
	delivered := readUntil(t, bob, func(m *ServerMessage) bool { return m.Message != nil })
	assert.Equal(t, 11, delivered.Message.Id)
	assert.Equal(t, "hello", delivered.Message.Text)
	assert.False(t, delivered.Message.Seen)

	err := bob.WriteJSON(ClientMessage{BaseMessage: BaseMessage{Id: 1}, Seen: &Seen{MessageId: delivered.Message.Id}})
	assert.NoError(t, err)
	ack := readUntil(t, bob, func(m *ServerMessage) bool { return m.Response != nil })
	assert.Equal(t, http.StatusOK, ack.Response.ResponseCode)
	assert.Equal(t, 1, ack.Id)

	bob.Close()
	readUntil(t, alice, presenceEquals(1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, cs.Shutdown(ctx))
}
