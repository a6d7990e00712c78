package server

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/npezzotti/go-chatapp/internal/database"
	"github.com/npezzotti/go-chatapp/internal/stats"
	"github.com/npezzotti/go-chatapp/internal/testutil"
	"github.com/npezzotti/go-chatapp/internal/types"
	"github.com/stretchr/testify/assert"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be sent to the client")
		default:
			t.Error("expected a message to be sent to the client, but none was sent")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerMessage{}
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_serializeMessage(t *testing.T) {
	t.Run("response", func(t *testing.T) {
		message := &ServerMessage{
			BaseMessage: BaseMessage{
				Id:        1,
				Timestamp: Now(),
			},
			Response: &Response{
				ResponseCode: 200,
				Data:         "test data",
			},
		}

		expected := `{"id":1,"timestamp":"` + message.Timestamp.Format(time.RFC3339Nano) +
			`","response":{"response_code":200,"data":"test data"}}`

		bytes, err := serializeMessage(message)
		assert.NoError(t, err, "expected no error during serialization")
		assert.Equal(t, expected, string(bytes), "expected serialized message to match the expected format")
	})

	t.Run("presence", func(t *testing.T) {
		message := newPresenceMessage([]int{1, 2})

		expected := `{"timestamp":"` + message.Timestamp.Format(time.RFC3339Nano) +
			`","presence":{"online_user_ids":[1,2]}}`

		bytes, err := serializeMessage(message)
		assert.NoError(t, err)
		assert.Equal(t, expected, string(bytes))
	})

	t.Run("delivery", func(t *testing.T) {
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		message := newDeliveryMessage(types.Message{
			Id:         5,
			SenderId:   1,
			ReceiverId: 2,
			Text:       "hi",
			CreatedAt:  created,
		})

		expected := `{"timestamp":"` + message.Timestamp.Format(time.RFC3339Nano) +
			`","message":{"id":5,"sender_id":1,"receiver_id":2,"text":"hi","seen":false,"created_at":"2024-05-01T12:00:00Z"}}`

		bytes, err := serializeMessage(message)
		assert.NoError(t, err)
		assert.Equal(t, expected, string(bytes))
	})
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()
	assert.NotPanics(t, c.stopClient, "expected repeated stop to be safe")

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func Test_cleanup(t *testing.T) {
	cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
	c := newTestClient(cs, 1)

	go c.cleanup()

	select {
	case got := <-cs.unregisterChan:
		assert.Equal(t, c, got, "expected client to unregister itself")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for unregister event")
	}

	select {
	case <-c.stop:
	case <-time.After(time.Second):
		t.Error("expected client to be stopped after cleanup")
	}
}

func Test_handleClientMessage(t *testing.T) {
	tcases := []struct {
		name         string
		raw          string
		setup        func(db *database.MockChatRepository)
		expectedCode int
		expectedId   int
	}{
		{
			name:         "invalid json",
			raw:          `{not json`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown message",
			raw:          `{"id":3}`,
			expectedCode: http.StatusBadRequest,
			expectedId:   3,
		},
		{
			name:         "seen without message id",
			raw:          `{"id":4,"seen":{}}`,
			expectedCode: http.StatusBadRequest,
			expectedId:   4,
		},
		{
			name: "seen success",
			raw:  `{"id":5,"seen":{"message_id":42}}`,
			setup: func(db *database.MockChatRepository) {
				db.On("MarkMessageSeen", 42, 1).Return(nil).Once()
			},
			expectedCode: http.StatusOK,
			expectedId:   5,
		},
		{
			name: "seen message not found",
			raw:  `{"id":6,"seen":{"message_id":42}}`,
			setup: func(db *database.MockChatRepository) {
				db.On("MarkMessageSeen", 42, 1).Return(database.ErrNotFound).Once()
			},
			expectedCode: http.StatusNotFound,
			expectedId:   6,
		},
		{
			name: "seen db error",
			raw:  `{"id":7,"seen":{"message_id":42}}`,
			setup: func(db *database.MockChatRepository) {
				db.On("MarkMessageSeen", 42, 1).Return(errors.New("db error")).Once()
			},
			expectedCode: http.StatusInternalServerError,
			expectedId:   7,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockChatRepository{}
			defer db.AssertExpectations(t)
			if tc.setup != nil {
				tc.setup(db)
			}

			cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
			c := newTestClient(cs, 1)

			c.handleClientMessage([]byte(tc.raw))

			select {
			case resp := <-c.send:
				if assert.NotNil(t, resp.Response, "expected a response message") {
					assert.Equal(t, tc.expectedCode, resp.Response.ResponseCode)
				}
				assert.Equal(t, tc.expectedId, resp.Id, "expected response to echo the request id")
			default:
				t.Fatal("expected a response to be queued")
			}
		})
	}
}
