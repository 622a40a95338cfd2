package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/obolus/pkg/logger"
)

func TestPublishReachesOnlyTopicSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	alice := NewClient(hub, nil, "alice")
	bob := NewClient(hub, nil, "bob")
	require.True(t, hub.Subscribe(alice))
	require.True(t, hub.Subscribe(bob))

	delivered := hub.Publish("alice", Message{Type: MessageTypeTip, Data: "hello"})
	assert.Equal(t, 1, delivered)

	select {
	case msg := <-alice.Messages():
		assert.Equal(t, MessageTypeTip, msg.Type)
	default:
		t.Fatal("alice did not receive the event")
	}
	assert.Empty(t, bob.Messages())
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	assert.Zero(t, hub.Publish("nobody", Message{Type: MessageTypeTip}))
}

func TestLateSubscriberSeesNoBacklog(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	hub.Publish("alice", Message{Type: MessageTypeTip})

	late := NewClient(hub, nil, "alice")
	require.True(t, hub.Subscribe(late))
	assert.Empty(t, late.Messages())
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	slow := NewClient(hub, nil, "alice")
	require.True(t, hub.Subscribe(slow))

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, hub.Publish("alice", Message{Type: MessageTypeTip}))
	}
	assert.Equal(t, 0, hub.Publish("alice", Message{Type: MessageTypeTip}))
	assert.Zero(t, hub.SubscriberCount("alice"))

	// Unsubscribing a dropped client is a no-op.
	hub.Unsubscribe(slow)
}

func TestCloseRejectsNewSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	c := NewClient(hub, nil, "alice")
	require.True(t, hub.Subscribe(c))

	hub.Close()
	_, open := <-c.Messages()
	assert.False(t, open)
	assert.False(t, hub.Subscribe(NewClient(hub, nil, "alice")))
}

func TestServeWSDeliversTips(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, "alice")
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount("alice") == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish("alice", Message{Type: MessageTypeTip, Data: map[string]interface{}{"amount": 100}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Amount int64 `json:"amount"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeTip, msg.Type)
	assert.Equal(t, int64(100), msg.Data.Amount)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypePong, msg.Type)

	conn.Close()
	require.Eventually(t, func() bool { return hub.SubscriberCount("alice") == 0 }, 2*time.Second, 10*time.Millisecond)
}
