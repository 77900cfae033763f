package server

import (
	"testing"
	"time"

	"github.com/chatfastnow/go-chatserver/internal/stats"
	"github.com/chatfastnow/go-chatserver/internal/testutil"
	"github.com/chatfastnow/go-chatserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestStats(t *testing.T) *stats.MockStatsUpdater {
	t.Helper()
	m := &stats.MockStatsUpdater{}
	m.On("RegisterMetric", mock.Anything).Maybe()
	m.On("Incr", mock.Anything).Maybe()
	m.On("Decr", mock.Anything).Maybe()
	return m
}

func newTestChatServer(t *testing.T) *ChatServer {
	t.Helper()
	return NewChatServer(testutil.TestLogger(t), newTestStats(t))
}

func newTestClient(t *testing.T, user types.User) *Client {
	t.Helper()
	return &Client{
		user:     user,
		log:      testutil.TestLogger(t),
		send:     make(chan *ServerEvent, 16),
		channels: make(map[string]struct{}),
		stop:     make(chan struct{}),
	}
}

func recvEvent(t *testing.T, c *Client) *ServerEvent {
	t.Helper()
	select {
	case event := <-c.send:
		return event
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case event := <-c.send:
		t.Fatalf("unexpected event %q", event.Event)
	default:
	}
}

func Test_handleJoin(t *testing.T) {
	cs := newTestChatServer(t)
	c := newTestClient(t, types.User{Id: "u1"})

	cs.handleJoin(subscription{client: c, channel: "chat1"})
	assert.Len(t, cs.channels["chat1"], 1, "expected one member in channel")
	assert.Contains(t, c.channels, "chat1", "expected client to track joined channel")

	// joining twice is a no-op
	cs.handleJoin(subscription{client: c, channel: "chat1"})
	assert.Len(t, cs.channels["chat1"], 1, "expected join to be idempotent")

	// no upper bound on channels per connection
	cs.handleJoin(subscription{client: c, channel: "chat2"})
	assert.Len(t, c.channels, 2, "expected client in two channels")
}

func Test_handleLeave(t *testing.T) {
	cs := newTestChatServer(t)
	c := newTestClient(t, types.User{Id: "u1"})

	cs.handleJoin(subscription{client: c, channel: "chat1"})
	cs.handleLeave(subscription{client: c, channel: "chat1"})
	assert.NotContains(t, cs.channels, "chat1", "expected empty channel to be removed")
	assert.NotContains(t, c.channels, "chat1", "expected client to forget channel")

	// leaving a channel the client never joined is a no-op
	cs.handleLeave(subscription{client: c, channel: "chat2"})
}

func Test_handleSetup(t *testing.T) {
	cs := newTestChatServer(t)
	c := newTestClient(t, types.User{Id: "u1"})
	other := newTestClient(t, types.User{Id: "u2"})
	cs.handleJoin(subscription{client: other, channel: "u2"})

	cs.handleSetup(subscription{client: c, channel: "u1"})

	assert.Contains(t, cs.channels["u1"], c, "expected client in personal channel")

	event := recvEvent(t, c)
	assert.Equal(t, EventConnected, event.Event, "expected connected ack")
	assertNoEvent(t, other)
}

func Test_handleRelay(t *testing.T) {
	cs := newTestChatServer(t)
	a := newTestClient(t, types.User{Id: "a"})
	b := newTestClient(t, types.User{Id: "b"})
	cs.handleJoin(subscription{client: a, channel: "chat1"})
	cs.handleJoin(subscription{client: b, channel: "chat1"})

	t.Run("delivers to all members except the excluded connection", func(t *testing.T) {
		cs.handleRelay(relayRequest{event: EventTyping, channel: "chat1", data: "chat1", skip: a})

		event := recvEvent(t, b)
		assert.Equal(t, EventTyping, event.Event, "expected typing event")
		assert.Equal(t, "chat1", event.Data, "expected chat id payload")
		assertNoEvent(t, a)
	})

	t.Run("empty channel is a no-op", func(t *testing.T) {
		cs.handleRelay(relayRequest{event: EventTyping, channel: "nochannel", data: nil})
		assertNoEvent(t, a)
		assertNoEvent(t, b)
	})
}

func Test_handleDeregister(t *testing.T) {
	cs := newTestChatServer(t)
	c := newTestClient(t, types.User{Id: "u1"})

	cs.handleRegister(c)
	cs.handleJoin(subscription{client: c, channel: "u1"})
	cs.handleJoin(subscription{client: c, channel: "chat1"})

	cs.handleDeregister(c)

	assert.NotContains(t, cs.clients, c, "expected client removed")
	assert.NotContains(t, cs.channels, "u1", "expected personal channel cleaned up")
	assert.NotContains(t, cs.channels, "chat1", "expected chat channel cleaned up")

	// deregistering an unknown client is a no-op
	cs.handleDeregister(newTestClient(t, types.User{Id: "u2"}))
}

func Test_fanOutMessage(t *testing.T) {
	cs := newTestChatServer(t)

	sender := newTestClient(t, types.User{Id: "s"})
	a := newTestClient(t, types.User{Id: "a"})
	b := newTestClient(t, types.User{Id: "b"})

	cs.handleSetup(subscription{client: sender, channel: "s"})
	cs.handleSetup(subscription{client: a, channel: "a"})
	cs.handleSetup(subscription{client: b, channel: "b"})

	// drain the connected acks
	recvEvent(t, sender)
	recvEvent(t, a)
	recvEvent(t, b)

	msg := &types.Message{
		Id:      "m1",
		Sender:  types.User{Id: "s"},
		Content: "hi",
		Chat: &types.Chat{
			Id:    "chat1",
			Users: []types.User{{Id: "s"}, {Id: "a"}, {Id: "b"}},
		},
	}

	cs.fanOutMessage(msg, sender)

	// the fan-out enqueues one relay per recipient
	for range 2 {
		select {
		case req := <-cs.relayChan:
			cs.handleRelay(req)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for relay request")
		}
	}

	for _, recipient := range []*Client{a, b} {
		event := recvEvent(t, recipient)
		assert.Equal(t, EventReceiveMessage, event.Event, "expected receive message event")
		got, ok := event.Data.(*types.Message)
		assert.True(t, ok, "expected message payload")
		assert.Equal(t, "m1", got.Id, "expected message id to match")
	}

	// the sender does not receive an echo of their own message
	assertNoEvent(t, sender)
}

func Test_fanOutMessage_noChat(t *testing.T) {
	cs := newTestChatServer(t)
	c := newTestClient(t, types.User{Id: "s"})

	cs.fanOutMessage(&types.Message{Id: "m1", Sender: types.User{Id: "s"}}, c)

	select {
	case req := <-cs.relayChan:
		t.Fatalf("unexpected relay request for channel %q", req.channel)
	default:
	}
}

func TestRunAndShutdown(t *testing.T) {
	cs := newTestChatServer(t)
	go cs.Run()

	c := newTestClient(t, types.User{Id: "u1"})
	cs.RegisterClient(c)
	cs.setup(c, "u1")

	event := recvEvent(t, c)
	assert.Equal(t, EventConnected, event.Event, "expected connected ack")

	cs.Shutdown()

	select {
	case <-c.stop:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected client to be stopped on shutdown")
	}
}
