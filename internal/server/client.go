package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/chatfastnow/go-chatserver/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
)

type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	send       chan *ServerEvent
	// channels the connection has joined, mutated only by the server's
	// event loop
	channels map[string]struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *ServerEvent, 256),
		channels:   make(map[string]struct{}),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(event)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.writeMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var event ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			// the realtime layer is lenient: malformed events are dropped
			c.log.Println("error parsing event:", err)
			continue
		}

		c.handleEvent(&event)
	}
}

func (c *Client) handleEvent(event *ClientEvent) {
	switch event.Event {
	case EventSetup:
		var setup SetupPayload
		if err := json.Unmarshal(event.Data, &setup); err != nil || setup.Id == "" {
			c.log.Println("dropping setup event with invalid payload")
			return
		}
		c.chatServer.setup(c, setup.Id)
	case EventJoinChat:
		var chatId string
		if err := json.Unmarshal(event.Data, &chatId); err != nil || chatId == "" {
			c.log.Println("dropping join event with invalid payload")
			return
		}
		c.chatServer.join(c, chatId)
	case EventSendMessage:
		var msg types.Message
		if err := json.Unmarshal(event.Data, &msg); err != nil {
			c.log.Println("dropping message event with invalid payload")
			return
		}
		c.chatServer.fanOutMessage(&msg, c)
	case EventTyping, EventStopTyping:
		var chatId string
		if err := json.Unmarshal(event.Data, &chatId); err != nil || chatId == "" {
			c.log.Println("dropping typing event with invalid payload")
			return
		}
		c.chatServer.relay(event.Event, chatId, chatId, c)
	default:
		c.log.Printf("dropping unknown event %q", event.Event)
	}
}

func (c *Client) queueEvent(event *ServerEvent) bool {
	select {
	case c.send <- event:
	default:
		c.log.Println("failed to queue event, send channel is full")
		return false
	}

	return true
}

func (c *Client) writeMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.chatServer.DeregisterChan <- c
	c.stopClient()
}
