package server

import (
	"log"

	"github.com/chatfastnow/go-chatserver/internal/stats"
	"github.com/chatfastnow/go-chatserver/internal/types"
)

// ChatServer tracks which open connections are interested in which channel
// and routes outbound events to them. A channel id is either a user id (the
// user's personal inbox) or a chat id (a shared conversation).
//
// All membership state is owned by the single Run goroutine; clients and the
// HTTP layer talk to it exclusively through channels, so the tables below
// need no locking.
type ChatServer struct {
	log   *log.Logger
	stats stats.StatsProvider

	clients  map[*Client]struct{}
	channels map[string]map[*Client]struct{}

	RegisterChan   chan *Client
	DeregisterChan chan *Client
	setupChan      chan subscription
	joinChan       chan subscription
	leaveChan      chan subscription
	relayChan      chan relayRequest

	stop chan struct{}
	done chan struct{}
}

type subscription struct {
	client  *Client
	channel string
}

type relayRequest struct {
	event   string
	channel string
	data    any
	skip    *Client
}

func NewChatServer(logger *log.Logger, sp stats.StatsProvider) *ChatServer {
	sp.RegisterMetric(stats.ActiveConnections)
	sp.RegisterMetric(stats.EventsRelayed)

	return &ChatServer{
		log:            logger,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		channels:       make(map[string]map[*Client]struct{}),
		RegisterChan:   make(chan *Client, 64),
		DeregisterChan: make(chan *Client, 64),
		setupChan:      make(chan subscription, 256),
		joinChan:       make(chan subscription, 256),
		leaveChan:      make(chan subscription, 256),
		relayChan:      make(chan relayRequest, 1024),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (cs *ChatServer) Run() {
	for {
		select {
		case c := <-cs.RegisterChan:
			cs.handleRegister(c)
		case c := <-cs.DeregisterChan:
			cs.handleDeregister(c)
		case sub := <-cs.setupChan:
			cs.handleSetup(sub)
		case sub := <-cs.joinChan:
			cs.handleJoin(sub)
		case sub := <-cs.leaveChan:
			cs.handleLeave(sub)
		case req := <-cs.relayChan:
			cs.handleRelay(req)
		case <-cs.stop:
			for c := range cs.clients {
				c.stopClient()
			}
			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) handleRegister(c *Client) {
	cs.clients[c] = struct{}{}
	cs.stats.Incr(stats.ActiveConnections)
}

// handleDeregister is the terminal transition for a connection: it leaves
// every channel it joined, regardless of how the connection went away.
func (cs *ChatServer) handleDeregister(c *Client) {
	if _, ok := cs.clients[c]; !ok {
		return
	}

	delete(cs.clients, c)
	for id := range c.channels {
		cs.removeFromChannel(c, id)
	}
	cs.stats.Decr(stats.ActiveConnections)
}

// handleSetup joins the connection to its owning user's personal channel and
// acknowledges back to that connection only.
func (cs *ChatServer) handleSetup(sub subscription) {
	cs.addToChannel(sub.client, sub.channel)
	sub.client.queueEvent(NewServerEvent(EventConnected, nil))
}

func (cs *ChatServer) handleJoin(sub subscription) {
	cs.addToChannel(sub.client, sub.channel)
	cs.log.Printf("connection joined channel %q", sub.channel)
}

func (cs *ChatServer) handleLeave(sub subscription) {
	cs.removeFromChannel(sub.client, sub.channel)
}

// handleRelay delivers the payload to every member of the channel except the
// optional excluded connection. Relaying to an empty channel is a no-op.
func (cs *ChatServer) handleRelay(req relayRequest) {
	members, ok := cs.channels[req.channel]
	if !ok {
		return
	}

	event := NewServerEvent(req.event, req.data)
	for c := range members {
		if c == req.skip {
			continue
		}
		c.queueEvent(event)
		cs.stats.Incr(stats.EventsRelayed)
	}
}

func (cs *ChatServer) addToChannel(c *Client, id string) {
	if cs.channels[id] == nil {
		cs.channels[id] = make(map[*Client]struct{})
	}
	cs.channels[id][c] = struct{}{}
	c.channels[id] = struct{}{}
}

func (cs *ChatServer) removeFromChannel(c *Client, id string) {
	members, ok := cs.channels[id]
	if !ok {
		return
	}

	delete(members, c)
	delete(c.channels, id)
	if len(members) == 0 {
		delete(cs.channels, id)
	}
}

// RegisterClient hands a freshly upgraded connection to the event loop.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) setup(c *Client, userId string) {
	select {
	case cs.setupChan <- subscription{client: c, channel: userId}:
	default:
		cs.log.Println("setup channel full, dropping setup request")
	}
}

func (cs *ChatServer) join(c *Client, channelId string) {
	select {
	case cs.joinChan <- subscription{client: c, channel: channelId}:
	default:
		cs.log.Printf("join channel full, dropping join for %q", channelId)
	}
}

func (cs *ChatServer) leave(c *Client, channelId string) {
	select {
	case cs.leaveChan <- subscription{client: c, channel: channelId}:
	default:
		cs.log.Printf("leave channel full, dropping leave for %q", channelId)
	}
}

func (cs *ChatServer) relay(event, channelId string, data any, skip *Client) {
	select {
	case cs.relayChan <- relayRequest{event: event, channel: channelId, data: data, skip: skip}:
	default:
		cs.log.Printf("relay channel full, dropping %q for %q", event, channelId)
	}
}

// fanOutMessage applies the message delivery policy: every member of the
// parent chat except the sender gets a "receive message" on their personal
// channel. Delivery is keyed by user id, not chat id, so recipients receive
// new-message events no matter which conversation they have open.
func (cs *ChatServer) fanOutMessage(msg *types.Message, origin *Client) {
	if msg.Chat == nil {
		cs.log.Println("dropping message event without chat")
		return
	}

	for _, member := range msg.Chat.Users {
		if member.Id == msg.Sender.Id {
			continue
		}
		cs.relay(EventReceiveMessage, member.Id, msg, origin)
	}
}

func (cs *ChatServer) Shutdown() {
	close(cs.stop)
	<-cs.done
}
