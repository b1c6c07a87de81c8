package websocket

import (
	"log"
	"sync"
)

type HubInterface interface {
	BroadcastToPlayers(userIDs []string, msg OutgoingMessage)
	ClientByUserID(userID string) (*Client, bool)
	SendToPlayer(userID string, msg OutgoingMessage)
	Close()
}

type Hub struct {
	clients      map[string]*Client // userID -> client
	register     chan *Client
	unregister   chan *Client
	broadcast    chan broadcastReq
	sendOne      chan sendReq
	incoming     chan IncomingMessage
	OnIncoming   func(IncomingMessage)
	OnDisconnect func(userID string) // 连接断开时通知游戏层做托管处理
	quit         chan struct{}
	mu           sync.RWMutex
}

type broadcastReq struct {
	UserIDs []string
	Message OutgoingMessage
}

type sendReq struct {
	UserID  string
	Message OutgoingMessage
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastReq),
		sendOne:    make(chan sendReq),
		incoming:   make(chan IncomingMessage),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {

	log.Println("Hub started")

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.UserID] = c
			log.Printf("Hub.register -> %s (当前连接数: %d)", c.UserID, len(h.clients))
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.UserID]; ok {
				delete(h.clients, c.UserID)
				log.Printf("Hub.unregister -> %s (当前连接数: %d)", c.UserID, len(h.clients))
				close(c.Send)
				if h.OnDisconnect != nil {
					go h.OnDisconnect(c.UserID)
				}
			}
			h.mu.Unlock()

		case req := <-h.broadcast:
			for _, id := range req.UserIDs {
				if client, ok := h.clients[id]; ok {
					select {
					case client.Send <- req.Message:
					default:
						// 客户端写队列满时丢弃，由下一次全量投影兜底
					}
				}
			}

		case req := <-h.sendOne:
			if client, ok := h.clients[req.UserID]; ok {
				select {
				case client.Send <- req.Message:
				default:
				}
			}

		case req := <-h.incoming:
			// 玩家消息统一转发给游戏层（GameManager）
			if h.OnIncoming != nil {
				h.OnIncoming(req)
			}

		case <-h.quit:
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.Send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast to multiple players
func (h *Hub) BroadcastToPlayers(userIDs []string, msg OutgoingMessage) {
	h.broadcast <- broadcastReq{
		UserIDs: userIDs,
		Message: msg,
	}
}

// Send to a single player (safe concurrent)
func (h *Hub) SendToPlayer(userID string, msg OutgoingMessage) {
	h.sendOne <- sendReq{
		UserID:  userID,
		Message: msg,
	}
}

// Lookup for a player client by user id
func (h *Hub) ClientByUserID(userID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

func (h *Hub) Close() {
	close(h.quit)
}
