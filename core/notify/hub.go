package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"songrab/logger"
	"songrab/model"
)

// 每个订阅者的发送缓冲，写满说明订阅者太慢，直接跳过
const clientSendBuffer = 64

const writeWait = 10 * time.Second

// Client WebSocket 订阅者
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub 进度事件 WebSocket 管理中心
// 订阅者随时可以连上或断开，没有订阅者时事件直接丢弃，不做回放
type Hub struct {
	clients map[*Client]bool

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 广播通道
	broadcast chan []byte

	mu sync.RWMutex

	// 关闭信号
	done chan struct{}
}

// NewHub 创建进度 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToClients(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// Publish 把进度事件广播给当前在线的订阅者，满足 progress.Sink。
// 广播通道满了就丢，绝不反压到下载协程。
func (h *Hub) Publish(ev model.ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Warn("marshal progress event failed", logger.ErrorField(err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
	}
}

// SubscriberCount 当前订阅者数量
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	logger.Info("progress subscriber connected", logger.Int("subscribers", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	logger.Info("progress subscriber disconnected", logger.Int("subscribers", len(h.clients)))
}

func (h *Hub) broadcastToClients(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// 订阅者消费太慢，跳过这一条
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*Client]bool)
}

// writePump 把发送缓冲里的消息写到连接上
func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Warn("websocket write failed", logger.ErrorField(err))
			return
		}
	}
	// send 被关闭，通知对端
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump 只负责消费控制帧并感知断开
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
