package notify

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"promohub/internal/pkg/logger"
	"promohub/internal/pkg/metrics"
)

var errHubClosed = errors.New("websocket hub closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
		return true
	},
}

// Hub 维护所有活跃的 websocket 连接，并负责消息广播
// 所有订阅者共享同一个逻辑频道，可以用 CEL 过滤器缩小接收范围。
type Hub struct {
	nodeID     string
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	lock       sync.RWMutex

	done     chan struct{}
	doneOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		nodeID:     "promohub-" + uuid.New().String()[:8],
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Name() string { return "websocket" }

// NodeID 标识当前实例，多实例部署时用于日志排查。
func (h *Hub) NodeID() string { return h.nodeID }

// Run 处理注册、注销与广播，直到 ctx 结束。
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = struct{}{}
			h.lock.Unlock()
			metrics.WebsocketClients.Inc()
			log.Debug().Str("client", client.id).Str("node", h.nodeID).Msg("websocket client registered")
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.lock.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.lock.Unlock()
	if ok {
		metrics.WebsocketClients.Dec()
		log.Debug().Str("client", client.id).Msg("websocket client unregistered")
	}
}

// fanOut 只在有订阅者设置了过滤器时才构造 CEL 变量。
// 发送缓冲已满的慢订阅者会被断开。
func (h *Hub) fanOut(msg Message) {
	h.lock.RLock()
	targets := make([]*Client, 0, len(h.clients))
	needVars := false
	for c := range h.clients {
		targets = append(targets, c)
		needVars = needVars || c.filter != nil
	}
	h.lock.RUnlock()

	var vars map[string]any
	if needVars {
		var err error
		if vars, err = Activation(msg.Notification); err != nil {
			log.Warn().Err(err).Msg("build filter activation")
			return
		}
	}

	for _, c := range targets {
		if c.filter != nil && !c.filter.Match(vars) {
			continue
		}
		select {
		case c.send <- msg.Payload:
		default:
			h.remove(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })
	h.lock.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		metrics.WebsocketClients.Dec()
	}
	h.lock.Unlock()
}

// Deliver 把消息交给广播循环。
func (h *Hub) Deliver(ctx context.Context, msg Message) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return errHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount 返回当前连接数。
func (h *Hub) ClientCount() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// ServeWS 将 HTTP 升级为 WebSocket 并注册到 Hub。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, filter *Filter) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "websocket upgrade")
	}

	client := &Client{
		id:     uuid.NewString(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		filter: filter,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return errHubClosed
	}

	ctx := logger.WithFields(r.Context(), map[string]string{"client_id": client.id, "node": h.nodeID})
	logger.Ctx(ctx).Info().Bool("filtered", filter != nil).Msg("subscriber connected")

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
