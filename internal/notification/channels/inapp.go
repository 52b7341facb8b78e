// internal/notification/channels/inapp.go
package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"wallet-ledger/internal/util"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	relayTopic = "notifications:inapp"

	// Each instance lists the users it holds sockets for in a sorted set per
	// user, scored by when the listing lapses. A crashed instance drops out
	// once its score passes.
	presencePrefix  = "notifications:inapp:presence:"
	presenceTTL     = 90 * time.Second
	presenceRefresh = presenceTTL / 3
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	id     string
	userID string
	send   chan []byte
}

type relayMessage struct {
	Origin  string `json:"origin"`
	UserID  string `json:"user_id"`
	Payload string `json:"payload"`
}

// Hub keeps the open in-app sockets keyed by user id. With a Redis client it
// also relays pushes through pub/sub so a user connected to another instance
// still receives them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[string]*client
	instance string
	redis    *redis.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewHub creates a Hub. rdb may be nil for a single instance.
func NewHub(rdb *redis.Client, logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]map[string]*client),
		instance: uuid.NewString(),
		redis:    rdb,
		logger:   logger,
		now:      time.Now,
	}
}

// Connected reports how many sockets userID holds on this instance.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Send pushes payload to every socket of target. Without a relay the user
// must be connected here. With a relay the message is also published, and a
// user with no local socket counts as reached only if another instance lists
// them as present.
func (h *Hub) Send(ctx context.Context, target, payload string) error {
	delivered := h.deliver(target, payload)
	if h.redis == nil {
		if delivered == 0 {
			return fmt.Errorf("in-app: user %s has no open session: %w", target, util.ErrChannelDeliveryFailed)
		}
		return nil
	}

	if delivered == 0 {
		present, err := h.presentElsewhere(ctx, target)
		if err != nil {
			return fmt.Errorf("in-app: presence of user %s: %w", target, err)
		}
		if !present {
			return fmt.Errorf("in-app: user %s has no open session: %w", target, util.ErrChannelDeliveryFailed)
		}
	}

	data, err := json.Marshal(relayMessage{Origin: h.instance, UserID: target, Payload: payload})
	if err != nil {
		return fmt.Errorf("in-app: encode relay message: %w", err)
	}
	if err := h.redis.Publish(ctx, relayTopic, data).Err(); err != nil {
		if delivered > 0 {
			return nil
		}
		return fmt.Errorf("in-app: relay publish: %w", err)
	}
	return nil
}

func presenceKey(userID string) string { return presencePrefix + userID }

// presentElsewhere reports whether another instance holds a live listing for userID.
func (h *Hub) presentElsewhere(ctx context.Context, userID string) (bool, error) {
	live, err := h.redis.ZRangeByScore(ctx, presenceKey(userID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(h.now().Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return false, err
	}
	for _, instance := range live {
		if instance != h.instance {
			return true, nil
		}
	}
	return false, nil
}

// announce lists this instance as holding sockets for each of userIDs.
func (h *Hub) announce(ctx context.Context, userIDs ...string) {
	if h.redis == nil || len(userIDs) == 0 {
		return
	}
	now := h.now()
	expires := float64(now.Add(presenceTTL).Unix())
	_, err := h.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range userIDs {
			key := presenceKey(id)
			p.ZAdd(ctx, key, redis.Z{Score: expires, Member: h.instance})
			p.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Unix(), 10))
			p.Expire(ctx, key, 2*presenceTTL)
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("failed to announce in-app presence", "users", len(userIDs), "error", err)
	}
}

// withdraw removes this instance's listing for each of userIDs.
func (h *Hub) withdraw(ctx context.Context, userIDs ...string) {
	if h.redis == nil || len(userIDs) == 0 {
		return
	}
	_, err := h.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range userIDs {
			p.ZRem(ctx, presenceKey(id), h.instance)
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("failed to withdraw in-app presence", "users", len(userIDs), "error", err)
	}
}

func (h *Hub) localUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) deliver(userID, payload string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.clients[userID] {
		select {
		case c.send <- []byte(payload):
			n++
		default:
			h.logger.Warn("in-app socket buffer full, dropping message", "user_id", userID, "session", c.id)
		}
	}
	return n
}

// Relay consumes pushes published by other instances and keeps this
// instance's presence listings fresh until ctx is done.
func (h *Hub) Relay(ctx context.Context) {
	if h.redis == nil {
		return
	}
	sub := h.redis.Subscribe(ctx, relayTopic)
	defer sub.Close()

	refresh := time.NewTicker(presenceRefresh)
	defer refresh.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeWait)
			h.withdraw(cleanup, h.localUsers()...)
			cancel()
			return
		case <-refresh.C:
			h.announce(ctx, h.localUsers()...)
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil {
				h.logger.Warn("malformed in-app relay message", "error", err)
				continue
			}
			if rm.Origin == h.instance {
				continue
			}
			h.deliver(rm.UserID, rm.Payload)
		}
	}
}

// ServeWS upgrades the request and registers the socket for userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	c := &client{id: uuid.NewString(), userID: userID, send: make(chan []byte, 32)}
	h.register(r.Context(), c)
	h.logger.Info("in-app client connected", "user_id", userID, "session", c.id)

	go h.writePump(conn, c)
	h.readPump(conn, c)
}

func (h *Hub) register(ctx context.Context, c *client) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[string]*client)
	}
	h.clients[c.userID][c.id] = c
	h.mu.Unlock()

	h.announce(ctx, c.userID)
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	h.mu.Lock()
	sessions := h.clients[c.userID]
	if _, ok := sessions[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(sessions, c.id)
	close(c.send)
	last := len(sessions) == 0
	if last {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	if last {
		h.withdraw(ctx, c.userID)
	}
}

// readPump discards inbound frames and detects disconnects.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unregister(context.Background(), c)
		conn.Close()
		h.logger.Info("in-app client disconnected", "user_id", c.userID, "session", c.id)
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
