package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	clientBuffer   = 64
	outboxBuffer   = 256
	publishTimeout = 2 * time.Second
)

// Hub fans recording events out to connected clients. With a redis client
// events are also published so clients attached to other instances see them.
// Publishing runs on the hub's own goroutine; callers never wait on redis.
type Hub struct {
	redis   *redis.Client
	channel string
	origin  string
	outbox  chan []byte

	clients map[*Client]struct{}
	mu      sync.RWMutex

	ready chan struct{}
}

// Client is one subscriber; Send is closed on Unregister
type Client struct {
	Send chan []byte
	once sync.Once
}

type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// NewHub creates a hub. When redisClient is non-nil the hub subscribes to
// channel until ctx is done.
func NewHub(ctx context.Context, redisClient *redis.Client, channel string) *Hub {
	h := &Hub{
		redis:   redisClient,
		channel: channel,
		origin:  uuid.NewString(),
		clients: map[*Client]struct{}{},
		ready:   make(chan struct{}),
	}

	if redisClient != nil {
		h.outbox = make(chan []byte, outboxBuffer)
		go h.subscribeRedis(ctx)
		go h.publishRedis(ctx)
	} else {
		close(h.ready)
	}
	return h
}

// Ready is closed once the hub receives remote events
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Register adds a client
func (h *Hub) Register() *Client {
	client := &Client{Send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	return client
}

// Unregister removes a client and closes its Send channel; safe to call twice
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.once.Do(func() { close(client.Send) })
}

// ClientCount returns the number of local clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers payload to local clients and queues it for redis.
// Slow clients and a full outbox drop messages instead of blocking the caller.
func (h *Hub) Broadcast(payload []byte) {
	h.deliver(payload)

	if h.outbox == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.origin, Payload: payload})
	if err != nil {
		log.Printf("[Hub] Failed to encode event: %v", err)
		return
	}
	select {
	case h.outbox <- msg:
	default:
		log.Printf("[Hub] Redis outbox full, dropping event")
	}
}

// BroadcastJSON encodes v and broadcasts it
func (h *Hub) BroadcastJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(payload)
	return nil
}

func (h *Hub) publishRedis(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := h.redis.Publish(pubCtx, h.channel, msg).Err()
			cancel()
			if err != nil {
				log.Printf("[Hub] Redis publish error: %v", err)
			}
		}
	}
}

func (h *Hub) deliver(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("[Hub] Redis subscribe error: %v", err)
		close(h.ready)
		return
	}
	close(h.ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[Hub] Dropping malformed event: %v", err)
				continue
			}
			if env.Origin == h.origin {
				continue
			}
			h.deliver(env.Payload)
		}
	}
}
