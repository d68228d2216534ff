// Package notifications holds the WebSocket connection registry and the
// Redis fan-out that lets several server processes share chat delivery.
package notifications

import (
	"context"
	"sync"

	"safeguard/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const registryName = "chat registry"

// AudienceResolver lists the users a room delivers to. A nil slice with a
// nil error means every connected user.
type AudienceResolver interface {
	RoomAudience(ctx context.Context, roomID uuid.UUID) ([]uint, error)
}

// Registry maps each user to their single live connection. A newer
// connection replaces and closes the older one.
type Registry struct {
	mu       sync.RWMutex
	clients  map[uint]*Client
	audience AudienceResolver
	presence *Presence
	notifier *Notifier
	instance string
	wsLog    *observability.WSLogger
}

// NewRegistry creates a registry. rdb may be nil, in which case presence
// and delivery stay process-local.
func NewRegistry(audience AudienceResolver, rdb *redis.Client) *Registry {
	return &Registry{
		clients:  make(map[uint]*Client),
		audience: audience,
		presence: NewPresence(rdb, PresenceConfig{
			OnOffline: func(uint) { observability.WebSocketEventsTotal.WithLabelValues("offline").Inc() },
		}),
		instance: uuid.NewString(),
		wsLog:    observability.NewWSLogger(registryName),
	}
}

// Connect registers client for userID and closes any client it replaces.
func (r *Registry) Connect(userID uint, client *Client) {
	r.mu.Lock()
	prev := r.clients[userID]
	r.clients[userID] = client
	r.mu.Unlock()

	if prev != nil && prev != client {
		prev.CloseWith(websocket.CloseNormalClosure, "Replaced by a newer connection")
	} else if prev == nil {
		observability.ActiveWebSocketConnections.Inc()
	}
	r.presence.MarkOnline(context.Background(), userID)
	observability.WebSocketEventsTotal.WithLabelValues("connect").Inc()
	r.wsLog.Connected(context.Background(), userID, prev != nil && prev != client)
}

// Disconnect removes the mapping only while it still points at client, so a
// stale pump exiting late cannot evict a newer connection.
func (r *Registry) Disconnect(userID uint, client *Client) bool {
	r.mu.Lock()
	current, ok := r.clients[userID]
	removed := ok && current == client
	if removed {
		delete(r.clients, userID)
	}
	r.mu.Unlock()

	client.Close()
	if !removed {
		return false
	}
	observability.ActiveWebSocketConnections.Dec()
	observability.WebSocketEventsTotal.WithLabelValues("disconnect").Inc()
	r.presence.MarkOffline(userID)
	r.wsLog.Disconnected(context.Background(), userID)
	return true
}

// SendToUser enqueues payload for userID without blocking. It reports
// whether the message was queued.
func (r *Registry) SendToUser(userID uint, payload []byte) bool {
	r.mu.RLock()
	client, ok := r.clients[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return client.TrySend(payload)
}

// BroadcastToRoom delivers payload to the room's connected audience on this
// process and publishes it for the others. It returns the local delivery
// count.
func (r *Registry) BroadcastToRoom(ctx context.Context, roomID uuid.UUID, payload []byte) (int, error) {
	delivered, err := r.deliverLocal(ctx, roomID, payload)
	if err != nil {
		return 0, err
	}
	r.mu.RLock()
	n := r.notifier
	r.mu.RUnlock()
	if err := n.PublishRoomEvent(ctx, r.instance, roomID, payload); err != nil {
		r.wsLog.Failed(ctx, "publish", roomID.String(), err)
	}
	return delivered, nil
}

func (r *Registry) deliverLocal(ctx context.Context, roomID uuid.UUID, payload []byte) (int, error) {
	audience, err := r.audience.RoomAudience(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if audience == nil {
		audience = r.connectedIDs()
	}
	delivered := 0
	for _, userID := range audience {
		if r.SendToUser(userID, payload) {
			delivered++
		}
	}
	return delivered, nil
}

func (r *Registry) connectedIDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// Online reports whether userID has a socket on this process.
func (r *Registry) Online(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}

// OnlineAnywhere also consults the shared presence mirror, so users
// connected to another process count as online.
func (r *Registry) OnlineAnywhere(ctx context.Context, userID uint) bool {
	return r.Online(userID) || r.presence.IsOnline(ctx, userID)
}

// Heartbeat refreshes userID's last-seen key. Pongs call it, so a user who
// only receives messages stays online.
func (r *Registry) Heartbeat(ctx context.Context, userID uint) {
	r.presence.Touch(ctx, userID)
}

// Touch records activity for userID on an inbound frame.
func (r *Registry) Touch(ctx context.Context, userID uint, roomID uuid.UUID) {
	r.Heartbeat(ctx, userID)
	r.wsLog.Received(ctx, userID, roomID.String())
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// StartWiring subscribes to room events published by other processes and
// delivers them locally. Events this process published are skipped.
func (r *Registry) StartWiring(ctx context.Context, n *Notifier) error {
	r.mu.Lock()
	r.notifier = n
	r.mu.Unlock()

	return n.StartRoomSubscriber(ctx, func(ev RoomEvent) {
		if ev.Origin == r.instance {
			return
		}
		if _, err := r.deliverLocal(ctx, ev.RoomID, ev.Payload); err != nil {
			r.wsLog.Failed(ctx, "remote_delivery", ev.RoomID.String(), err)
		}
	})
}

// Shutdown closes every socket with "going away" and empties the registry.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[uint]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.CloseWith(websocket.CloseGoingAway, "Server shutting down")
	}
	observability.ActiveWebSocketConnections.Sub(float64(len(clients)))
	r.presence.Stop()

	r.wsLog.Stopped(ctx, len(clients))
	return nil
}
