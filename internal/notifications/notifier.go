package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"safeguard/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const roomChannelPattern = "chat:room:*"

// RoomEvent is the cross-process envelope of one delivered chat message.
type RoomEvent struct {
	Origin  string          `json:"origin"`
	RoomID  uuid.UUID       `json:"room_id"`
	Payload json.RawMessage `json:"payload"`
}

// Notifier publishes room events into Redis so that other server processes
// can deliver them to their own sockets.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier. A nil client makes every call a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// RoomChannel derives the Redis channel name for a room.
func RoomChannel(roomID uuid.UUID) string {
	return "chat:room:" + roomID.String()
}

// PublishRoomEvent publishes payload for roomID, tagged with origin.
func (n *Notifier) PublishRoomEvent(ctx context.Context, origin string, roomID uuid.UUID, payload []byte) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	body, err := json.Marshal(RoomEvent{Origin: origin, RoomID: roomID, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal room event: %w", err)
	}
	return n.rdb.Publish(ctx, RoomChannel(roomID), body).Err()
}

// StartRoomSubscriber subscribes to every room channel and calls onEvent for
// each decodable event until ctx is cancelled.
func (n *Notifier) StartRoomSubscriber(ctx context.Context, onEvent func(RoomEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, roomChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", roomChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in room subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					var ev RoomEvent
					if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
						observability.GlobalLogger.Warn("invalid room event",
							slog.String("channel", msg.Channel),
							slog.String("error", err.Error()),
						)
						return
					}
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
