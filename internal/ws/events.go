package ws

import (
	"context"
	"time"

	"skillswap-hub/internal/observability"
)

// publishSessionEvent emits a connection lifecycle event (ws_connect,
// ws_disconnect, ws_error) to the event bus. Delivery is best-effort.
func publishSessionEvent(ctx context.Context, s *Session, chatID int64, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"chat_id":     chatID,
			"conn_id":     s.ID,
			"duration_ms": time.Since(s.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   s.UserID,
			"device_id": s.DeviceID,
			"ip":        s.IP,
		},
	}

	headers := observability.BuildHeaders(s.RequestID, s.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}
