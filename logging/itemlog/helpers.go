package itemlog

import (
	"context"

	"primal-royale/server/logging"
)

const (
	UseStartedEventType   logging.EventType = "item.use_started"
	UseCompletedEventType logging.EventType = "item.use_completed"
	UseCancelledEventType logging.EventType = "item.use_cancelled"
	BuffAppliedEventType  logging.EventType = "item.buff_applied"
	BuffExpiredEventType  logging.EventType = "item.buff_expired"
)

type UsePayload struct {
	ItemID      string  `json:"itemId"`
	HealAmount  float64 `json:"healAmount,omitempty"`
	ArmorAmount float64 `json:"armorAmount,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

func UseStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, itemID string) {
	publish(ctx, pub, UseStartedEventType, tick, actor, UsePayload{ItemID: itemID})
}

func UseCompleted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload UsePayload) {
	publish(ctx, pub, UseCompletedEventType, tick, actor, payload)
}

func UseCancelled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, itemID, reason string) {
	publish(ctx, pub, UseCancelledEventType, tick, actor, UsePayload{ItemID: itemID, Reason: reason})
}

type BuffPayload struct {
	BuffType   string  `json:"buffType"`
	Value      float64 `json:"value,omitempty"`
	DurationMs int64   `json:"durationMs,omitempty"`
}

func BuffApplied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BuffPayload) {
	publish(ctx, pub, BuffAppliedEventType, tick, actor, payload)
}

func BuffExpired(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, buffType string) {
	publish(ctx, pub, BuffExpiredEventType, tick, actor, BuffPayload{BuffType: buffType})
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, tick uint64, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryItems,
		Payload:  payload,
	})
}
