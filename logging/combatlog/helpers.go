package combatlog

import (
	"context"

	"primal-royale/server/logging"
)

const (
	HitLandedEventType       logging.EventType = "combat.hit_landed"
	DamageAppliedEventType   logging.EventType = "combat.damage_applied"
	KillEventType            logging.EventType = "combat.kill"
	AssistEventType          logging.EventType = "combat.assist"
	ArmorBrokenEventType     logging.EventType = "combat.armor_broken"
	RequestRejectedEventType logging.EventType = "combat.request_rejected"
	MissingTargetEventType   logging.EventType = "combat.missing_target"
)

type HitLandedPayload struct {
	WeaponID string  `json:"weaponId"`
	Region   string  `json:"region,omitempty"`
	Material string  `json:"material,omitempty"`
	Distance float64 `json:"distance"`
	Headshot bool    `json:"headshot"`
	Critical bool    `json:"critical"`
}

func HitLanded(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload HitLandedPayload, trace string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     HitLandedEventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		TraceID:  trace,
	})
}

type DamageAppliedPayload struct {
	Amount      float64 `json:"amount"`
	ArmorDamage float64 `json:"armorDamage"`
	Health      float64 `json:"health"`
	Armor       float64 `json:"armor"`
	SourceKind  string  `json:"sourceKind"`
	Kill        bool    `json:"kill,omitempty"`
}

func DamageApplied(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamageAppliedPayload, trace string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     DamageAppliedEventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		TraceID:  trace,
	})
}

type KillPayload struct {
	KillStreak int      `json:"killStreak"`
	Assists    []string `json:"assists,omitempty"`
}

func Kill(ctx context.Context, pub logging.Publisher, tick uint64, killer, victim logging.EntityRef, payload KillPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     KillEventType,
		Tick:     tick,
		Actor:    killer,
		Targets:  []logging.EntityRef{victim},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

func ArmorBroken(ctx context.Context, pub logging.Publisher, tick uint64, target logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     ArmorBrokenEventType,
		Tick:     tick,
		Actor:    target,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
	})
}

type RejectedPayload struct {
	Request string `json:"request"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

// RequestRejected records a failed validation at Warn. The offending client
// never learns why; the log line is the only trace.
func RequestRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     RequestRejectedEventType,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryAntiCheat,
		Payload:  payload,
	})
}

func MissingTarget(ctx context.Context, pub logging.Publisher, tick uint64, targetID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     MissingTargetEventType,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: targetID, Kind: logging.EntityKindUnknown},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
	})
}
