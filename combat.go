package server

import (
	"context"
	"math"
	"time"

	"primal-royale/server/logging/combatlog"
)

// SourceKind classifies where a damage event came from.
type SourceKind string

const (
	SourceWeapon      SourceKind = "weapon"
	SourceDinosaur    SourceKind = "dinosaur"
	SourceStorm       SourceKind = "storm"
	SourceEnvironment SourceKind = "environment"
	SourceFall        SourceKind = "fall"
)

// DamageEvent is constructed per hit and consumed synchronously. SourceID is
// empty for damage with no owning player (creatures, storm, environment).
type DamageEvent struct {
	Amount   float64
	SourceID string
	Kind     SourceKind
	WeaponID string
	Headshot bool
	Critical bool
	Position *Vec3
	TraceID  string
}

// DamageOutcome reports what a damage event actually did after mitigation.
type DamageOutcome struct {
	ActualDamage float64 // health drawn, post-armor, post-floor
	ArmorDamage  float64
	NewHealth    float64
	NewArmor     float64
	Kill         bool
	ArmorBroken  bool
}

// deathRecord captures everything the death transition needs once the
// victim's lock is released.
type deathRecord struct {
	victimID string
	killerID string
	assists  []string
}

// ApplyDamage is the single mutation path for incoming damage. It mitigates
// through armor, maintains the damage/assist ledgers, and runs the death
// transition exactly once per life. Damage to an unknown player is a logged
// no-op (disconnect race), not an error surfaced to combat flow.
func (w *World) ApplyDamage(targetID string, ev DamageEvent, now time.Time) (DamageOutcome, error) {
	if w == nil {
		return DamageOutcome{}, ErrUnknownPlayer
	}
	target, ok := w.player(targetID)
	if !ok {
		combatlog.MissingTarget(context.Background(), w.publisher, w.Tick(), targetID)
		return DamageOutcome{}, ErrUnknownPlayer
	}

	amount := ev.Amount
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return DamageOutcome{}, nil
	}

	target.mu.Lock()
	if !target.alive {
		// Duplicate zero-health updates and post-death stragglers are
		// no-ops; the transition already ran for this life.
		health, armor := target.Health, target.Armor
		target.mu.Unlock()
		return DamageOutcome{NewHealth: health, NewArmor: armor}, nil
	}

	armorBefore := target.Armor
	armorDamage := math.Min(armorBefore, amount*w.combat.ArmorAbsorb)
	healthDamage := amount - armorDamage
	if healthDamage > target.Health {
		healthDamage = target.Health
	}

	target.Armor = armorBefore - armorDamage
	target.Health -= healthDamage
	target.damageTaken += armorDamage + healthDamage
	target.lastDamageTime = now
	if ev.SourceID != "" {
		target.lastDamageSource = ev.SourceID
		if ev.SourceID != targetID {
			target.assists[ev.SourceID] += armorDamage + healthDamage
		}
	}

	outcome := DamageOutcome{
		ActualDamage: healthDamage,
		ArmorDamage:  armorDamage,
		NewHealth:    target.Health,
		NewArmor:     target.Armor,
		ArmorBroken:  armorBefore > 0 && target.Armor == 0,
	}

	w.interruptUseOnDamageLocked(target, amount)

	var death *deathRecord
	if target.Health <= 0 {
		target.Health = 0
		outcome.NewHealth = 0
		outcome.Kill = true
		death = w.beginDeathLocked(target)
	}
	target.mu.Unlock()

	w.notifier.SendTo(targetID, DamageTakenMessage{
		Type:        msgDamageTaken,
		Amount:      outcome.ActualDamage,
		ArmorDamage: outcome.ArmorDamage,
		Health:      outcome.NewHealth,
		Armor:       outcome.NewArmor,
		SourceID:    ev.SourceID,
		SourceType:  string(ev.Kind),
		Headshot:    ev.Headshot,
		Critical:    ev.Critical,
	})

	if outcome.ArmorBroken {
		combatlog.ArmorBroken(context.Background(), w.publisher, w.Tick(), w.entityRef(targetID))
	}

	combatlog.DamageApplied(
		context.Background(),
		w.publisher,
		w.Tick(),
		w.entityRef(ev.SourceID),
		w.entityRef(targetID),
		combatlog.DamageAppliedPayload{
			Amount:      outcome.ActualDamage,
			ArmorDamage: outcome.ArmorDamage,
			Health:      outcome.NewHealth,
			Armor:       outcome.NewArmor,
			SourceKind:  string(ev.Kind),
			Kill:        outcome.Kill,
		},
		ev.TraceID,
	)

	w.creditAttacker(ev, outcome, targetID)
	if death != nil {
		w.finishDeath(death)
	}
	return outcome, nil
}

// creditAttacker updates the shooter's outgoing-damage ledger and feedback
// messages. Runs after the victim's lock is released; takes only the
// attacker's lock.
func (w *World) creditAttacker(ev DamageEvent, outcome DamageOutcome, targetID string) {
	if ev.SourceID == "" || ev.SourceID == targetID {
		return
	}
	source, ok := w.player(ev.SourceID)
	if ok {
		source.mu.Lock()
		source.damageDealt += outcome.ActualDamage + outcome.ArmorDamage
		source.mu.Unlock()
	}

	w.notifier.SendTo(ev.SourceID, DamageDealtMessage{
		Type:         msgDamageDealt,
		Amount:       outcome.ActualDamage + outcome.ArmorDamage,
		TargetID:     targetID,
		Headshot:     ev.Headshot,
		Critical:     ev.Critical,
		TargetHealth: outcome.NewHealth,
	})
	w.notifier.SendTo(ev.SourceID, HitConfirmMessage{
		Type:     msgHitConfirm,
		Headshot: ev.Headshot,
		Kill:     outcome.Kill,
	})
}

// beginDeathLocked flips the life flag and snapshots everything the
// transition needs. Callers hold the victim's lock; the alive check above
// guarantees this runs at most once per life.
func (w *World) beginDeathLocked(victim *playerState) *deathRecord {
	victim.alive = false

	record := &deathRecord{
		victimID: victim.ID,
		killerID: victim.lastDamageSource,
	}
	for contributor, dealt := range victim.assists {
		if contributor == record.killerID {
			continue
		}
		if dealt >= w.combat.AssistThreshold {
			record.assists = append(record.assists, contributor)
		}
	}

	victim.KillStreak = 0
	victim.assists = make(map[string]float64)
	w.clearTimedEffectsLocked(victim)
	return record
}

// finishDeath credits the killer and notifies contributors. Never called with
// any lock held.
func (w *World) finishDeath(record *deathRecord) {
	streak := 0
	if record.killerID != "" && record.killerID != record.victimID {
		if killer, ok := w.player(record.killerID); ok {
			killer.mu.Lock()
			killer.KillStreak++
			streak = killer.KillStreak
			killer.mu.Unlock()
		}
		w.notifier.SendTo(record.killerID, KillMessage{
			Type:       msgKill,
			VictimID:   record.victimID,
			KillStreak: streak,
		})
	}
	for _, contributor := range record.assists {
		w.notifier.SendTo(contributor, AssistMessage{
			Type:     msgAssist,
			VictimID: record.victimID,
		})
	}

	combatlog.Kill(
		context.Background(),
		w.publisher,
		w.Tick(),
		w.entityRef(record.killerID),
		w.entityRef(record.victimID),
		combatlog.KillPayload{KillStreak: streak, Assists: record.assists},
	)
}

// Heal raises health toward the cap and reports the delta actually applied.
// Healing a player already at max is a zero no-op.
func (w *World) Heal(targetID string, amount float64, sourceID string) (float64, error) {
	if w == nil {
		return 0, ErrUnknownPlayer
	}
	target, ok := w.player(targetID)
	if !ok {
		return 0, ErrUnknownPlayer
	}
	target.mu.Lock()
	applied := w.healLocked(target, amount)
	health, maxHealth := target.Health, target.MaxHealth
	armor, maxArmor := target.Armor, target.MaxArmor
	target.mu.Unlock()

	if applied > 0 {
		w.notifier.SendTo(targetID, HealthUpdateMessage{
			Type:      msgHealthUpdate,
			Health:    health,
			MaxHealth: maxHealth,
			Armor:     armor,
			MaxArmor:  maxArmor,
		})
	}
	return applied, nil
}

// healLocked is the in-lock heal primitive shared with the scheduler.
func (w *World) healLocked(target *playerState, amount float64) float64 {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	if !target.alive {
		return 0
	}
	missing := target.MaxHealth - target.Health
	if missing <= 0 {
		return 0
	}
	applied := math.Min(amount, missing)
	target.Health += applied
	return applied
}

// AddArmor raises the armor pool, clamped to the cap, and returns the delta.
func (w *World) AddArmor(targetID string, amount float64) (float64, error) {
	if w == nil {
		return 0, ErrUnknownPlayer
	}
	target, ok := w.player(targetID)
	if !ok {
		return 0, ErrUnknownPlayer
	}
	target.mu.Lock()
	applied := w.addArmorLocked(target, amount)
	health, maxHealth := target.Health, target.MaxHealth
	armor, maxArmor := target.Armor, target.MaxArmor
	target.mu.Unlock()

	if applied > 0 {
		w.notifier.SendTo(targetID, HealthUpdateMessage{
			Type:      msgHealthUpdate,
			Health:    health,
			MaxHealth: maxHealth,
			Armor:     armor,
			MaxArmor:  maxArmor,
		})
	}
	return applied, nil
}

func (w *World) addArmorLocked(target *playerState, amount float64) float64 {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	missing := target.MaxArmor - target.Armor
	if missing <= 0 {
		return 0
	}
	applied := math.Min(amount, missing)
	target.Armor += applied
	return applied
}

// SetArmor pins armor to an exact value within [0, maxArmor].
func (w *World) SetArmor(targetID string, value float64) error {
	target, ok := w.player(targetID)
	if !ok {
		return ErrUnknownPlayer
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	target.mu.Lock()
	target.Armor = math.Max(0, math.Min(target.MaxArmor, value))
	target.mu.Unlock()
	return nil
}

// Reset restores a player's match-start defaults (respawn / match restart).
func (w *World) Reset(playerID string) error {
	state, ok := w.player(playerID)
	if !ok {
		return ErrUnknownPlayer
	}
	state.mu.Lock()
	state.resetLocked(w.combat.MaxHealth, w.combat.MaxArmor)
	w.seedLoadout(state)
	health, maxHealth := state.Health, state.MaxHealth
	armor, maxArmor := state.Armor, state.MaxArmor
	state.mu.Unlock()

	w.notifier.SendTo(playerID, HealthUpdateMessage{
		Type:      msgHealthUpdate,
		Health:    health,
		MaxHealth: maxHealth,
		Armor:     armor,
		MaxArmor:  maxArmor,
	})
	return nil
}

// ResetAll is the match (re)start hook.
func (w *World) ResetAll() {
	for _, state := range w.playerList() {
		_ = w.Reset(state.ID)
	}
}

// ApplyStormDamage is the entry point for zone damage owned by no player.
func (w *World) ApplyStormDamage(playerID string, amount float64, now time.Time) (DamageOutcome, error) {
	return w.ApplyDamage(playerID, DamageEvent{Amount: amount, Kind: SourceStorm}, now)
}

// ApplyFallDamage is the entry point for movement-layer fall damage.
func (w *World) ApplyFallDamage(playerID string, amount float64, now time.Time) (DamageOutcome, error) {
	return w.ApplyDamage(playerID, DamageEvent{Amount: amount, Kind: SourceFall}, now)
}

// DamageLedger reports the cumulative match-scoped damage totals.
func (w *World) DamageLedger(playerID string) (dealt, taken float64, err error) {
	state, ok := w.player(playerID)
	if !ok {
		return 0, 0, ErrUnknownPlayer
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.damageDealt, state.damageTaken, nil
}
