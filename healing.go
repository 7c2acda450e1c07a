package server

import (
	"context"
	"time"

	"primal-royale/server/gear"
	"primal-royale/server/logging/itemlog"
)

// activeUse is an in-progress item channel. Validity is the pointer itself:
// cancel, completion, death, and reset all null it under the record lock, so
// a stale deferred completion has nothing to complete.
type activeUse struct {
	item        gear.Item
	completesAt time.Time
}

// activeHeal is a running heal-over-time. remaining drains at the configured
// rate whether or not the heal lands, so time at full health is not banked.
// Validity is the pointer itself: death and reset null it under the record
// lock.
type activeHeal struct {
	remaining     float64
	ratePerSecond float64
}

// activeBuff is a timed stat modifier. Reapplying the same buff refreshes the
// timer; values never stack.
type activeBuff struct {
	kind   gear.BuffType
	value  float64
	endsAt time.Time
}

// activeReload is a pending magazine refill, nulled when firing abandons it.
type activeReload struct {
	weaponID    string
	completesAt time.Time
}

// StartUseItem begins channeling a consumable. The stack is debited up front
// and refunded if the use is cancelled before completion.
func (w *World) StartUseItem(playerID, itemID string, now time.Time) error {
	item, err := w.catalog.Item(itemID)
	if err != nil {
		w.rejectRequest(playerID, "useItem", rejectUnknownGear, itemID)
		return err
	}
	state, ok := w.player(playerID)
	if !ok {
		return ErrUnknownPlayer
	}

	state.mu.Lock()
	if !state.alive {
		state.mu.Unlock()
		w.rejectRequest(playerID, "useItem", rejectDead)
		return nil
	}
	if state.activeUse != nil {
		state.mu.Unlock()
		w.rejectRequest(playerID, "useItem", rejectBusy)
		return nil
	}
	if state.stacks[itemID] <= 0 {
		state.mu.Unlock()
		w.rejectRequest(playerID, "useItem", rejectStack, itemID)
		return nil
	}
	state.stacks[itemID]--
	state.activeUse = &activeUse{
		item:        *item,
		completesAt: now.Add(item.UseDelay()),
	}

	var msgs []any
	if !now.Before(state.activeUse.completesAt) {
		msgs = w.completeUseLocked(state, now)
	}
	state.mu.Unlock()

	itemlog.UseStarted(context.Background(), w.publisher, w.Tick(), w.entityRef(playerID), itemID)
	for _, msg := range msgs {
		w.notifier.SendTo(playerID, msg)
	}
	return nil
}

// CancelUseItem aborts an in-progress channel with zero effect. The stack is
// refunded and no healing or buff is applied. Cancelling with nothing in
// progress is a no-op.
func (w *World) CancelUseItem(playerID string) error {
	state, ok := w.player(playerID)
	if !ok {
		return ErrUnknownPlayer
	}
	state.mu.Lock()
	w.cancelUseLocked(state, "player")
	state.mu.Unlock()
	return nil
}

// cancelUseLocked tears down the active channel, refunding the stack.
// Callers hold state.mu. Returns the cancelled item id, or empty when nothing
// was channeling.
func (w *World) cancelUseLocked(state *playerState, reason string) string {
	use := state.activeUse
	if use == nil {
		return ""
	}
	state.activeUse = nil
	state.stacks[use.item.ID]++

	itemlog.UseCancelled(context.Background(), w.publisher, w.Tick(), w.entityRef(state.ID), use.item.ID, reason)
	return use.item.ID
}

// interruptUseOnDamageLocked cancels a channel when a single hit meets the
// item's interrupt threshold. Items with no threshold channel through damage.
// Callers hold state.mu.
func (w *World) interruptUseOnDamageLocked(state *playerState, amount float64) {
	use := state.activeUse
	if use == nil {
		return
	}
	if use.item.InterruptDamage <= 0 || amount < use.item.InterruptDamage {
		return
	}
	w.cancelUseLocked(state, "damage")
}

// completeUseLocked applies a finished channel's effects and returns the
// outbound messages to deliver after the lock is released. Callers hold
// state.mu.
func (w *World) completeUseLocked(state *playerState, now time.Time) []any {
	use := state.activeUse
	if use == nil {
		return nil
	}
	state.activeUse = nil
	item := use.item

	var msgs []any
	var healed, armored float64

	switch item.Kind {
	case gear.ItemInstantHeal:
		healed = w.healLocked(state, item.HealAmount)
	case gear.ItemHealOverTime:
		state.activeHeal = &activeHeal{
			remaining:     item.HealAmount,
			ratePerSecond: item.HealRate(),
		}
	case gear.ItemShield:
		armored = w.addArmorLocked(state, item.ArmorAmount)
	case gear.ItemBuff:
		buff := w.applyBuffLocked(state, item, now)
		msgs = append(msgs, BuffAppliedMessage{
			Type:       msgBuffApplied,
			BuffType:   string(buff.kind),
			Value:      buff.value,
			DurationMs: item.Duration().Milliseconds(),
		})
		itemlog.BuffApplied(context.Background(), w.publisher, w.Tick(), w.entityRef(state.ID), itemlog.BuffPayload{
			BuffType:   string(buff.kind),
			Value:      buff.value,
			DurationMs: item.Duration().Milliseconds(),
		})
	}

	msgs = append(msgs, UseCompletedMessage{
		Type:        msgUseCompleted,
		ItemID:      item.ID,
		HealAmount:  healed,
		ArmorAmount: armored,
	})
	if healed > 0 || armored > 0 {
		msgs = append(msgs, HealthUpdateMessage{
			Type:      msgHealthUpdate,
			Health:    state.Health,
			MaxHealth: state.MaxHealth,
			Armor:     state.Armor,
			MaxArmor:  state.MaxArmor,
		})
	}

	itemlog.UseCompleted(context.Background(), w.publisher, w.Tick(), w.entityRef(state.ID), itemlog.UsePayload{
		ItemID:      item.ID,
		HealAmount:  healed,
		ArmorAmount: armored,
	})
	return msgs
}

// applyBuffLocked installs or refreshes a timed modifier and recomputes the
// derived stats it touches. Callers hold state.mu.
func (w *World) applyBuffLocked(state *playerState, item gear.Item, now time.Time) *activeBuff {
	buff := &activeBuff{
		kind:   item.Buff,
		value:  item.BuffValue,
		endsAt: now.Add(item.Duration()),
	}
	state.buffs[item.Buff] = buff
	w.recomputeMoveSpeedLocked(state, now)
	return buff
}

// recomputeMoveSpeedLocked rebuilds effective speed from the base constant
// and whatever speed buffs remain active. Recomputing from the base (rather
// than dividing the expired buff back out) keeps the revert exact.
func (w *World) recomputeMoveSpeedLocked(state *playerState, now time.Time) {
	speed := baseMoveSpeed
	for _, buff := range state.buffs {
		if buff.kind != gear.BuffSpeed {
			continue
		}
		if now.Before(buff.endsAt) {
			speed *= buff.value
		}
	}
	state.moveSpeed = speed
}

// clearTimedEffectsLocked wipes every scheduled effect on death. Callers hold
// state.mu.
func (w *World) clearTimedEffectsLocked(state *playerState) {
	state.activeUse = nil
	state.activeHeal = nil
	state.reload = nil
	state.buffs = make(map[gear.BuffType]*activeBuff)
	state.moveSpeed = baseMoveSpeed
}

// advanceHealing drives every timed combat effect off the world tick. It
// self-throttles to the configured healing interval so tick rate and healing
// cadence stay independently tunable.
func (w *World) advanceHealing(now time.Time) {
	if w.lastHealAdvance.IsZero() {
		w.lastHealAdvance = now
		return
	}
	elapsed := now.Sub(w.lastHealAdvance)
	if elapsed < w.healing.TickInterval.Duration {
		return
	}
	w.lastHealAdvance = now
	dt := elapsed.Seconds()

	for _, state := range w.playerList() {
		// Movement is sampled before taking the record lock; the default
		// sampler locks the same record.
		moving := w.movement.InputMagnitude(state.ID) > w.healing.MoveCancelThreshold

		state.mu.Lock()
		if !state.alive {
			state.mu.Unlock()
			continue
		}
		var msgs []any
		// Heals tick before uses complete so a freshly finished channel
		// does not bill its heal-over-time for time it did not exist.
		msgs = append(msgs, w.advanceHealLocked(state, dt)...)
		msgs = append(msgs, w.advanceUseLocked(state, now, moving)...)
		msgs = append(msgs, w.advanceBuffsLocked(state, now)...)
		msgs = append(msgs, w.advanceReloadLocked(state, now)...)
		id := state.ID
		state.mu.Unlock()

		for _, msg := range msgs {
			w.notifier.SendTo(id, msg)
		}
	}
}

func (w *World) advanceUseLocked(state *playerState, now time.Time, moving bool) []any {
	use := state.activeUse
	if use == nil {
		return nil
	}
	if moving && !use.item.AllowMovement {
		w.cancelUseLocked(state, "movement")
		return nil
	}
	if now.Before(use.completesAt) {
		return nil
	}
	return w.completeUseLocked(state, now)
}

func (w *World) advanceHealLocked(state *playerState, dt float64) []any {
	heal := state.activeHeal
	if heal == nil {
		return nil
	}
	tickAmount := heal.ratePerSecond * dt
	if tickAmount > heal.remaining {
		tickAmount = heal.remaining
	}
	applied := w.healLocked(state, tickAmount)
	// The budget drains on schedule even when the player sits at full
	// health; a heal-over-time is a timer, not a reservoir.
	heal.remaining -= tickAmount
	if heal.remaining <= 0 {
		state.activeHeal = nil
	}
	if applied <= 0 {
		return nil
	}
	return []any{HealthUpdateMessage{
		Type:      msgHealthUpdate,
		Health:    state.Health,
		MaxHealth: state.MaxHealth,
		Armor:     state.Armor,
		MaxArmor:  state.MaxArmor,
	}}
}

func (w *World) advanceBuffsLocked(state *playerState, now time.Time) []any {
	var msgs []any
	for kind, buff := range state.buffs {
		if now.Before(buff.endsAt) {
			continue
		}
		delete(state.buffs, kind)
		if kind == gear.BuffSpeed {
			w.recomputeMoveSpeedLocked(state, now)
		}
		msgs = append(msgs, BuffExpiredMessage{Type: msgBuffExpired, BuffType: string(kind)})
		itemlog.BuffExpired(context.Background(), w.publisher, w.Tick(), w.entityRef(state.ID), string(kind))
	}
	return msgs
}

func (w *World) advanceReloadLocked(state *playerState, now time.Time) []any {
	reload := state.reload
	if reload == nil || now.Before(reload.completesAt) {
		return nil
	}
	state.reload = nil

	weapon, err := w.catalog.Weapon(reload.weaponID)
	if err != nil || weapon.MagazineSize <= 0 {
		return nil
	}
	needed := weapon.MagazineSize - state.magazines[weapon.ID]
	if needed <= 0 {
		return nil
	}
	reserve := w.ammo.GetReserveAmmo(state.ID, weapon.AmmoType)
	if needed > reserve {
		needed = reserve
	}
	if needed <= 0 || !w.ammo.ConsumeAmmo(state.ID, weapon.AmmoType, needed) {
		return nil
	}
	state.magazines[weapon.ID] += needed

	return []any{ReloadCompletedMessage{
		Type:     msgReloadCompleted,
		WeaponID: weapon.ID,
		Magazine: state.magazines[weapon.ID],
		Reserve:  w.ammo.GetReserveAmmo(state.ID, weapon.AmmoType),
	}}
}
