package server

import (
	"context"
	"time"

	"github.com/google/uuid"

	"primal-royale/server/gear"
	"primal-royale/server/logging"
	"primal-royale/server/logging/combatlog"
)

// HandleFire resolves a fire request end to end: validation, ammo
// bookkeeping, ray cast, damage. Rejected requests are dropped without client
// feedback; the anti-cheat log is the only trace.
func (w *World) HandleFire(playerID string, req FireWeaponRequest, now time.Time) {
	weapon, err := w.catalog.Weapon(req.WeaponID)
	if err != nil {
		w.rejectRequest(playerID, "fire", rejectUnknownGear, req.WeaponID)
		return
	}
	if !checkDirection(req.Direction) {
		w.rejectRequest(playerID, "fire", rejectDirection)
		return
	}
	state, ok := w.player(playerID)
	if !ok {
		return
	}

	switch weapon.Class {
	case gear.ClassHitscan:
		w.fireHitscan(state, weapon, req, now)
	case gear.ClassThrowable:
		w.fireThrowable(state, weapon, req, now)
	default:
		// Melee resolves against a named target, not a ray.
		w.rejectRequest(playerID, "fire", rejectClass, string(weapon.Class))
	}
}

func (w *World) fireHitscan(state *playerState, weapon *gear.Weapon, req FireWeaponRequest, now time.Time) {
	trace := uuid.NewString()

	state.mu.Lock()
	if !state.alive {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectDead)
		return
	}
	if !w.checkOriginLocked(state, req.Origin) {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectOrigin)
		return
	}
	if !w.checkFireRateLocked(state, weapon, now) {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectFireRate, weapon.ID)
		return
	}
	if weapon.MagazineSize > 0 && state.magazines[weapon.ID] <= 0 {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectMagazine, weapon.ID)
		return
	}
	if weapon.MagazineSize > 0 {
		state.magazines[weapon.ID]--
	}
	// Firing commits the chambered state; a pending reload is abandoned.
	state.reload = nil
	w.recordShotLocked(state, weapon, now)
	damageMult := state.damageMultiplierLocked(now)
	shooterID := state.ID
	state.mu.Unlock()

	hit, found := w.scene.CastRay(req.Origin, req.Direction, weapon.Range, shooterID)
	if !found {
		return
	}
	if hit.Kind == TargetEnvironment {
		// Terrain absorbs the round; the hit is classified, not damaging.
		combatlog.HitLanded(
			context.Background(),
			w.publisher,
			w.Tick(),
			w.entityRef(shooterID),
			logging.EntityRef{Kind: logging.EntityKindWorld},
			combatlog.HitLandedPayload{
				WeaponID: weapon.ID,
				Distance: hit.Distance,
				Material: hit.Material,
			},
			trace,
		)
		return
	}

	roll := w.rollDamage(weapon, hit.Region, hit.Distance)
	amount := roll.Amount * damageMult

	combatlog.HitLanded(
		context.Background(),
		w.publisher,
		w.Tick(),
		w.entityRef(shooterID),
		w.entityRef(hit.TargetID),
		combatlog.HitLandedPayload{
			WeaponID: weapon.ID,
			Region:   hit.Region,
			Distance: hit.Distance,
			Headshot: roll.Headshot,
			Critical: roll.Critical,
		},
		trace,
	)

	ev := DamageEvent{
		Amount:   amount,
		SourceID: shooterID,
		Kind:     SourceWeapon,
		WeaponID: weapon.ID,
		Headshot: roll.Headshot,
		Critical: roll.Critical,
		Position: &hit.Point,
		TraceID:  trace,
	}
	if hit.Kind == TargetCreature {
		_, _ = w.DamageCreature(hit.TargetID, ev)
		return
	}
	_, _ = w.ApplyDamage(hit.TargetID, ev, now)
}

func (w *World) fireThrowable(state *playerState, weapon *gear.Weapon, req FireWeaponRequest, now time.Time) {
	state.mu.Lock()
	if !state.alive {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectDead)
		return
	}
	if !w.checkOriginLocked(state, req.Origin) {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectOrigin)
		return
	}
	if until, held := state.cooldowns[weapon.ID]; held && now.Before(until) {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectCooldown, weapon.ID)
		return
	}
	if state.stacks[weapon.ID] <= 0 {
		state.mu.Unlock()
		w.rejectRequest(state.ID, "fire", rejectStack, weapon.ID)
		return
	}
	state.stacks[weapon.ID]--
	state.cooldowns[weapon.ID] = now.Add(weapon.Cooldown())
	ownerID := state.ID
	state.mu.Unlock()

	w.scheduleBlast(ownerID, weapon, req.Origin, req.Direction, now)
}

// HandleMelee resolves a swing with the equipped melee weapon against a named
// target. Range is checked server-side against authoritative positions.
func (w *World) HandleMelee(playerID string, req MeleeRequest, now time.Time) {
	weapon, err := w.catalog.Weapon(defaultMeleeWeaponID)
	if err != nil {
		return
	}
	state, ok := w.player(playerID)
	if !ok {
		return
	}

	state.mu.Lock()
	if !state.alive {
		state.mu.Unlock()
		w.rejectRequest(playerID, "melee", rejectDead)
		return
	}
	if !w.checkFireRateLocked(state, weapon, now) {
		state.mu.Unlock()
		w.rejectRequest(playerID, "melee", rejectFireRate, weapon.ID)
		return
	}
	w.recordShotLocked(state, weapon, now)
	attackerPos := state.position()
	damageMult := state.damageMultiplierLocked(now)
	state.mu.Unlock()

	targetPos, targetKind, found := w.targetPosition(req.TargetID)
	if !found {
		w.rejectRequest(playerID, "melee", rejectTarget, req.TargetID)
		return
	}
	if attackerPos.DistanceTo(targetPos) > weapon.Range+meleeReachSlack {
		w.rejectRequest(playerID, "melee", rejectRange, req.TargetID)
		return
	}

	trace := uuid.NewString()
	roll := w.rollDamage(weapon, "body", 0)
	amount := roll.Amount * damageMult

	combatlog.HitLanded(
		context.Background(),
		w.publisher,
		w.Tick(),
		w.entityRef(playerID),
		w.entityRef(req.TargetID),
		combatlog.HitLandedPayload{
			WeaponID: weapon.ID,
			Region:   "body",
			Distance: attackerPos.DistanceTo(targetPos),
			Critical: roll.Critical,
		},
		trace,
	)

	ev := DamageEvent{
		Amount:   amount,
		SourceID: playerID,
		Kind:     SourceWeapon,
		WeaponID: weapon.ID,
		Critical: roll.Critical,
		TraceID:  trace,
	}
	switch targetKind {
	case TargetCreature:
		_, _ = w.DamageCreature(req.TargetID, ev)
	case TargetPlayer:
		_, _ = w.ApplyDamage(req.TargetID, ev, now)
	}
}

// targetPosition resolves a named melee target among living entities.
func (w *World) targetPosition(id string) (Vec3, TargetKind, bool) {
	if state, ok := w.player(id); ok {
		state.mu.Lock()
		defer state.mu.Unlock()
		if !state.alive {
			return Vec3{}, TargetPlayer, false
		}
		return state.position(), TargetPlayer, true
	}
	if state, ok := w.creature(id); ok {
		state.mu.Lock()
		defer state.mu.Unlock()
		if !state.alive {
			return Vec3{}, TargetCreature, false
		}
		return state.position(), TargetCreature, true
	}
	return Vec3{}, "", false
}

// HandleReload schedules a magazine refill. Completion runs on the healing
// tick so reloads share the timed-effect machinery.
func (w *World) HandleReload(playerID string, req ReloadWeaponRequest, now time.Time) {
	weapon, err := w.catalog.Weapon(req.WeaponID)
	if err != nil {
		w.rejectRequest(playerID, "reload", rejectUnknownGear, req.WeaponID)
		return
	}
	if weapon.MagazineSize <= 0 {
		w.rejectRequest(playerID, "reload", rejectClass, req.WeaponID)
		return
	}
	state, ok := w.player(playerID)
	if !ok {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if !state.alive {
		return
	}
	if state.reload != nil {
		return
	}
	if state.magazines[weapon.ID] >= weapon.MagazineSize {
		return
	}
	state.reload = &activeReload{
		weaponID:    weapon.ID,
		completesAt: now.Add(weapon.ReloadDuration()),
	}
}
