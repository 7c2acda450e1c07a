package server

import (
	"context"
	"fmt"
	"time"

	"primal-royale/server/gear"
	"primal-royale/server/logging/combatlog"
)

// Validation verdicts double as log payloads. Rejected requests are dropped
// silently at the wire; only the server log records why.
const (
	rejectFireRate    = "fire_rate_exceeded"
	rejectOrigin      = "implausible_origin"
	rejectDirection   = "degenerate_direction"
	rejectDead        = "actor_dead"
	rejectMagazine    = "magazine_empty"
	rejectCooldown    = "cooldown_active"
	rejectStack       = "stack_empty"
	rejectBusy        = "use_in_progress"
	rejectRange       = "out_of_range"
	rejectClass       = "wrong_weapon_class"
	rejectUnknownGear = "unknown_definition"
	rejectTarget      = "unknown_target"
)

// checkFireRateLocked verifies the shot cadence against the weapon's rated
// fire rate. Every shot is gated on the previous accepted shot; history in
// the window buys no burst allowance. The window additionally bounds the
// sustained rate over the last WindowSize shots. Callers hold state.mu.
func (w *World) checkFireRateLocked(state *playerState, weapon *gear.Weapon, now time.Time) bool {
	if weapon.FireRate <= 0 {
		return true
	}
	window := state.fireWindows[weapon.ID]
	if len(window) == 0 {
		return true
	}
	minInterval := time.Duration(float64(weapon.ShotInterval()) / w.anticheat.FireRateTolerance)
	if now.Sub(window[len(window)-1]) < minInterval {
		return false
	}
	return now.Sub(window[0]) >= minInterval*time.Duration(len(window))
}

// recordShotLocked appends an accepted shot timestamp, trimming the window to
// the configured size. Only accepted shots enter the window; rejected spam
// cannot starve a legitimate cadence. Callers hold state.mu.
func (w *World) recordShotLocked(state *playerState, weapon *gear.Weapon, now time.Time) {
	window := append(state.fireWindows[weapon.ID], now)
	if size := w.anticheat.WindowSize; size > 0 && len(window) > size {
		window = window[len(window)-size:]
	}
	state.fireWindows[weapon.ID] = window
}

// checkOriginLocked verifies the claimed muzzle origin sits near the
// authoritative position. Latency moves players a few units between the
// client's fire frame and the server's; teleport-grade offsets do not.
// Callers hold state.mu.
func (w *World) checkOriginLocked(state *playerState, origin Vec3) bool {
	return state.position().DistanceTo(origin) <= w.anticheat.OriginTolerance
}

// checkDirection rejects zero and non-finite aim vectors before they reach
// the ray caster.
func checkDirection(dir Vec3) bool {
	if !dir.finite() {
		return false
	}
	return dir.Length() > 1e-9
}

// rejectRequest logs a dropped request at Warn. Callers must not hold any
// player lock.
func (w *World) rejectRequest(playerID, request, reason string, detail ...any) {
	payload := combatlog.RejectedPayload{Request: request, Reason: reason}
	if len(detail) > 0 {
		payload.Detail = fmt.Sprint(detail...)
	}
	combatlog.RequestRejected(
		context.Background(),
		w.publisher,
		w.Tick(),
		w.entityRef(playerID),
		payload,
	)
}
