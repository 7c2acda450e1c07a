package server

import (
	"math"
	"testing"
	"time"
)

func stacksOf(t *testing.T, w *World, id, gearID string) int {
	t.Helper()
	state, ok := w.player(id)
	if !ok {
		t.Fatalf("unknown player %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.stacks[gearID]
}

func moveSpeedOf(t *testing.T, w *World, id string) float64 {
	t.Helper()
	state, ok := w.player(id)
	if !ok {
		t.Fatalf("unknown player %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.moveSpeed
}

func TestMedkitHealsOnCompletion(t *testing.T) {
	w, rec := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)
	setHealth(t, w, id, 40, 0)

	if err := w.StartUseItem(id, "medkit", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	if got := stacksOf(t, w, id, "medkit"); got != 1 {
		t.Fatalf("medkit stacks = %d, want 1 (debited up front)", got)
	}

	// Not done yet at 3.9s.
	w.lastHealAdvance = start
	w.advanceHealing(start.Add(3900 * time.Millisecond))
	if health, _ := playerHealth(t, w, id); health != 40 {
		t.Fatalf("health = %v before completion, want 40", health)
	}

	w.advanceHealing(start.Add(4 * time.Second))
	if health, _ := playerHealth(t, w, id); health != 100 {
		t.Fatalf("health = %v after completion, want 100", health)
	}

	done, ok := firstMessage[UseCompletedMessage](rec, id)
	if !ok {
		t.Fatal("no useCompleted message")
	}
	if done.ItemID != "medkit" || done.HealAmount != 60 {
		t.Fatalf("useCompleted = %+v, want medkit/60", done)
	}
}

func TestBandageHealsOverTime(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)
	setHealth(t, w, id, 50, 0)

	if err := w.StartUseItem(id, "bandage", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}

	// Channel completes at 1.5s; the heal then drips 5 HP/s for 6s.
	w.lastHealAdvance = start
	now := start.Add(1500 * time.Millisecond)
	w.advanceHealing(now)

	for i := 0; i < 6; i++ {
		now = now.Add(time.Second)
		w.advanceHealing(now)
	}

	health, _ := playerHealth(t, w, id)
	if math.Abs(health-80) > 1e-6 {
		t.Fatalf("health = %v, want 80 (50 + 30 over time)", health)
	}

	// The budget is spent; further ticks heal nothing.
	setHealth(t, w, id, 50, 0)
	now = now.Add(time.Second)
	w.advanceHealing(now)
	if health, _ := playerHealth(t, w, id); health != 50 {
		t.Fatalf("expired heal still ticking, health = %v", health)
	}
}

func TestHealOverTimeDrainsAtFullHealth(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "bandage", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	w.lastHealAdvance = start
	now := start.Add(1500 * time.Millisecond)
	w.advanceHealing(now)

	// Sit at full health for the whole duration. The budget must drain,
	// not bank for later.
	for i := 0; i < 8; i++ {
		now = now.Add(time.Second)
		w.advanceHealing(now)
	}

	state, _ := w.player(id)
	state.mu.Lock()
	pending := state.activeHeal
	state.mu.Unlock()
	if pending != nil {
		t.Fatalf("heal-over-time still active with %v remaining", pending.remaining)
	}
}

func TestCancelUseRefundsWithZeroEffect(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)
	setHealth(t, w, id, 40, 0)

	if err := w.StartUseItem(id, "medkit", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	if err := w.CancelUseItem(id); err != nil {
		t.Fatalf("CancelUseItem: %v", err)
	}
	if got := stacksOf(t, w, id, "medkit"); got != 2 {
		t.Fatalf("medkit stacks = %d after cancel, want 2", got)
	}

	// A completion scheduled before the cancel must never land.
	w.lastHealAdvance = start
	w.advanceHealing(start.Add(10 * time.Second))
	if health, _ := playerHealth(t, w, id); health != 40 {
		t.Fatalf("cancelled use still healed, health = %v", health)
	}
}

func TestMovementInterruptsChannel(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)
	setHealth(t, w, id, 40, 0)

	if err := w.StartUseItem(id, "bandage", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	w.UpdateIntent(id, 1, 0, 0)

	w.lastHealAdvance = start
	w.advanceHealing(start.Add(500 * time.Millisecond))

	if got := stacksOf(t, w, id, "bandage"); got != 10 {
		t.Fatalf("bandage stacks = %d, want 10 (refunded)", got)
	}
	w.advanceHealing(start.Add(10 * time.Second))
	if health, _ := playerHealth(t, w, id); health != 40 {
		t.Fatalf("interrupted use still healed, health = %v", health)
	}
}

func TestMovementAllowedDuringAdrenaline(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "adrenaline", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	w.UpdateIntent(id, 1, 0, 0)

	w.lastHealAdvance = start
	w.advanceHealing(start.Add(time.Second))

	if speed := moveSpeedOf(t, w, id); math.Abs(speed-6.0*1.3) > 1e-9 {
		t.Fatalf("moveSpeed = %v, want %v", speed, 6.0*1.3)
	}
}

func TestDamageInterruptsChannelAtThreshold(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		cancelled bool
	}{
		{"below threshold", 9, false},
		{"at threshold", 10, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := newTestWorld(t)
			start := time.Unix(1000, 0)
			id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

			if err := w.StartUseItem(id, "bandage", start); err != nil {
				t.Fatalf("StartUseItem: %v", err)
			}
			w.ApplyDamage(id, DamageEvent{Amount: tc.amount, Kind: SourceWeapon}, start)

			state, _ := w.player(id)
			state.mu.Lock()
			channeling := state.activeUse != nil
			state.mu.Unlock()
			if channeling == tc.cancelled {
				t.Fatalf("channeling = %v, want cancelled = %v", channeling, tc.cancelled)
			}
		})
	}
}

func TestMedkitChannelsThroughDamage(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "medkit", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	// Medkit has no interrupt threshold.
	w.ApplyDamage(id, DamageEvent{Amount: 50, Kind: SourceWeapon}, start)

	state, _ := w.player(id)
	state.mu.Lock()
	channeling := state.activeUse != nil
	state.mu.Unlock()
	if !channeling {
		t.Fatal("medkit channel was interrupted by damage")
	}
}

func TestUseWhileBusyRejected(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "medkit", start); err != nil {
		t.Fatalf("first StartUseItem: %v", err)
	}
	if err := w.StartUseItem(id, "bandage", start); err != nil {
		t.Fatalf("second StartUseItem: %v", err)
	}
	if got := stacksOf(t, w, id, "bandage"); got != 10 {
		t.Fatalf("bandage stacks = %d, want 10 (second use rejected)", got)
	}
}

func TestShieldCellRaisesArmor(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "shield-cell", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	w.lastHealAdvance = start
	w.advanceHealing(start.Add(2 * time.Second))

	if _, armor := playerHealth(t, w, id); armor != 50 {
		t.Fatalf("armor = %v, want 50", armor)
	}
}

func TestSpeedBuffRevertsExactly(t *testing.T) {
	w, rec := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "adrenaline", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	w.lastHealAdvance = start
	applyAt := start.Add(time.Second)
	w.advanceHealing(applyAt)

	if speed := moveSpeedOf(t, w, id); math.Abs(speed-7.8) > 1e-9 {
		t.Fatalf("buffed speed = %v, want 7.8", speed)
	}

	// Expiry reverts to the exact base value, not a rounded neighbor.
	w.advanceHealing(applyAt.Add(10*time.Second + time.Millisecond))
	if speed := moveSpeedOf(t, w, id); speed != baseMoveSpeed {
		t.Fatalf("reverted speed = %v, want exactly %v", speed, baseMoveSpeed)
	}

	if _, ok := firstMessage[BuffExpiredMessage](rec, id); !ok {
		t.Fatal("no buffExpired message")
	}
}

func TestBuffRefreshDoesNotStack(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	state, _ := w.player(id)
	adrenaline, _ := w.catalog.Item("adrenaline")

	state.mu.Lock()
	w.applyBuffLocked(state, *adrenaline, start)
	w.applyBuffLocked(state, *adrenaline, start.Add(5*time.Second))
	speed := state.moveSpeed
	endsAt := state.buffs[adrenaline.Buff].endsAt
	state.mu.Unlock()

	if math.Abs(speed-7.8) > 1e-9 {
		t.Fatalf("refreshed speed = %v, want 7.8 (no stacking)", speed)
	}
	if want := start.Add(15 * time.Second); !endsAt.Equal(want) {
		t.Fatalf("endsAt = %v, want %v", endsAt, want)
	}
}

func TestDamageBuffMultipliesOutgoing(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	state, _ := w.player(id)
	stim, _ := w.catalog.Item("stim")

	state.mu.Lock()
	w.applyBuffLocked(state, *stim, start)
	mult := state.damageMultiplierLocked(start.Add(time.Second))
	expired := state.damageMultiplierLocked(start.Add(20 * time.Second))
	state.mu.Unlock()

	if math.Abs(mult-1.15) > 1e-9 {
		t.Fatalf("multiplier = %v, want 1.15", mult)
	}
	if expired != 1.0 {
		t.Fatalf("expired multiplier = %v, want 1.0", expired)
	}
}

func TestDeathClearsTimedEffects(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "adrenaline", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	w.lastHealAdvance = start
	w.advanceHealing(start.Add(time.Second))

	w.ApplyDamage(id, DamageEvent{Amount: 500, Kind: SourceStorm}, start.Add(2*time.Second))

	state, _ := w.player(id)
	state.mu.Lock()
	buffs := len(state.buffs)
	speed := state.moveSpeed
	state.mu.Unlock()
	if buffs != 0 {
		t.Fatalf("buffs after death = %d, want 0", buffs)
	}
	if speed != baseMoveSpeed {
		t.Fatalf("speed after death = %v, want %v", speed, baseMoveSpeed)
	}
}

func TestStackExhaustionRejected(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	state, _ := w.player(id)
	state.mu.Lock()
	state.stacks["medkit"] = 0
	state.mu.Unlock()

	if err := w.StartUseItem(id, "medkit", start); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	state.mu.Lock()
	channeling := state.activeUse != nil
	state.mu.Unlock()
	if channeling {
		t.Fatal("use started with zero stacks")
	}
}

func TestUnknownItemReturnsError(t *testing.T) {
	w, _ := newTestWorld(t)
	start := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, start)

	if err := w.StartUseItem(id, "nonexistent", start); err == nil {
		t.Fatal("expected error for unknown item")
	}
}
