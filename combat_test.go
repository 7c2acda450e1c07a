package server

import (
	"math"
	"testing"
	"time"
)

func TestApplyDamageArmorSplit(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)
	setHealth(t, w, id, 100, 50)

	outcome, err := w.ApplyDamage(id, DamageEvent{Amount: 40, Kind: SourceWeapon}, now)
	if err != nil {
		t.Fatalf("ApplyDamage: %v", err)
	}
	if outcome.ArmorDamage != 20 {
		t.Fatalf("armor damage = %v, want 20", outcome.ArmorDamage)
	}
	if outcome.ActualDamage != 20 {
		t.Fatalf("health damage = %v, want 20", outcome.ActualDamage)
	}
	if outcome.NewHealth != 80 || outcome.NewArmor != 30 {
		t.Fatalf("pools = %v/%v, want 80/30", outcome.NewHealth, outcome.NewArmor)
	}
}

// Mitigation splits but never erases damage: for any armor level the pool
// losses must sum to the incoming amount while health remains.
func TestApplyDamageConservation(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	for armor := 0.0; armor <= 100; armor += 7 {
		for _, amount := range []float64{1, 13, 40, 99} {
			setHealth(t, w, id, 100, armor)
			outcome, err := w.ApplyDamage(id, DamageEvent{Amount: amount, Kind: SourceWeapon}, now)
			if err != nil {
				t.Fatalf("ApplyDamage: %v", err)
			}
			total := outcome.ActualDamage + outcome.ArmorDamage
			if math.Abs(total-amount) > 1e-9 {
				t.Fatalf("armor=%v amount=%v: absorbed %v, want %v", armor, amount, total, amount)
			}
			if outcome.ArmorDamage > armor {
				t.Fatalf("armor=%v: armor damage %v exceeds pool", armor, outcome.ArmorDamage)
			}
		}
	}
}

func TestApplyDamageArmorBroken(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)
	setHealth(t, w, id, 100, 10)

	outcome, _ := w.ApplyDamage(id, DamageEvent{Amount: 40, Kind: SourceWeapon}, now)
	if !outcome.ArmorBroken {
		t.Fatal("expected armor broken")
	}
	if outcome.ArmorDamage != 10 || outcome.ActualDamage != 30 {
		t.Fatalf("split = %v armor / %v health, want 10/30", outcome.ArmorDamage, outcome.ActualDamage)
	}
}

func TestApplyDamageRejectsNonPositive(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		outcome, err := w.ApplyDamage(id, DamageEvent{Amount: amount, Kind: SourceWeapon}, now)
		if err != nil {
			t.Fatalf("ApplyDamage(%v): %v", amount, err)
		}
		if outcome.ActualDamage != 0 || outcome.ArmorDamage != 0 {
			t.Fatalf("amount %v caused damage %+v", amount, outcome)
		}
	}
	if health, _ := playerHealth(t, w, id); health != 100 {
		t.Fatalf("health drifted to %v", health)
	}
}

func TestDeathTransitionExactlyOnce(t *testing.T) {
	w, rec := newTestWorld(t)
	now := time.Unix(1000, 0)
	killer := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	victim := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	first, _ := w.ApplyDamage(victim, DamageEvent{Amount: 500, SourceID: killer, Kind: SourceWeapon}, now)
	if !first.Kill {
		t.Fatal("expected kill on lethal damage")
	}

	// Duplicate and post-death damage must not re-run the transition.
	second, _ := w.ApplyDamage(victim, DamageEvent{Amount: 500, SourceID: killer, Kind: SourceWeapon}, now)
	if second.Kill {
		t.Fatal("death transition ran twice")
	}

	if got := countMessages[KillMessage](rec, killer); got != 1 {
		t.Fatalf("killer received %d kill messages, want 1", got)
	}

	state, _ := w.player(killer)
	state.mu.Lock()
	streak := state.KillStreak
	state.mu.Unlock()
	if streak != 1 {
		t.Fatalf("kill streak = %d, want 1", streak)
	}
}

func TestAssistThresholdBoundary(t *testing.T) {
	tests := []struct {
		name       string
		dealt      float64
		wantAssist bool
	}{
		{"below threshold", 29, false},
		{"at threshold", 30, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, rec := newTestWorld(t)
			now := time.Unix(1000, 0)
			helper := addTestPlayer(t, w, Vec3{X: 80, Y: 0, Z: 100}, now)
			killer := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
			victim := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

			if _, err := w.ApplyDamage(victim, DamageEvent{Amount: tc.dealt, SourceID: helper, Kind: SourceWeapon}, now); err != nil {
				t.Fatalf("helper damage: %v", err)
			}
			if _, err := w.ApplyDamage(victim, DamageEvent{Amount: 500, SourceID: killer, Kind: SourceWeapon}, now); err != nil {
				t.Fatalf("killing blow: %v", err)
			}

			gotAssist := countMessages[AssistMessage](rec, helper) == 1
			if gotAssist != tc.wantAssist {
				t.Fatalf("assist = %v, want %v", gotAssist, tc.wantAssist)
			}
			// The killer never doubles as an assister.
			if countMessages[AssistMessage](rec, killer) != 0 {
				t.Fatal("killer received an assist")
			}
		})
	}
}

func TestVictimStreakResetsOnDeath(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	killer := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	victim := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	state, _ := w.player(victim)
	state.mu.Lock()
	state.KillStreak = 7
	state.mu.Unlock()

	w.ApplyDamage(victim, DamageEvent{Amount: 500, SourceID: killer, Kind: SourceWeapon}, now)

	state.mu.Lock()
	streak := state.KillStreak
	state.mu.Unlock()
	if streak != 0 {
		t.Fatalf("victim streak = %d, want 0", streak)
	}
}

func TestSelfDamageEarnsNoCredit(t *testing.T) {
	w, rec := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	outcome, _ := w.ApplyDamage(id, DamageEvent{Amount: 500, SourceID: id, Kind: SourceWeapon}, now)
	if !outcome.Kill {
		t.Fatal("expected self-kill")
	}
	if got := countMessages[KillMessage](rec, id); got != 0 {
		t.Fatalf("self-kill sent %d kill messages, want 0", got)
	}
	state, _ := w.player(id)
	state.mu.Lock()
	streak := state.KillStreak
	state.mu.Unlock()
	if streak != 0 {
		t.Fatalf("self-kill streak = %d, want 0", streak)
	}
}

func TestHealCapsAtMax(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)
	setHealth(t, w, id, 60, 0)

	applied, err := w.Heal(id, 100, "")
	if err != nil {
		t.Fatalf("Heal: %v", err)
	}
	if applied != 40 {
		t.Fatalf("applied = %v, want 40", applied)
	}

	// Healing at the cap is a zero no-op, repeatably.
	for i := 0; i < 3; i++ {
		applied, _ = w.Heal(id, 50, "")
		if applied != 0 {
			t.Fatalf("heal at cap applied %v, want 0", applied)
		}
	}
	if health, _ := playerHealth(t, w, id); health != 100 {
		t.Fatalf("health = %v, want 100", health)
	}
}

func TestAddArmorCapsAtMax(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	applied, _ := w.AddArmor(id, 80)
	if applied != 80 {
		t.Fatalf("applied = %v, want 80", applied)
	}
	applied, _ = w.AddArmor(id, 80)
	if applied != 20 {
		t.Fatalf("second application = %v, want 20 (cap)", applied)
	}
	if _, armor := playerHealth(t, w, id); armor != 100 {
		t.Fatalf("armor = %v, want 100", armor)
	}
}

func TestDeadPlayersCannotHealOrAct(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	w.ApplyDamage(id, DamageEvent{Amount: 500, Kind: SourceStorm}, now)

	applied, _ := w.Heal(id, 50, "")
	if applied != 0 {
		t.Fatalf("dead player healed %v", applied)
	}
	if err := w.StartUseItem(id, "medkit", now); err != nil {
		t.Fatalf("StartUseItem: %v", err)
	}
	state, _ := w.player(id)
	state.mu.Lock()
	channeling := state.activeUse != nil
	state.mu.Unlock()
	if channeling {
		t.Fatal("dead player started an item use")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	w.ApplyDamage(id, DamageEvent{Amount: 500, Kind: SourceStorm}, now)
	if err := w.Reset(id); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	health, armor := playerHealth(t, w, id)
	if health != 100 || armor != 0 {
		t.Fatalf("pools after reset = %v/%v, want 100/0", health, armor)
	}
	state, _ := w.player(id)
	state.mu.Lock()
	alive := state.alive
	magazine := state.magazines["rifle"]
	state.mu.Unlock()
	if !alive {
		t.Fatal("player not alive after reset")
	}
	if magazine != 30 {
		t.Fatalf("rifle magazine = %d, want 30", magazine)
	}
}

func TestDamageLedger(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	attacker := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	target := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)
	setHealth(t, w, target, 100, 50)

	w.ApplyDamage(target, DamageEvent{Amount: 40, SourceID: attacker, Kind: SourceWeapon}, now)

	dealt, _, err := w.DamageLedger(attacker)
	if err != nil {
		t.Fatalf("DamageLedger: %v", err)
	}
	if dealt != 40 {
		t.Fatalf("dealt = %v, want 40", dealt)
	}
	_, taken, _ := w.DamageLedger(target)
	if taken != 40 {
		t.Fatalf("taken = %v, want 40", taken)
	}
}

func TestCreatureAttackDamagesPlayer(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	id := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)
	raptor := w.SpawnCreature("raptor", Vec3{X: 102, Y: 0, Z: 100}, 150)

	outcome, err := w.CreatureAttack(raptor, id, 25, now)
	if err != nil {
		t.Fatalf("CreatureAttack: %v", err)
	}
	if outcome.ActualDamage != 25 {
		t.Fatalf("damage = %v, want 25", outcome.ActualDamage)
	}

	// A creature kill leaves no player credit behind.
	w.CreatureAttack(raptor, id, 500, now)
	state, _ := w.player(id)
	state.mu.Lock()
	alive := state.alive
	state.mu.Unlock()
	if alive {
		t.Fatal("player survived lethal creature damage")
	}
}
