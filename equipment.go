package server

import (
	"fmt"
	"math"
	"time"

	"primal-royale/server/gear"
)

// pendingBlast is a thrown explosive waiting out its fuse. Fuses advance on
// the world tick; there are no timer callbacks to race against.
type pendingBlast struct {
	id          string
	ownerID     string
	weapon      *gear.Weapon
	position    Vec3
	detonatesAt time.Time
}

// scheduleBlast commits a throwable at its landing point. The landing point
// is the throw direction capped at the weapon's range; trajectory simulation
// is the movement layer's business.
func (w *World) scheduleBlast(ownerID string, weapon *gear.Weapon, origin, direction Vec3, now time.Time) {
	landing := origin.Add(direction.Normalized().Scale(weapon.Range))
	landing.X = math.Max(0, math.Min(arenaWidth, landing.X))
	landing.Y = math.Max(0, math.Min(arenaHeight, landing.Y))
	landing.Z = math.Max(0, math.Min(arenaDepth, landing.Z))

	blast := &pendingBlast{
		id:          fmt.Sprintf("blast-%d", w.nextBlastID.Add(1)),
		ownerID:     ownerID,
		weapon:      weapon,
		position:    landing,
		detonatesAt: now.Add(weapon.Fuse()),
	}
	w.blastMu.Lock()
	w.blasts = append(w.blasts, blast)
	w.blastMu.Unlock()
}

// advanceBlasts detonates every fuse that has run out. Called from the world
// tick with no locks held.
func (w *World) advanceBlasts(now time.Time) {
	w.blastMu.Lock()
	var due []*pendingBlast
	remaining := w.blasts[:0]
	for _, blast := range w.blasts {
		if now.Before(blast.detonatesAt) {
			remaining = append(remaining, blast)
			continue
		}
		due = append(due, blast)
	}
	w.blasts = remaining
	w.blastMu.Unlock()

	for _, blast := range due {
		w.detonate(blast, now)
	}
}

// detonate applies radial damage around the blast point. The thrower takes
// their own splash; there is no friendly-fire exemption in a battle royale.
func (w *World) detonate(blast *pendingBlast, now time.Time) {
	w.notifier.Broadcast(BlastMessage{
		Type:     msgBlast,
		WeaponID: blast.weapon.ID,
		X:        blast.position.X,
		Y:        blast.position.Y,
		Z:        blast.position.Z,
		Radius:   blast.weapon.EffectRadius,
	})

	for _, target := range w.scene.EntitiesInRadius(blast.position, blast.weapon.EffectRadius) {
		amount := radialDamage(blast.weapon, target.Distance)
		if amount <= 0 {
			continue
		}
		ev := DamageEvent{
			Amount:   amount,
			SourceID: blast.ownerID,
			Kind:     SourceWeapon,
			WeaponID: blast.weapon.ID,
			Position: &blast.position,
			TraceID:  blast.id,
		}
		if target.Kind == TargetCreature {
			_, _ = w.DamageCreature(target.ID, ev)
			continue
		}
		_, _ = w.ApplyDamage(target.ID, ev, now)
	}
}
