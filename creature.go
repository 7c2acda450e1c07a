package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"primal-royale/server/logging/combatlog"
)

// Creature is the wire-visible snapshot of an NPC dinosaur.
type Creature struct {
	ID        string  `json:"id"`
	Species   string  `json:"species"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
}

// creatureState holds the damageable side of an NPC. Behavior/AI lives
// outside this core; only the damage entry points are owned here.
type creatureState struct {
	mu sync.Mutex
	Creature
	alive bool
}

func (s *creatureState) position() Vec3 {
	return Vec3{s.X, s.Y, s.Z}
}

func (s *creatureState) snapshot() Creature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Creature
}

// SpawnCreature registers a damageable NPC and returns its id.
func (w *World) SpawnCreature(species string, pos Vec3, maxHealth float64) string {
	if w == nil {
		return ""
	}
	id := fmt.Sprintf("creature-%d", w.nextCreatureID.Add(1))
	state := &creatureState{
		Creature: Creature{
			ID:        id,
			Species:   species,
			X:         pos.X,
			Y:         pos.Y,
			Z:         pos.Z,
			Health:    maxHealth,
			MaxHealth: maxHealth,
		},
		alive: true,
	}
	w.mu.Lock()
	w.creatures[id] = state
	w.mu.Unlock()
	return state.ID
}

// RemoveCreature drops a creature from the world (despawn or death cleanup
// driven by the AI layer).
func (w *World) RemoveCreature(creatureID string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	delete(w.creatures, creatureID)
	w.mu.Unlock()
}

// CreatureAttack is the damage entry point the dinosaur AI calls when a
// creature lands a hit on a player.
func (w *World) CreatureAttack(creatureID, targetID string, amount float64, now time.Time) (DamageOutcome, error) {
	if w == nil {
		return DamageOutcome{}, ErrUnknownPlayer
	}
	return w.ApplyDamage(targetID, DamageEvent{
		Amount:   amount,
		SourceID: "", // creatures never earn kill credit
		Kind:     SourceDinosaur,
	}, now)
}

// DamageCreature applies player damage to an NPC. Creatures have no armor
// pool; the amount lands directly on health.
func (w *World) DamageCreature(creatureID string, ev DamageEvent) (DamageOutcome, error) {
	state, ok := w.creature(creatureID)
	if !ok {
		return DamageOutcome{}, ErrUnknownPlayer
	}
	amount := ev.Amount
	if amount <= 0 {
		return DamageOutcome{}, nil
	}

	state.mu.Lock()
	if !state.alive {
		health := state.Health
		state.mu.Unlock()
		return DamageOutcome{NewHealth: health}, nil
	}
	if amount > state.Health {
		amount = state.Health
	}
	state.Health -= amount
	outcome := DamageOutcome{
		ActualDamage: amount,
		NewHealth:    state.Health,
	}
	if state.Health <= 0 {
		state.Health = 0
		state.alive = false
		outcome.Kill = true
	}
	state.mu.Unlock()

	combatlog.DamageApplied(
		context.Background(),
		w.publisher,
		w.Tick(),
		w.entityRef(ev.SourceID),
		w.entityRef(creatureID),
		combatlog.DamageAppliedPayload{
			Amount:     outcome.ActualDamage,
			Health:     outcome.NewHealth,
			SourceKind: string(ev.Kind),
			Kill:       outcome.Kill,
		},
		ev.TraceID,
	)

	if ev.SourceID != "" {
		if source, ok := w.player(ev.SourceID); ok {
			source.mu.Lock()
			source.damageDealt += outcome.ActualDamage
			source.mu.Unlock()
		}
		w.notifier.SendTo(ev.SourceID, DamageDealtMessage{
			Type:         msgDamageDealt,
			Amount:       outcome.ActualDamage,
			TargetID:     creatureID,
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
	return outcome, nil
}

func (w *World) creature(id string) (*creatureState, bool) {
	w.mu.RLock()
	state, ok := w.creatures[id]
	w.mu.RUnlock()
	return state, ok
}

func (w *World) creatureList() []*creatureState {
	w.mu.RLock()
	out := make([]*creatureState, 0, len(w.creatures))
	for _, state := range w.creatures {
		out = append(out, state)
	}
	w.mu.RUnlock()
	return out
}
