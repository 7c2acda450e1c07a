package server

import (
	"sync"
	"time"

	"primal-royale/server/gear"
)

// Player is the wire-visible snapshot of a combatant.
type Player struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Health     float64 `json:"health"`
	MaxHealth  float64 `json:"maxHealth"`
	Armor      float64 `json:"armor"`
	MaxArmor   float64 `json:"maxArmor"`
	KillStreak int     `json:"killStreak"`
}

// playerState is the authoritative per-player combat record. Every field is
// guarded by mu; the owning World takes at most one player lock at a time, so
// cross-player flows can never deadlock.
type playerState struct {
	mu sync.Mutex
	Player

	alive  bool
	intent Vec3 // latest movement input, unit-length or zero

	moveSpeed float64 // effective speed after buffs

	lastDamageTime   time.Time
	lastDamageSource string
	damageDealt      float64
	damageTaken      float64
	assists          map[string]float64

	// fireWindows holds the last accepted fire timestamps per weapon,
	// newest last, capped at the anti-cheat window size.
	fireWindows map[string][]time.Time
	cooldowns   map[string]time.Time
	stacks      map[string]int
	magazines   map[string]int

	activeUse  *activeUse
	activeHeal *activeHeal
	reload     *activeReload
	buffs      map[gear.BuffType]*activeBuff

	lastHeartbeat time.Time
	lastRTT       time.Duration
}

func newPlayerState(id string, now time.Time, maxHealth, maxArmor float64) *playerState {
	state := &playerState{
		Player: Player{
			ID:        id,
			X:         defaultSpawnX,
			Y:         defaultSpawnY,
			Z:         defaultSpawnZ,
			Health:    maxHealth,
			MaxHealth: maxHealth,
			MaxArmor:  maxArmor,
		},
		alive:         true,
		moveSpeed:     baseMoveSpeed,
		assists:       make(map[string]float64),
		fireWindows:   make(map[string][]time.Time),
		cooldowns:     make(map[string]time.Time),
		stacks:        make(map[string]int),
		magazines:     make(map[string]int),
		buffs:         make(map[gear.BuffType]*activeBuff),
		lastHeartbeat: now,
	}
	return state
}

func (s *playerState) position() Vec3 {
	return Vec3{s.X, s.Y, s.Z}
}

func (s *playerState) setPosition(pos Vec3) {
	s.X, s.Y, s.Z = pos.X, pos.Y, pos.Z
}

func (s *playerState) snapshot() Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Player
}

// resetLocked restores match-start defaults. Callers must hold mu.
func (s *playerState) resetLocked(maxHealth, maxArmor float64) {
	s.Health = maxHealth
	s.MaxHealth = maxHealth
	s.Armor = 0
	s.MaxArmor = maxArmor
	s.KillStreak = 0
	s.alive = true
	s.lastDamageTime = time.Time{}
	s.lastDamageSource = ""
	s.damageDealt = 0
	s.damageTaken = 0
	s.assists = make(map[string]float64)
	s.fireWindows = make(map[string][]time.Time)
	s.cooldowns = make(map[string]time.Time)
	s.activeUse = nil
	s.activeHeal = nil
	s.reload = nil
	s.buffs = make(map[gear.BuffType]*activeBuff)
	s.moveSpeed = baseMoveSpeed
}

// damageMultiplierLocked folds active damage buffs into outgoing weapon
// damage. Callers must hold mu.
func (s *playerState) damageMultiplierLocked(now time.Time) float64 {
	mult := 1.0
	for _, buff := range s.buffs {
		if buff.kind != gear.BuffDamage {
			continue
		}
		if now.Before(buff.endsAt) {
			mult *= buff.value
		}
	}
	return mult
}
