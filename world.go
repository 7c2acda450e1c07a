package server

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"primal-royale/server/gear"
	"primal-royale/server/internal/config"
	"primal-royale/server/logging"
)

var ErrUnknownPlayer = errors.New("unknown player")

// AmmoPool is the inventory collaborator this core consumes. The real
// implementation lives with inventory storage; UnlimitedAmmo serves tests and
// local play.
type AmmoPool interface {
	GetReserveAmmo(playerID, ammoType string) int
	ConsumeAmmo(playerID, ammoType string, amount int) bool
}

// UnlimitedAmmo never runs dry.
type UnlimitedAmmo struct{}

func (UnlimitedAmmo) GetReserveAmmo(string, string) int    { return math.MaxInt32 }
func (UnlimitedAmmo) ConsumeAmmo(string, string, int) bool { return true }

// MovementSampler reports the magnitude of a player's current movement input,
// used to interrupt item uses that forbid moving. The World samples its own
// movement intents by default.
type MovementSampler interface {
	InputMagnitude(playerID string) float64
}

// Notifier delivers outbound notifications. The Hub implements it; a nop
// implementation keeps the World usable in isolation.
type Notifier interface {
	SendTo(playerID string, message any)
	Broadcast(message any)
}

type nopNotifier struct{}

func (nopNotifier) SendTo(string, any) {}
func (nopNotifier) Broadcast(any)      {}

// World owns every authoritative combat record. Map membership is guarded by
// mu; each player/creature record carries its own lock, and no code path ever
// holds two record locks at once.
type World struct {
	mu        sync.RWMutex
	players   map[string]*playerState
	creatures map[string]*creatureState

	blastMu sync.Mutex
	blasts  []*pendingBlast

	catalog  *gear.Catalog
	scene    SceneQuery
	ammo     AmmoPool
	movement MovementSampler
	notifier Notifier

	combat    config.CombatConfig
	anticheat config.AntiCheatConfig
	healing   config.HealingConfig

	publisher logging.Publisher
	critRoll  func() float64

	currentTick    atomic.Uint64
	nextPlayerID   atomic.Uint64
	nextCreatureID atomic.Uint64
	nextBlastID    atomic.Uint64

	lastHealAdvance time.Time
}

// NewWorld constructs an empty world. A nil publisher or notifier falls back
// to no-ops so tests can construct worlds with only what they exercise.
func NewWorld(cfg config.Config, catalog *gear.Catalog, publisher logging.Publisher) *World {
	if catalog == nil {
		catalog = gear.Default()
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	w := &World{
		players:   make(map[string]*playerState),
		creatures: make(map[string]*creatureState),
		catalog:   catalog,
		ammo:      UnlimitedAmmo{},
		notifier:  nopNotifier{},
		combat:    cfg.Combat,
		anticheat: cfg.AntiCheat,
		healing:   cfg.Healing,
		publisher: publisher,
		critRoll:  rng.Float64,
	}
	w.scene = &worldScene{world: w}
	w.movement = w
	return w
}

// SetNotifier wires the outbound transport. Must be called before traffic.
func (w *World) SetNotifier(n Notifier) {
	if w == nil || n == nil {
		return
	}
	w.notifier = n
}

// SetScene swaps the scene-query collaborator (e.g. a richer physics world).
func (w *World) SetScene(scene SceneQuery) {
	if w == nil || scene == nil {
		return
	}
	w.scene = scene
}

// SetAmmoPool wires the inventory collaborator.
func (w *World) SetAmmoPool(pool AmmoPool) {
	if w == nil || pool == nil {
		return
	}
	w.ammo = pool
}

func (w *World) Tick() uint64 {
	return w.currentTick.Load()
}

// AddPlayer creates a fresh combat record and returns its id.
func (w *World) AddPlayer(now time.Time) string {
	id := fmt.Sprintf("player-%d", w.nextPlayerID.Add(1))
	state := newPlayerState(id, now, w.combat.MaxHealth, w.combat.MaxArmor)
	w.seedLoadout(state)

	w.mu.Lock()
	w.players[id] = state
	w.mu.Unlock()
	return id
}

// seedLoadout grants the default drop-in kit. Inventory progression is the
// lobby's business; this is just enough state to exercise every weapon class.
func (w *World) seedLoadout(state *playerState) {
	for _, def := range w.catalog.Weapons() {
		if def.MagazineSize > 0 {
			state.magazines[def.ID] = def.MagazineSize
		}
		if def.Class == gear.ClassThrowable && def.StackLimit > 0 {
			state.stacks[def.ID] = def.StackLimit
		}
	}
	for _, def := range w.catalog.Items() {
		if def.StackLimit > 0 {
			state.stacks[def.ID] = def.StackLimit
		}
	}
}

// RemovePlayer destroys the record on disconnect.
func (w *World) RemovePlayer(playerID string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	delete(w.players, playerID)
	w.mu.Unlock()
}

func (w *World) player(id string) (*playerState, bool) {
	w.mu.RLock()
	state, ok := w.players[id]
	w.mu.RUnlock()
	return state, ok
}

func (w *World) playerList() []*playerState {
	w.mu.RLock()
	out := make([]*playerState, 0, len(w.players))
	for _, state := range w.players {
		out = append(out, state)
	}
	w.mu.RUnlock()
	return out
}

// Snapshot returns wire-visible copies of every player, for state broadcasts.
func (w *World) Snapshot() []Player {
	states := w.playerList()
	players := make([]Player, 0, len(states))
	for _, state := range states {
		players = append(players, state.snapshot())
	}
	return players
}

func (w *World) CreatureSnapshot() []Creature {
	states := w.creatureList()
	creatures := make([]Creature, 0, len(states))
	for _, state := range states {
		creatures = append(creatures, state.snapshot())
	}
	return creatures
}

// UpdateIntent records a player's movement input. The vector is normalized
// server-side; clients cannot buy speed by inflating it.
func (w *World) UpdateIntent(playerID string, dx, dy, dz float64) bool {
	state, ok := w.player(playerID)
	if !ok {
		return false
	}
	v := Vec3{dx, dy, dz}
	if !v.finite() {
		return false
	}
	if length := v.Length(); length > 1 {
		v = v.Scale(1 / length)
	}
	state.mu.Lock()
	state.intent = v
	state.mu.Unlock()
	return true
}

// InputMagnitude implements MovementSampler against the world's own intents.
func (w *World) InputMagnitude(playerID string) float64 {
	state, ok := w.player(playerID)
	if !ok {
		return 0
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.intent.Length()
}

// UpdateHeartbeat refreshes liveness metadata and returns the measured RTT.
func (w *World) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	state, ok := w.player(playerID)
	if !ok {
		return 0, false
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	state.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}
	return state.lastRTT, true
}

// Advance runs one simulation tick: movement integration, timed combat
// effects, and fused blasts. It returns ids of players whose heartbeat has
// lapsed so the hub can drop their connections.
func (w *World) Advance(now time.Time, dt float64) []string {
	if w == nil || dt <= 0 {
		return nil
	}
	w.currentTick.Add(1)

	var timedOut []string
	for _, state := range w.playerList() {
		state.mu.Lock()
		if now.Sub(state.lastHeartbeat) > disconnectAfter {
			timedOut = append(timedOut, state.ID)
			state.mu.Unlock()
			continue
		}
		w.integrateMovementLocked(state, dt)
		state.mu.Unlock()
	}

	w.advanceHealing(now)
	w.advanceBlasts(now)

	for _, id := range timedOut {
		w.RemovePlayer(id)
	}
	return timedOut
}

// integrateMovementLocked applies the current intent. Callers hold state.mu.
func (w *World) integrateMovementLocked(state *playerState, dt float64) {
	if !state.alive {
		return
	}
	if state.intent.X == 0 && state.intent.Y == 0 && state.intent.Z == 0 {
		return
	}
	pos := state.position().Add(state.intent.Scale(state.moveSpeed * dt))
	pos.X = math.Max(playerHalfWidth, math.Min(arenaWidth-playerHalfWidth, pos.X))
	pos.Y = math.Max(0, math.Min(arenaHeight, pos.Y))
	pos.Z = math.Max(playerHalfWidth, math.Min(arenaDepth-playerHalfWidth, pos.Z))
	state.setPosition(pos)
}

func (w *World) entityRef(id string) logging.EntityRef {
	if id == "" {
		return logging.EntityRef{Kind: logging.EntityKindWorld}
	}
	if _, ok := w.player(id); ok {
		return logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer}
	}
	if _, ok := w.creature(id); ok {
		return logging.EntityRef{ID: id, Kind: logging.EntityKindCreature}
	}
	return logging.EntityRef{ID: id, Kind: logging.EntityKindUnknown}
}
