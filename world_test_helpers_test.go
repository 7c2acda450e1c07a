package server

import (
	"sync"
	"testing"
	"time"

	"primal-royale/server/gear"
	"primal-royale/server/internal/config"
)

// newTestWorld builds a world with the default balance tables, crits
// disabled, and a recording notifier installed.
func newTestWorld(t *testing.T) (*World, *recordingNotifier) {
	t.Helper()
	w := NewWorld(config.Default(), gear.Default(), nil)
	w.critRoll = func() float64 { return 1 }
	rec := &recordingNotifier{sent: make(map[string][]any)}
	w.SetNotifier(rec)
	return w, rec
}

// addTestPlayer joins a player and pins them to a known position.
func addTestPlayer(t *testing.T, w *World, pos Vec3, now time.Time) string {
	t.Helper()
	id := w.AddPlayer(now)
	if err := w.PlacePlayer(id, pos); err != nil {
		t.Fatalf("PlacePlayer(%s): %v", id, err)
	}
	return id
}

// setHealth force-sets a player's pools for scenario setup.
func setHealth(t *testing.T, w *World, id string, health, armor float64) {
	t.Helper()
	state, ok := w.player(id)
	if !ok {
		t.Fatalf("unknown player %s", id)
	}
	state.mu.Lock()
	state.Health = health
	state.Armor = armor
	state.mu.Unlock()
}

func playerHealth(t *testing.T, w *World, id string) (health, armor float64) {
	t.Helper()
	state, ok := w.player(id)
	if !ok {
		t.Fatalf("unknown player %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.Health, state.Armor
}

// recordingNotifier captures outbound messages for assertions.
type recordingNotifier struct {
	mu         sync.Mutex
	sent       map[string][]any
	broadcasts []any
}

func (r *recordingNotifier) SendTo(playerID string, message any) {
	r.mu.Lock()
	r.sent[playerID] = append(r.sent[playerID], message)
	r.mu.Unlock()
}

func (r *recordingNotifier) Broadcast(message any) {
	r.mu.Lock()
	r.broadcasts = append(r.broadcasts, message)
	r.mu.Unlock()
}

func (r *recordingNotifier) messagesFor(playerID string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.sent[playerID]))
	copy(out, r.sent[playerID])
	return out
}

// firstMessage returns the first message of type T sent to a player.
func firstMessage[T any](r *recordingNotifier, playerID string) (T, bool) {
	for _, msg := range r.messagesFor(playerID) {
		if typed, ok := msg.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

func countMessages[T any](r *recordingNotifier, playerID string) int {
	count := 0
	for _, msg := range r.messagesFor(playerID) {
		if _, ok := msg.(T); ok {
			count++
		}
	}
	return count
}
