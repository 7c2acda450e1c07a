package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub owns the live WebSocket subscribers and drives the world's tick loop.
// It implements Notifier so the world can push combat feedback without
// knowing about connections.
type Hub struct {
	world *World

	mu          sync.Mutex
	subscribers map[string]*subscriber

	tickRate int
	logger   *log.Logger
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewHub wires a hub around a world and registers itself as the world's
// notifier.
func NewHub(world *World, tickRate int, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	if tickRate <= 0 {
		tickRate = 15
	}
	h := &Hub{
		world:       world,
		subscribers: make(map[string]*subscriber),
		tickRate:    tickRate,
		logger:      logger,
	}
	world.SetNotifier(h)
	return h
}

// Join registers a new player and returns the latest snapshot.
func (h *Hub) Join() joinResponse {
	playerID := h.world.AddPlayer(time.Now())
	players := h.world.Snapshot()
	go h.broadcastState(players)
	return joinResponse{Ver: ProtocolVersion, ID: playerID, Players: players}
}

// Subscribe associates a WebSocket connection with an existing player.
func (h *Hub) Subscribe(playerID string, conn *websocket.Conn) (*subscriber, bool) {
	if _, ok := h.world.player(playerID); !ok {
		return nil, false
	}
	h.world.UpdateHeartbeat(playerID, time.Now(), 0)

	h.mu.Lock()
	if existing, ok := h.subscribers[playerID]; ok {
		existing.conn.Close()
	}
	sub := &subscriber{conn: conn}
	h.subscribers[playerID] = sub
	h.mu.Unlock()
	return sub, true
}

// Disconnect removes a player and closes any active subscriber connection.
func (h *Hub) Disconnect(playerID string) {
	h.mu.Lock()
	sub, ok := h.subscribers[playerID]
	if ok {
		delete(h.subscribers, playerID)
	}
	h.mu.Unlock()

	if ok {
		sub.conn.Close()
	}
	h.world.RemovePlayer(playerID)
}

func (h *Hub) subscriber(playerID string) (*subscriber, bool) {
	h.mu.Lock()
	sub, ok := h.subscribers[playerID]
	h.mu.Unlock()
	return sub, ok
}

func (sub *subscriber) write(data []byte) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sub.conn.WriteMessage(websocket.TextMessage, data)
}

// SendTo implements Notifier for per-player combat feedback. Delivery is best
// effort; a dead connection is reaped here rather than stalling combat.
func (h *Hub) SendTo(playerID string, message any) {
	sub, ok := h.subscriber(playerID)
	if !ok {
		return
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Printf("failed to marshal message for %s: %v", playerID, err)
		return
	}
	if err := sub.write(data); err != nil {
		h.logger.Printf("failed to send to %s: %v", playerID, err)
		h.Disconnect(playerID)
	}
}

// Broadcast implements Notifier for world-visible events.
func (h *Hub) Broadcast(message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Printf("failed to marshal broadcast: %v", err)
		return
	}
	h.writeAll(data)
}

func (h *Hub) writeAll(data []byte) {
	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.write(data); err != nil {
			h.logger.Printf("failed to send update to %s: %v", id, err)
			h.Disconnect(id)
		}
	}
}

// broadcastState sends the latest world snapshot to every subscriber.
func (h *Hub) broadcastState(players []Player) {
	if players == nil {
		players = h.world.Snapshot()
	}
	msg := stateMessage{
		Ver:        ProtocolVersion,
		Type:       msgState,
		Players:    players,
		Creatures:  h.world.CreatureSnapshot(),
		Tick:       h.world.Tick(),
		ServerTime: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("failed to marshal state message: %v", err)
		return
	}
	h.writeAll(data)
}

// RunSimulation drives the fixed-rate tick loop until the stop channel closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(h.tickRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(h.tickRate)
			}
			last = now

			timedOut := h.world.Advance(now, dt)
			for _, id := range timedOut {
				h.logger.Printf("disconnecting %s due to heartbeat timeout", id)
				h.Disconnect(id)
			}
			h.broadcastState(nil)
		}
	}
}

// readLoop consumes one connection's requests until it drops. Malformed and
// unknown frames are discarded; the connection stays up.
func (h *Hub) readLoop(playerID string, conn *websocket.Conn) {
	defer h.Disconnect(playerID)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		req, err := decodeClientRequest(payload)
		if err != nil {
			h.logger.Printf("discarding request from %s: %v", playerID, err)
			continue
		}
		h.dispatch(playerID, req, time.Now())
	}
}

// dispatch routes a decoded request into the world.
func (h *Hub) dispatch(playerID string, req any, now time.Time) {
	switch msg := req.(type) {
	case FireWeaponRequest:
		h.world.HandleFire(playerID, msg, now)
	case ReloadWeaponRequest:
		h.world.HandleReload(playerID, msg, now)
	case StartUseItemRequest:
		if err := h.world.StartUseItem(playerID, msg.ItemID, now); err != nil {
			h.logger.Printf("useItem rejected for %s: %v", playerID, err)
		}
	case CancelUseItemRequest:
		_ = h.world.CancelUseItem(playerID)
	case MeleeRequest:
		h.world.HandleMelee(playerID, msg, now)
	case MoveRequest:
		if !h.world.UpdateIntent(playerID, msg.DX, msg.DY, msg.DZ) {
			h.logger.Printf("move ignored for unknown player %s", playerID)
		}
	case HeartbeatRequest:
		rtt, ok := h.world.UpdateHeartbeat(playerID, now, msg.SentAt)
		if !ok {
			return
		}
		h.SendTo(playerID, heartbeatMessage{
			Type:       msgHeartbeat,
			ServerTime: now.UnixMilli(),
			ClientTime: msg.SentAt,
			RTTMillis:  rtt.Milliseconds(),
		})
	}
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsPlayer {
	states := h.world.playerList()
	players := make([]diagnosticsPlayer, 0, len(states))
	for _, state := range states {
		state.mu.Lock()
		players = append(players, diagnosticsPlayer{
			ID:            state.ID,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
		})
		state.mu.Unlock()
	}
	return players
}
