package server

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound requests form a closed set: each wire message name maps to exactly
// one struct below, and anything that does not parse into its schema is
// rejected at the boundary.

var errUnknownRequest = errors.New("unknown request type")

type FireWeaponRequest struct {
	WeaponID  string `json:"weaponId"`
	Origin    Vec3   `json:"origin"`
	Direction Vec3   `json:"direction"`
}

type ReloadWeaponRequest struct {
	WeaponID string `json:"weaponId"`
}

type StartUseItemRequest struct {
	ItemID string `json:"itemId"`
}

type CancelUseItemRequest struct{}

type MeleeRequest struct {
	TargetID string `json:"targetId"`
}

type MoveRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	DZ float64 `json:"dz"`
}

type HeartbeatRequest struct {
	SentAt int64 `json:"sentAt"`
}

type requestEnvelope struct {
	Type string `json:"type"`
}

// decodeClientRequest parses a raw client frame into one of the typed request
// structs. Malformed frames and unknown types return an error; callers drop
// them silently after logging.
func decodeClientRequest(payload []byte) (any, error) {
	var envelope requestEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}

	switch envelope.Type {
	case "fire":
		var req FireWeaponRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("malformed fire request: %w", err)
		}
		if req.WeaponID == "" || !req.Origin.finite() || !req.Direction.finite() {
			return nil, errors.New("fire request fails schema")
		}
		return req, nil
	case "reload":
		var req ReloadWeaponRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("malformed reload request: %w", err)
		}
		if req.WeaponID == "" {
			return nil, errors.New("reload request fails schema")
		}
		return req, nil
	case "useItem":
		var req StartUseItemRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("malformed useItem request: %w", err)
		}
		if req.ItemID == "" {
			return nil, errors.New("useItem request fails schema")
		}
		return req, nil
	case "cancelUse":
		return CancelUseItemRequest{}, nil
	case "melee":
		var req MeleeRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("malformed melee request: %w", err)
		}
		if req.TargetID == "" {
			return nil, errors.New("melee request fails schema")
		}
		return req, nil
	case "move":
		var req MoveRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("malformed move request: %w", err)
		}
		if !(Vec3{req.DX, req.DY, req.DZ}).finite() {
			return nil, errors.New("move request fails schema")
		}
		return req, nil
	case "heartbeat":
		var req HeartbeatRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("malformed heartbeat request: %w", err)
		}
		return req, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownRequest, envelope.Type)
	}
}

// Outbound notifications. Every struct carries its wire type so subscribers
// can dispatch without inspecting shape.

type DamageTakenMessage struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	ArmorDamage float64 `json:"armorDamage"`
	Health      float64 `json:"health"`
	Armor       float64 `json:"armor"`
	SourceID    string  `json:"sourceId,omitempty"`
	SourceType  string  `json:"sourceType"`
	Headshot    bool    `json:"isHeadshot"`
	Critical    bool    `json:"isCritical"`
}

type DamageDealtMessage struct {
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	TargetID     string  `json:"targetId"`
	Headshot     bool    `json:"isHeadshot"`
	Critical     bool    `json:"isCritical"`
	TargetHealth float64 `json:"targetHealth"`
}

type HitConfirmMessage struct {
	Type     string `json:"type"`
	Headshot bool   `json:"isHeadshot"`
	Kill     bool   `json:"isKill"`
}

type KillMessage struct {
	Type       string `json:"type"`
	VictimID   string `json:"victimId"`
	KillStreak int    `json:"killStreak"`
}

type AssistMessage struct {
	Type     string `json:"type"`
	VictimID string `json:"victimId"`
}

type HealthUpdateMessage struct {
	Type      string  `json:"type"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
	Armor     float64 `json:"armor"`
	MaxArmor  float64 `json:"maxArmor"`
}

type UseCompletedMessage struct {
	Type        string  `json:"type"`
	ItemID      string  `json:"itemId"`
	HealAmount  float64 `json:"healAmount"`
	ArmorAmount float64 `json:"armorAmount"`
}

type BuffAppliedMessage struct {
	Type       string  `json:"type"`
	BuffType   string  `json:"buffType"`
	Value      float64 `json:"value"`
	DurationMs int64   `json:"duration"`
}

type BuffExpiredMessage struct {
	Type     string `json:"type"`
	BuffType string `json:"buffType"`
}

type BlastMessage struct {
	Type     string  `json:"type"`
	WeaponID string  `json:"weaponId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Radius   float64 `json:"radius"`
}

type ReloadCompletedMessage struct {
	Type     string `json:"type"`
	WeaponID string `json:"weaponId"`
	Magazine int    `json:"magazine"`
	Reserve  int    `json:"reserve"`
}

const (
	msgDamageTaken     = "damageTaken"
	msgDamageDealt     = "damageDealt"
	msgHitConfirm      = "hitConfirm"
	msgKill            = "kill"
	msgAssist          = "assist"
	msgHealthUpdate    = "healthUpdate"
	msgUseCompleted    = "useCompleted"
	msgBuffApplied     = "buffApplied"
	msgBuffExpired     = "buffExpired"
	msgBlast           = "blast"
	msgReloadCompleted = "reloadCompleted"
	msgState           = "state"
	msgHeartbeat       = "heartbeat"
)

type stateMessage struct {
	Ver        int        `json:"ver"`
	Type       string     `json:"type"`
	Players    []Player   `json:"players"`
	Creatures  []Creature `json:"creatures,omitempty"`
	Tick       uint64     `json:"t"`
	ServerTime int64      `json:"serverTime"`
}

type joinResponse struct {
	Ver     int      `json:"ver"`
	ID      string   `json:"id"`
	Players []Player `json:"players"`
}

type heartbeatMessage struct {
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

type diagnosticsPlayer struct {
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
}
