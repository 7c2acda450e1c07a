package server

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	arenaWidth  = 1000.0 // X extent
	arenaDepth  = 1000.0 // Z extent
	arenaHeight = 120.0

	baseMoveSpeed = 6.0 // distance units per second

	defaultSpawnX = arenaWidth / 2
	defaultSpawnY = 0.0
	defaultSpawnZ = arenaDepth / 2

	// Player collision volume used by the built-in scene query. The head
	// box sits on top of the body box so ray hits can be classified by
	// region without a full skeleton.
	playerHalfWidth  = 0.45
	playerBodyHeight = 1.5
	playerHeadHeight = 0.3

	creatureHalfWidth = 1.2
	creatureHeight    = 2.4

	// Extra reach granted to melee range checks so a target moving away
	// between the swing and the server receiving it still connects.
	meleeReachSlack = 1.5

	defaultMeleeWeaponID = "machete"
)
