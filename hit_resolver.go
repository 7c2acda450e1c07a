package server

import (
	"math"
	"sort"
	"strings"
)

// TargetKind distinguishes what a ray or blast found.
type TargetKind string

const (
	TargetPlayer      TargetKind = "player"
	TargetCreature    TargetKind = "creature"
	TargetEnvironment TargetKind = "environment"
)

// Surface materials reported on environment hits.
const (
	materialTerrain  = "terrain"
	materialBoundary = "boundary"
)

// SceneHit is the nearest thing a cast ray struck. Normal and Material are
// set only for environment hits.
type SceneHit struct {
	TargetID string
	Kind     TargetKind
	Region   string
	Point    Vec3
	Distance float64
	Normal   Vec3
	Material string
}

// RadialTarget is an entity caught inside a blast radius.
type RadialTarget struct {
	ID       string
	Kind     TargetKind
	Distance float64
}

// SceneQuery answers spatial questions against the authoritative world. The
// default implementation walks the live combat records; a physics-backed
// scene can be swapped in via SetScene.
type SceneQuery interface {
	// CastRay returns the nearest entity struck within maxRange,
	// excluding the shooter. The zero SceneHit and false mean a miss.
	CastRay(origin, direction Vec3, maxRange float64, excludeID string) (SceneHit, bool)
	// EntitiesInRadius lists living entities whose center lies within
	// radius of the blast point, nearest first.
	EntitiesInRadius(center Vec3, radius float64) []RadialTarget
}

// isHeadshotRegion reports whether a hit region qualifies for the headshot
// multiplier. Region names come from the scene and are matched loosely.
func isHeadshotRegion(region string) bool {
	switch strings.ToLower(region) {
	case "head", "face":
		return true
	}
	return false
}

// aabb is an axis-aligned box, min corner to max corner.
type aabb struct {
	min, max Vec3
}

// rayIntersect runs the slab test and returns the entry distance along a
// unit-length direction. Rays starting inside the box hit at distance zero.
func (b aabb) rayIntersect(origin, dir Vec3) (float64, bool) {
	tMin := math.Inf(-1)
	tMax := math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		o := origin.component(axis)
		d := dir.component(axis)
		lo := b.min.component(axis)
		hi := b.max.component(axis)
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	if tMax < 0 {
		return 0, false
	}
	return math.Max(tMin, 0), true
}

// rayExit returns the distance at which a ray leaves the box and the axis of
// the face it exits through. Rays are assumed to start inside or on the box.
func (b aabb) rayExit(origin, dir Vec3) (float64, int, bool) {
	tMax := math.Inf(1)
	exitAxis := -1
	for axis := 0; axis < 3; axis++ {
		o := origin.component(axis)
		d := dir.component(axis)
		lo := b.min.component(axis)
		hi := b.max.component(axis)
		if d == 0 {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t2 < tMax {
			tMax = t2
			exitAxis = axis
		}
	}
	if exitAxis < 0 || tMax < 0 {
		return 0, 0, false
	}
	return tMax, exitAxis, true
}

// arenaSurface finds where a ray reaches the arena floor, walls, or ceiling.
// The floor reports as terrain; everything else as a match boundary.
func arenaSurface(origin, dir Vec3) (SceneHit, bool) {
	bounds := aabb{max: Vec3{arenaWidth, arenaHeight, arenaDepth}}
	dist, axis, ok := bounds.rayExit(origin, dir)
	if !ok {
		return SceneHit{}, false
	}
	var normal Vec3
	material := materialBoundary
	switch axis {
	case 0:
		normal = Vec3{X: -1}
		if dir.X < 0 {
			normal = Vec3{X: 1}
		}
	case 1:
		normal = Vec3{Y: -1}
		if dir.Y < 0 {
			normal = Vec3{Y: 1}
			material = materialTerrain
		}
	default:
		normal = Vec3{Z: -1}
		if dir.Z < 0 {
			normal = Vec3{Z: 1}
		}
	}
	return SceneHit{
		Kind:     TargetEnvironment,
		Point:    origin.Add(dir.Scale(dist)),
		Distance: dist,
		Normal:   normal,
		Material: material,
	}, true
}

// playerBoxes derives the body and head hitboxes from a feet-anchored
// position. Y is up.
func playerBoxes(pos Vec3) (body, head aabb) {
	body = aabb{
		min: Vec3{pos.X - playerHalfWidth, pos.Y, pos.Z - playerHalfWidth},
		max: Vec3{pos.X + playerHalfWidth, pos.Y + playerBodyHeight, pos.Z + playerHalfWidth},
	}
	head = aabb{
		min: Vec3{pos.X - playerHalfWidth, pos.Y + playerBodyHeight, pos.Z - playerHalfWidth},
		max: Vec3{pos.X + playerHalfWidth, pos.Y + playerBodyHeight + playerHeadHeight, pos.Z + playerHalfWidth},
	}
	return body, head
}

func creatureBox(pos Vec3) aabb {
	return aabb{
		min: Vec3{pos.X - creatureHalfWidth, pos.Y, pos.Z - creatureHalfWidth},
		max: Vec3{pos.X + creatureHalfWidth, pos.Y + creatureHeight, pos.Z + creatureHalfWidth},
	}
}

// worldScene implements SceneQuery against the world's own combat records.
type worldScene struct {
	world *World
}

func (s *worldScene) CastRay(origin, direction Vec3, maxRange float64, excludeID string) (SceneHit, bool) {
	dir := direction.Normalized()
	if dir.Length() == 0 {
		return SceneHit{}, false
	}

	best := SceneHit{Distance: math.Inf(1)}
	found := false

	consider := func(id string, kind TargetKind, region string, box aabb) {
		dist, ok := box.rayIntersect(origin, dir)
		if !ok || dist > maxRange || dist >= best.Distance {
			return
		}
		best = SceneHit{
			TargetID: id,
			Kind:     kind,
			Region:   region,
			Point:    origin.Add(dir.Scale(dist)),
			Distance: dist,
		}
		found = true
	}

	for _, state := range s.world.playerList() {
		state.mu.Lock()
		alive := state.alive
		pos := state.position()
		id := state.ID
		state.mu.Unlock()
		if !alive || id == excludeID {
			continue
		}
		body, headBox := playerBoxes(pos)
		// Head first so a ray clipping both boxes at the seam credits
		// the smaller target.
		consider(id, TargetPlayer, "head", headBox)
		consider(id, TargetPlayer, "body", body)
	}

	for _, state := range s.world.creatureList() {
		state.mu.Lock()
		alive := state.alive
		pos := state.position()
		id := state.ID
		state.mu.Unlock()
		if !alive || id == excludeID {
			continue
		}
		consider(id, TargetCreature, "body", creatureBox(pos))
	}

	// Arena geometry backstops the ray: a round that reaches the floor or
	// a wall before any entity is a classified environment hit.
	if surface, ok := arenaSurface(origin, dir); ok && surface.Distance <= maxRange && surface.Distance < best.Distance {
		return surface, true
	}

	if !found {
		return SceneHit{}, false
	}
	return best, true
}

func (s *worldScene) EntitiesInRadius(center Vec3, radius float64) []RadialTarget {
	var targets []RadialTarget

	for _, state := range s.world.playerList() {
		state.mu.Lock()
		alive := state.alive
		pos := state.position()
		id := state.ID
		state.mu.Unlock()
		if !alive {
			continue
		}
		centerOfMass := Vec3{pos.X, pos.Y + playerBodyHeight/2, pos.Z}
		if dist := center.DistanceTo(centerOfMass); dist <= radius {
			targets = append(targets, RadialTarget{ID: id, Kind: TargetPlayer, Distance: dist})
		}
	}

	for _, state := range s.world.creatureList() {
		state.mu.Lock()
		alive := state.alive
		pos := state.position()
		id := state.ID
		state.mu.Unlock()
		if !alive {
			continue
		}
		centerOfMass := Vec3{pos.X, pos.Y + creatureHeight/2, pos.Z}
		if dist := center.DistanceTo(centerOfMass); dist <= radius {
			targets = append(targets, RadialTarget{ID: id, Kind: TargetCreature, Distance: dist})
		}
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Distance < targets[j].Distance })
	return targets
}

// PlacePlayer teleports a player to an authoritative position (spawn
// placement, admin tooling).
func (w *World) PlacePlayer(playerID string, pos Vec3) error {
	state, ok := w.player(playerID)
	if !ok {
		return ErrUnknownPlayer
	}
	if !pos.finite() {
		return nil
	}
	state.mu.Lock()
	state.setPosition(pos)
	state.mu.Unlock()
	return nil
}
