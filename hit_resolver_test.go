package server

import (
	"math"
	"testing"
	"time"
)

func TestCastRayHitsBodyAndHead(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	shooter := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	target := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	tests := []struct {
		name       string
		origin     Vec3
		wantRegion string
	}{
		{"torso height", Vec3{X: 90, Y: 1.0, Z: 100}, "body"},
		{"head height", Vec3{X: 90, Y: 1.65, Z: 100}, "head"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hit, ok := w.scene.CastRay(tc.origin, Vec3{X: 1}, 300, shooter)
			if !ok {
				t.Fatal("expected a hit")
			}
			if hit.TargetID != target {
				t.Fatalf("hit %s, want %s", hit.TargetID, target)
			}
			if hit.Region != tc.wantRegion {
				t.Fatalf("region = %s, want %s", hit.Region, tc.wantRegion)
			}
			wantDist := 100 - playerHalfWidth - 90
			if math.Abs(hit.Distance-wantDist) > 1e-9 {
				t.Fatalf("distance = %v, want %v", hit.Distance, wantDist)
			}
		})
	}
}

func TestCastRayNearestTargetWins(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	shooter := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	near := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)
	addTestPlayer(t, w, Vec3{X: 110, Y: 0, Z: 100}, now)

	hit, ok := w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 300, shooter)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.TargetID != near {
		t.Fatalf("hit %s, want nearest %s", hit.TargetID, near)
	}
}

func TestCastRayRespectsRangeAndExclusion(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	shooter := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	if _, ok := w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 5, shooter); ok {
		t.Fatal("hit beyond max range")
	}
	// A ray cast from inside the shooter never hits the shooter.
	hit, ok := w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 300, shooter)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.TargetID == shooter {
		t.Fatal("ray hit its own shooter")
	}
}

func TestCastRaySkipsDeadPlayers(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	shooter := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	corpse := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)
	behind := addTestPlayer(t, w, Vec3{X: 110, Y: 0, Z: 100}, now)

	w.ApplyDamage(corpse, DamageEvent{Amount: 500, Kind: SourceStorm}, now)

	hit, ok := w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 300, shooter)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.TargetID != behind {
		t.Fatalf("hit %s, want %s behind the corpse", hit.TargetID, behind)
	}
}

func TestCastRayHitsCreatures(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	shooter := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	raptor := w.SpawnCreature("raptor", Vec3{X: 100, Y: 0, Z: 100}, 150)

	hit, ok := w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 300, shooter)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.TargetID != raptor || hit.Kind != TargetCreature {
		t.Fatalf("hit = %+v, want creature %s", hit, raptor)
	}
}

func TestCastRayClassifiesEnvironment(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	shooter := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)

	// Straight down from eye height reaches the floor.
	hit, ok := w.scene.CastRay(Vec3{X: 90, Y: 1.5, Z: 100}, Vec3{Y: -1}, 300, shooter)
	if !ok {
		t.Fatal("expected a floor hit")
	}
	if hit.Kind != TargetEnvironment || hit.Material != materialTerrain {
		t.Fatalf("hit = %+v, want terrain", hit)
	}
	if hit.Distance != 1.5 {
		t.Fatalf("floor distance = %v, want 1.5", hit.Distance)
	}
	if (hit.Normal != Vec3{Y: 1}) {
		t.Fatalf("floor normal = %+v, want up", hit.Normal)
	}

	// A long horizontal ray with nothing in the way reaches the wall.
	hit, ok = w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 2000, shooter)
	if !ok {
		t.Fatal("expected a wall hit")
	}
	if hit.Kind != TargetEnvironment || hit.Material != materialBoundary {
		t.Fatalf("hit = %+v, want boundary", hit)
	}
	if hit.Distance != arenaWidth-90 {
		t.Fatalf("wall distance = %v, want %v", hit.Distance, arenaWidth-90)
	}
	if (hit.Normal != Vec3{X: -1}) {
		t.Fatalf("wall normal = %+v, want inward", hit.Normal)
	}

	// The same ray capped short of the wall is a clean miss.
	if _, ok := w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 300, shooter); ok {
		t.Fatal("environment hit reported beyond max range")
	}
}

func TestCastRayEntityWinsOverEnvironment(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	shooter := addTestPlayer(t, w, Vec3{X: 90, Y: 0, Z: 100}, now)
	target := addTestPlayer(t, w, Vec3{X: 100, Y: 0, Z: 100}, now)

	hit, ok := w.scene.CastRay(Vec3{X: 90, Y: 1, Z: 100}, Vec3{X: 1}, 2000, shooter)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Kind != TargetPlayer || hit.TargetID != target {
		t.Fatalf("hit = %+v, want player %s in front of the wall", hit, target)
	}
}

func TestRayIntersectFromInside(t *testing.T) {
	box := aabb{min: Vec3{-1, -1, -1}, max: Vec3{1, 1, 1}}
	dist, ok := box.rayIntersect(Vec3{}, Vec3{X: 1})
	if !ok || dist != 0 {
		t.Fatalf("inside ray = (%v, %v), want (0, true)", dist, ok)
	}
	if _, ok := box.rayIntersect(Vec3{X: 5}, Vec3{X: 1}); ok {
		t.Fatal("ray pointing away intersected")
	}
}

func TestEntitiesInRadiusSortedByDistance(t *testing.T) {
	w, _ := newTestWorld(t)
	now := time.Unix(1000, 0)
	farID := addTestPlayer(t, w, Vec3{X: 106, Y: 0, Z: 100}, now)
	nearID := addTestPlayer(t, w, Vec3{X: 102, Y: 0, Z: 100}, now)
	addTestPlayer(t, w, Vec3{X: 200, Y: 0, Z: 100}, now) // outside

	targets := w.scene.EntitiesInRadius(Vec3{X: 100, Y: playerBodyHeight / 2, Z: 100}, 8)
	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}
	if targets[0].ID != nearID || targets[1].ID != farID {
		t.Fatalf("order = %s, %s; want %s, %s", targets[0].ID, targets[1].ID, nearID, farID)
	}
}

func TestIsHeadshotRegion(t *testing.T) {
	tests := []struct {
		region string
		want   bool
	}{
		{"head", true},
		{"HEAD", true},
		{"face", true},
		{"body", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := isHeadshotRegion(tc.region); got != tc.want {
			t.Fatalf("isHeadshotRegion(%q) = %v, want %v", tc.region, got, tc.want)
		}
	}
}
