package server

import (
	"math"

	"primal-royale/server/gear"
)

// rolledDamage is the outcome of the pre-mitigation damage pipeline.
type rolledDamage struct {
	Amount   float64
	Headshot bool
	Critical bool
}

// rollDamage runs the ordered damage pipeline for a direct weapon hit:
// base, headshot, critical, then distance falloff. Headshot and critical are
// independent and both multiplicative. Critical rolls apply only here; blast
// and non-weapon damage never crit.
func (w *World) rollDamage(weapon *gear.Weapon, region string, distance float64) rolledDamage {
	roll := rolledDamage{Amount: weapon.Damage}

	if isHeadshotRegion(region) {
		roll.Headshot = true
		roll.Amount *= w.combat.HeadshotMultiplier
	}

	if w.combat.CriticalChance > 0 && w.critRoll() < w.combat.CriticalChance {
		roll.Critical = true
		roll.Amount *= w.combat.CriticalMultiplier
	}

	roll.Amount *= falloffMultiplier(weapon, distance)
	return roll
}

// falloffMultiplier interpolates linearly from 1.0 at FalloffStart down to
// the weapon's floor at FalloffEnd. Weapons without a falloff band always
// deal full damage inside their range.
func falloffMultiplier(weapon *gear.Weapon, distance float64) float64 {
	if !weapon.HasFalloff() || distance <= weapon.FalloffStart {
		return 1.0
	}
	if distance >= weapon.FalloffEnd {
		return weapon.FalloffMultiplier
	}
	span := weapon.FalloffEnd - weapon.FalloffStart
	progress := (distance - weapon.FalloffStart) / span
	return 1.0 - progress*(1.0-weapon.FalloffMultiplier)
}

// radialDamage computes blast damage at a given distance from the detonation
// point: full damage inside InnerRadius, linear to zero at EffectRadius.
func radialDamage(weapon *gear.Weapon, distance float64) float64 {
	if distance <= weapon.InnerRadius {
		return weapon.Damage
	}
	if distance >= weapon.EffectRadius {
		return 0
	}
	span := weapon.EffectRadius - weapon.InnerRadius
	if span <= 0 {
		return 0
	}
	remaining := 1.0 - (distance-weapon.InnerRadius)/span
	return math.Max(0, weapon.Damage*remaining)
}
