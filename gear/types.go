package gear

import "time"

// WeaponClass determines how a fire request is resolved: hitscan weapons ray
// cast, melee weapons range-check a named target, throwables hand off to a
// fused area effect.
type WeaponClass string

const (
	ClassHitscan   WeaponClass = "hitscan"
	ClassMelee     WeaponClass = "melee"
	ClassThrowable WeaponClass = "throwable"
)

// Weapon is a static, designer-authored stat table. Instances are shared and
// must never be mutated at runtime.
type Weapon struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Class WeaponClass `json:"class"`

	Damage   float64 `json:"damage"`
	FireRate float64 `json:"fireRate"` // shots per second
	Range    float64 `json:"range"`

	// Distance falloff for hitscan weapons. Zero FalloffEnd disables it.
	FalloffStart      float64 `json:"falloffStart,omitempty"`
	FalloffEnd        float64 `json:"falloffEnd,omitempty"`
	FalloffMultiplier float64 `json:"falloffMultiplier,omitempty"`

	// Throwable/explosive tuning. InnerRadius keeps full damage; damage
	// reaches zero at EffectRadius.
	InnerRadius  float64 `json:"innerRadius,omitempty"`
	EffectRadius float64 `json:"effectRadius,omitempty"`
	FuseSeconds  float64 `json:"fuseSeconds,omitempty"`

	CooldownSeconds float64 `json:"cooldownSeconds,omitempty"`
	StackLimit      int     `json:"stackLimit,omitempty"`

	AmmoType      string  `json:"ammoType,omitempty"`
	MagazineSize  int     `json:"magazineSize,omitempty"`
	ReloadSeconds float64 `json:"reloadSeconds,omitempty"`
}

// ShotInterval returns the minimum legal spacing between shots.
func (w *Weapon) ShotInterval() time.Duration {
	if w == nil || w.FireRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / w.FireRate)
}

// HasFalloff reports whether the weapon defines a distance falloff window.
func (w *Weapon) HasFalloff() bool {
	return w != nil && w.FalloffEnd > w.FalloffStart && w.FalloffMultiplier > 0
}

// IsExplosive reports whether damage is resolved radially instead of per hit.
func (w *Weapon) IsExplosive() bool {
	return w != nil && w.EffectRadius > 0
}

func (w *Weapon) Cooldown() time.Duration {
	if w == nil || w.CooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(w.CooldownSeconds * float64(time.Second))
}

func (w *Weapon) Fuse() time.Duration {
	if w == nil || w.FuseSeconds <= 0 {
		return 0
	}
	return time.Duration(w.FuseSeconds * float64(time.Second))
}

func (w *Weapon) ReloadDuration() time.Duration {
	if w == nil || w.ReloadSeconds <= 0 {
		return 0
	}
	return time.Duration(w.ReloadSeconds * float64(time.Second))
}

// ItemKind selects the consumable behavior on use completion.
type ItemKind string

const (
	ItemInstantHeal  ItemKind = "instantHeal"
	ItemHealOverTime ItemKind = "healOverTime"
	ItemShield       ItemKind = "shield"
	ItemBuff         ItemKind = "buff"
)

// BuffType keys at most one active buff per player.
type BuffType string

const (
	BuffSpeed  BuffType = "speed"
	BuffDamage BuffType = "damage"
)

// Item is a static consumable stat table.
type Item struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Kind ItemKind `json:"kind"`

	UseSeconds float64 `json:"useSeconds"` // delay before the use commits

	HealAmount      float64 `json:"healAmount,omitempty"`
	HealPerSecond   float64 `json:"healPerSecond,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	ArmorAmount     float64 `json:"armorAmount,omitempty"`

	Buff      BuffType `json:"buff,omitempty"`
	BuffValue float64  `json:"buffValue,omitempty"`

	// AllowMovement keeps the use alive while the player moves. When false,
	// movement input above a small threshold cancels the use.
	AllowMovement bool `json:"allowMovement,omitempty"`
	// InterruptDamage cancels an in-progress use when a single incoming hit
	// meets the threshold. Zero disables damage interruption.
	InterruptDamage float64 `json:"interruptDamage,omitempty"`

	StackLimit int `json:"stackLimit,omitempty"`
}

func (i *Item) UseDelay() time.Duration {
	if i == nil || i.UseSeconds <= 0 {
		return 0
	}
	return time.Duration(i.UseSeconds * float64(time.Second))
}

func (i *Item) Duration() time.Duration {
	if i == nil || i.DurationSeconds <= 0 {
		return 0
	}
	return time.Duration(i.DurationSeconds * float64(time.Second))
}

// HealRate derives the per-second heal. Items may author either a rate or a
// total amount over a duration.
func (i *Item) HealRate() float64 {
	if i == nil {
		return 0
	}
	if i.HealPerSecond > 0 {
		return i.HealPerSecond
	}
	if i.HealAmount > 0 && i.DurationSeconds > 0 {
		return i.HealAmount / i.DurationSeconds
	}
	return 0
}
