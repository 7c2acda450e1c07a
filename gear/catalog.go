package gear

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrUnknownWeapon = errors.New("gear: unknown weapon")
	ErrUnknownItem   = errors.New("gear: unknown item")
)

// Catalog holds the resolved definition tables. Construct once at startup and
// share read-only.
type Catalog struct {
	weapons map[string]*Weapon
	items   map[string]*Item
}

func NewCatalog(weapons []Weapon, items []Item) (*Catalog, error) {
	c := &Catalog{
		weapons: make(map[string]*Weapon, len(weapons)),
		items:   make(map[string]*Item, len(items)),
	}
	for i := range weapons {
		def := weapons[i]
		if err := validateWeapon(&def); err != nil {
			return nil, err
		}
		if _, dup := c.weapons[def.ID]; dup {
			return nil, fmt.Errorf("gear: duplicate weapon id %q", def.ID)
		}
		c.weapons[def.ID] = &def
	}
	for i := range items {
		def := items[i]
		if err := validateItem(&def); err != nil {
			return nil, err
		}
		if _, dup := c.items[def.ID]; dup {
			return nil, fmt.Errorf("gear: duplicate item id %q", def.ID)
		}
		c.items[def.ID] = &def
	}
	return c, nil
}

// Default returns a catalog seeded with the compiled-in tables.
func Default() *Catalog {
	c, err := NewCatalog(defaultWeapons(), defaultItems())
	if err != nil {
		panic(fmt.Sprintf("gear: default catalog invalid: %v", err))
	}
	return c
}

// FileDefinitions is the JSON document shape for designer-authored tables.
// The schema generator under cmd/schema emits a machine-readable contract for
// this structure.
type FileDefinitions struct {
	Weapons []Weapon `json:"weapons"`
	Items   []Item   `json:"items"`
}

// Load reads a definitions file and merges it over the compiled-in defaults.
// Entries with a known id replace the default; new ids extend the tables.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gear: read definitions: %w", err)
	}
	var defs FileDefinitions
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("gear: parse definitions: %w", err)
	}

	weapons := mergeWeapons(defaultWeapons(), defs.Weapons)
	items := mergeItems(defaultItems(), defs.Items)
	return NewCatalog(weapons, items)
}

func mergeWeapons(base, overrides []Weapon) []Weapon {
	index := make(map[string]int, len(base))
	for i, def := range base {
		index[def.ID] = i
	}
	for _, def := range overrides {
		if i, ok := index[def.ID]; ok {
			base[i] = def
			continue
		}
		index[def.ID] = len(base)
		base = append(base, def)
	}
	return base
}

func mergeItems(base, overrides []Item) []Item {
	index := make(map[string]int, len(base))
	for i, def := range base {
		index[def.ID] = i
	}
	for _, def := range overrides {
		if i, ok := index[def.ID]; ok {
			base[i] = def
			continue
		}
		index[def.ID] = len(base)
		base = append(base, def)
	}
	return base
}

func (c *Catalog) Weapon(id string) (*Weapon, error) {
	if c == nil {
		return nil, ErrUnknownWeapon
	}
	def, ok := c.weapons[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWeapon, id)
	}
	return def, nil
}

func (c *Catalog) Item(id string) (*Item, error) {
	if c == nil {
		return nil, ErrUnknownItem
	}
	def, ok := c.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return def, nil
}

func (c *Catalog) Weapons() []*Weapon {
	if c == nil {
		return nil
	}
	out := make([]*Weapon, 0, len(c.weapons))
	for _, def := range c.weapons {
		out = append(out, def)
	}
	return out
}

func (c *Catalog) Items() []*Item {
	if c == nil {
		return nil
	}
	out := make([]*Item, 0, len(c.items))
	for _, def := range c.items {
		out = append(out, def)
	}
	return out
}

func validateWeapon(def *Weapon) error {
	if def.ID == "" {
		return errors.New("gear: weapon id is required")
	}
	switch def.Class {
	case ClassHitscan, ClassMelee, ClassThrowable:
	default:
		return fmt.Errorf("gear: weapon %q has unknown class %q", def.ID, def.Class)
	}
	if def.Damage < 0 {
		return fmt.Errorf("gear: weapon %q has negative damage", def.ID)
	}
	if def.Class == ClassHitscan && def.FireRate <= 0 {
		return fmt.Errorf("gear: hitscan weapon %q needs a fire rate", def.ID)
	}
	if def.HasFalloff() && def.FalloffMultiplier > 1 {
		return fmt.Errorf("gear: weapon %q falloff multiplier must be <= 1", def.ID)
	}
	if def.IsExplosive() && def.InnerRadius > def.EffectRadius {
		return fmt.Errorf("gear: weapon %q inner radius exceeds effect radius", def.ID)
	}
	return nil
}

func validateItem(def *Item) error {
	if def.ID == "" {
		return errors.New("gear: item id is required")
	}
	switch def.Kind {
	case ItemInstantHeal, ItemHealOverTime, ItemShield, ItemBuff:
	default:
		return fmt.Errorf("gear: item %q has unknown kind %q", def.ID, def.Kind)
	}
	if def.Kind == ItemHealOverTime && def.HealRate() <= 0 {
		return fmt.Errorf("gear: item %q needs a heal rate or amount+duration", def.ID)
	}
	if def.Kind == ItemBuff && def.Buff == "" {
		return fmt.Errorf("gear: buff item %q needs a buff type", def.ID)
	}
	return nil
}
