package gear

// Compiled-in balance tables. A definitions file (see Load) can override any
// entry by id; these values are the shipping defaults.

func defaultWeapons() []Weapon {
	return []Weapon{
		{
			ID:                "rifle",
			Name:              "Assault Rifle",
			Class:             ClassHitscan,
			Damage:            30,
			FireRate:          5,
			Range:             300,
			FalloffStart:      10,
			FalloffEnd:        50,
			FalloffMultiplier: 0.5,
			AmmoType:          "rifle",
			MagazineSize:      30,
			ReloadSeconds:     2.2,
		},
		{
			ID:                "pistol",
			Name:              "Sidearm",
			Class:             ClassHitscan,
			Damage:            18,
			FireRate:          7,
			Range:             120,
			FalloffStart:      8,
			FalloffEnd:        35,
			FalloffMultiplier: 0.6,
			AmmoType:          "light",
			MagazineSize:      12,
			ReloadSeconds:     1.4,
		},
		{
			ID:                "hunting-bow",
			Name:              "Hunting Bow",
			Class:             ClassHitscan,
			Damage:            55,
			FireRate:          1.2,
			Range:             200,
			FalloffStart:      20,
			FalloffEnd:        80,
			FalloffMultiplier: 0.5,
			AmmoType:          "arrow",
			MagazineSize:      1,
			ReloadSeconds:     0.9,
		},
		{
			ID:       "machete",
			Name:     "Machete",
			Class:    ClassMelee,
			Damage:   40,
			FireRate: 2,
			Range:    3,
		},
		{
			ID:              "frag-grenade",
			Name:            "Frag Grenade",
			Class:           ClassThrowable,
			Damage:          80,
			FireRate:        1,
			Range:           25,
			InnerRadius:     2,
			EffectRadius:    8,
			FuseSeconds:     3,
			CooldownSeconds: 5,
			StackLimit:      3,
		},
	}
}

func defaultItems() []Item {
	return []Item{
		{
			ID:         "medkit",
			Name:       "Medkit",
			Kind:       ItemInstantHeal,
			UseSeconds: 4,
			HealAmount: 100,
			StackLimit: 2,
		},
		{
			ID:              "bandage",
			Name:            "Bandage",
			Kind:            ItemHealOverTime,
			UseSeconds:      1.5,
			HealAmount:      30,
			DurationSeconds: 6,
			InterruptDamage: 10,
			StackLimit:      10,
		},
		{
			ID:          "shield-cell",
			Name:        "Shield Cell",
			Kind:        ItemShield,
			UseSeconds:  2,
			ArmorAmount: 50,
			StackLimit:  4,
		},
		{
			ID:              "adrenaline",
			Name:            "Adrenaline Shot",
			Kind:            ItemBuff,
			UseSeconds:      1,
			Buff:            BuffSpeed,
			BuffValue:       1.3,
			DurationSeconds: 10,
			AllowMovement:   true,
			StackLimit:      2,
		},
		{
			ID:              "stim",
			Name:            "Combat Stim",
			Kind:            ItemBuff,
			UseSeconds:      1.5,
			Buff:            BuffDamage,
			BuffValue:       1.15,
			DurationSeconds: 12,
			StackLimit:      2,
		},
	}
}
