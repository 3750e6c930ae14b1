package engine

import "fmt"

// Item is owned by the party inventory until equipped (moves to a slot) or
// consumed (removed). Durability applies to armor only; zero means the item
// does not wear.
type Item struct {
	Name        string   `json:"name"`
	Type        ItemType `json:"type"`
	Value       int      `json:"value"`
	Description string   `json:"description,omitempty"`
	Durability  int      `json:"durability,omitempty"`
}

var lootAdjectives = []string{"Worn", "Sturdy", "Gleaming", "Rune-marked", "Blackened", "Gilded"}

var lootBases = map[ItemType][]string{
	ItemWeapon: {"Shortsword", "Hand Axe", "Hunting Bow", "Oak Staff", "Dirk"},
	ItemArmor:  {"Leather Vest", "Chain Shirt", "Buckler", "Scale Coat"},
	ItemPotion: {"Healing Draught", "Tonic", "Elixir"},
	ItemMisc:   {"Talisman", "Old Coin", "Signet Ring"},
}

// RollLoot derives an item from a page's keywords and weight. Heavier pages
// yield stronger finds. Deterministic under the injected stream.
func RollLoot(rng *Stream, page Page) *Item {
	kinds := []ItemType{ItemWeapon, ItemArmor, ItemPotion, ItemMisc}
	kind := kinds[rng.Intn(len(kinds))]
	bases := lootBases[kind]
	name := bases[rng.Intn(len(bases))]
	adj := lootAdjectives[rng.Intn(len(lootAdjectives))]

	// Rarity scales value: roughly +1 per 10 points of page weight.
	value := 2 + rng.Intn(4) + page.TotalWeight/10
	it := &Item{
		Name:  fmt.Sprintf("%s %s", adj, name),
		Type:  kind,
		Value: value,
	}
	if kind == ItemArmor {
		it.Durability = 20 + rng.Intn(21)
	}
	if len(page.Keywords) > 0 {
		kw := page.Keywords[rng.Intn(len(page.Keywords))]
		it.Description = fmt.Sprintf("Found amid %s in %s.", kw, page.Title)
	}
	return it
}

// RollGold converts page weight into a gold find.
func RollGold(rng *Stream, page Page) int {
	return 5 + rng.Intn(10) + page.TotalWeight
}
