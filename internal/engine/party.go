package engine

// PartyCapacity is the fixed roster cap. Membership order doubles as the
// initiative tie-break seed.
const PartyCapacity = 4

// Party is the ordered roster plus shared inventory and gold.
type Party struct {
	Members   []*Character
	Inventory []*Item
	Gold      int
}

func NewParty() *Party { return &Party{} }

// AddMember appends a character if capacity allows.
func (p *Party) AddMember(c *Character) bool {
	if len(p.Members) >= PartyCapacity {
		return false
	}
	p.Members = append(p.Members, c)
	return true
}

// RemoveMember drops the member at index, preserving order.
func (p *Party) RemoveMember(index int) {
	if index < 0 || index >= len(p.Members) {
		return
	}
	p.Members = append(p.Members[:index], p.Members[index+1:]...)
}

// AliveMembers returns living members in roster order.
func (p *Party) AliveMembers() []*Character {
	var out []*Character
	for _, m := range p.Members {
		if m.IsAlive() {
			out = append(out, m)
		}
	}
	return out
}

// AverageLevel floors the mean level; 1 for an empty roster.
func (p *Party) AverageLevel() int {
	if len(p.Members) == 0 {
		return 1
	}
	sum := 0
	for _, m := range p.Members {
		sum += m.Level
	}
	return sum / len(p.Members)
}

// IsWiped reports whether no member is alive.
func (p *Party) IsWiped() bool { return len(p.AliveMembers()) == 0 }

// AddItem places an item into the shared inventory.
func (p *Party) AddItem(it *Item) {
	if it != nil {
		p.Inventory = append(p.Inventory, it)
	}
}

// RemoveItem removes the first matching item pointer, reporting success.
func (p *Party) RemoveItem(it *Item) bool {
	for i, held := range p.Inventory {
		if held == it {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// EquipFromInventory moves an inventory item onto a member; a displaced
// item returns to the shared inventory.
func (p *Party) EquipFromInventory(member *Character, it *Item) bool {
	if member == nil || !p.RemoveItem(it) {
		return false
	}
	prev, ok := member.Equip(it)
	if !ok {
		p.AddItem(it)
		return false
	}
	if prev != nil {
		p.AddItem(prev)
	}
	return true
}
