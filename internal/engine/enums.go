package engine

// String backed enums for DB and YAML interoperability.

type JobClass string
type Zone string
type ItemType string
type EncounterType string
type CardKind string
type TargetSelector string
type TriggerKind string
type Tone string
type VerbosityTier string
type ActionTag string

const (
	ClassWarrior   JobClass = "warrior"
	ClassMage      JobClass = "mage"
	ClassRogue     JobClass = "rogue"
	ClassCleric    JobClass = "cleric"
	ClassBarbarian JobClass = "barbarian"
	ClassSniper    JobClass = "sniper"
	ClassHealer    JobClass = "healer"
	ClassMonster   JobClass = "monster"
)

var AllJobClasses = []JobClass{ClassWarrior, ClassMage, ClassRogue, ClassCleric, ClassBarbarian, ClassSniper, ClassHealer, ClassMonster}

const (
	ZoneFront Zone = "front"
	ZoneBack  Zone = "back"
)

var AllZones = []Zone{ZoneFront, ZoneBack}

const (
	ItemWeapon ItemType = "weapon"
	ItemArmor  ItemType = "armor"
	ItemPotion ItemType = "potion"
	ItemMisc   ItemType = "misc"
)

var AllItemTypes = []ItemType{ItemWeapon, ItemArmor, ItemPotion, ItemMisc}

const (
	EncounterBattle   EncounterType = "battle"
	EncounterTreasure EncounterType = "treasure"
	EncounterRest     EncounterType = "rest"
	EncounterStory    EncounterType = "story"
	EncounterBoss     EncounterType = "boss"
	EncounterShop     EncounterType = "shop"
	EncounterDungeon  EncounterType = "dungeon"
)

var AllEncounterTypes = []EncounterType{EncounterBattle, EncounterTreasure, EncounterRest, EncounterStory, EncounterBoss, EncounterShop, EncounterDungeon}

const (
	CardMain CardKind = "main"
	CardSub  CardKind = "sub"
)

var AllCardKinds = []CardKind{CardMain, CardSub}

const (
	TargetSelf        TargetSelector = "self"
	TargetAllyLowest  TargetSelector = "ally_lowest_hp"
	TargetEnemyFront  TargetSelector = "enemy_front"
	TargetEnemyBack   TargetSelector = "enemy_back"
	TargetEnemyRandom TargetSelector = "enemy_random"
)

var AllTargetSelectors = []TargetSelector{TargetSelf, TargetAllyLowest, TargetEnemyFront, TargetEnemyBack, TargetEnemyRandom}

const (
	TriggerOnHurt       TriggerKind = "on_hurt"
	TriggerOnKill       TriggerKind = "on_kill"
	TriggerTargetFullHP TriggerKind = "target_full_hp"
	TriggerTargetLowHP  TriggerKind = "target_low_hp"
)

var AllTriggerKinds = []TriggerKind{TriggerOnHurt, TriggerOnKill, TriggerTargetFullHP, TriggerTargetLowHP}

const (
	ToneDefault  Tone = "default"
	ToneDramatic Tone = "dramatic"
	ToneHorror   Tone = "horror"
	ToneSolemn   Tone = "solemn"
)

var AllTones = []Tone{ToneDefault, ToneDramatic, ToneHorror, ToneSolemn}

// Verbosity tiers drive how lavish the narrator is allowed to be for a page.
const (
	VerbosityLow  VerbosityTier = "low"
	VerbosityMid  VerbosityTier = "mid"
	VerbosityHigh VerbosityTier = "high"
)

var AllVerbosityTiers = []VerbosityTier{VerbosityLow, VerbosityMid, VerbosityHigh}

// Action tags are opaque to the engine; the game-loop controller dispatches them.
const (
	ActionNextPage    ActionTag = "nextPage"
	ActionStartCombat ActionTag = "startCombat"
	ActionOpenChest   ActionTag = "openChest"
	ActionRest        ActionTag = "rest"
	ActionLeave       ActionTag = "leave"
	ActionFlee        ActionTag = "flee"
)

// Generic helpers
func contains[T ~string](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (j JobClass) Validate() bool       { return contains(AllJobClasses, j) }
func (z Zone) Validate() bool           { return contains(AllZones, z) }
func (i ItemType) Validate() bool       { return contains(AllItemTypes, i) }
func (e EncounterType) Validate() bool  { return contains(AllEncounterTypes, e) }
func (c CardKind) Validate() bool       { return contains(AllCardKinds, c) }
func (t TargetSelector) Validate() bool { return contains(AllTargetSelectors, t) }
func (t TriggerKind) Validate() bool    { return contains(AllTriggerKinds, t) }
func (t Tone) Validate() bool           { return contains(AllTones, t) }
func (v VerbosityTier) Validate() bool  { return contains(AllVerbosityTiers, v) }

// List helpers
func ListJobClasses() []JobClass           { return append([]JobClass{}, AllJobClasses...) }
func ListZones() []Zone                    { return append([]Zone{}, AllZones...) }
func ListItemTypes() []ItemType            { return append([]ItemType{}, AllItemTypes...) }
func ListEncounterTypes() []EncounterType  { return append([]EncounterType{}, AllEncounterTypes...) }
func ListTargetSelectors() []TargetSelector {
	return append([]TargetSelector{}, AllTargetSelectors...)
}
func ListTriggerKinds() []TriggerKind { return append([]TriggerKind{}, AllTriggerKinds...) }

// Clamp restricts a bounded scalar into 0-100.
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
