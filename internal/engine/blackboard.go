package engine

// Blackboard is the explicit shared session context. The session controller
// owns one instance and passes it by reference to components that need
// tone-aware behavior; nothing reads it ambiently.
type Blackboard struct {
	chapter     string
	region      string
	tone        Tone
	chaosFactor float64
	density     int // 0-100 narrative density dial
	lastEvent   string

	currentPage Page

	lastAction  string
	lastSpeaker string
}

func NewBlackboard() *Blackboard {
	return &Blackboard{
		chapter:     "Chapter 1: The Beginning",
		region:      "Unknown",
		tone:        ToneDefault,
		chaosFactor: 1.0,
		density:     50,
	}
}

func (b *Blackboard) Chapter() string { return b.chapter }
func (b *Blackboard) SetChapter(ch string) {
	if ch != "" {
		b.chapter = ch
	}
}

func (b *Blackboard) Region() string     { return b.region }
func (b *Blackboard) SetRegion(r string) { b.region = r }

func (b *Blackboard) Tone() Tone { return b.tone }
func (b *Blackboard) SetTone(t Tone) {
	if t.Validate() {
		b.tone = t
	}
}

func (b *Blackboard) ChaosFactor() float64 { return b.chaosFactor }
func (b *Blackboard) SetChaosFactor(f float64) {
	if f < 0 {
		f = 0
	}
	b.chaosFactor = f
}

func (b *Blackboard) Density() int     { return b.density }
func (b *Blackboard) SetDensity(d int) { b.density = Clamp(d) }

func (b *Blackboard) LastEventTag() string       { return b.lastEvent }
func (b *Blackboard) SetLastEventTag(tag string) { b.lastEvent = tag }

func (b *Blackboard) CurrentPage() Page       { return b.currentPage }
func (b *Blackboard) SetCurrentPage(pg Page)  { b.currentPage = pg }

// UpdateMemory records the most recent narrative beat.
func (b *Blackboard) UpdateMemory(action, speaker string) {
	b.lastAction = action
	b.lastSpeaker = speaker
}

func (b *Blackboard) Memory() (action, speaker string) {
	return b.lastAction, b.lastSpeaker
}
