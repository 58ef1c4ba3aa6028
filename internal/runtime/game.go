package runtime

import (
	"sync"

	"github.com/northbridge-labs/cheevos/internal/arena"
	"github.com/northbridge-labs/cheevos/internal/expr"
	"github.com/northbridge-labs/cheevos/internal/memref"
)

// Category distinguishes core (official, counted toward mastery) from
// unofficial achievements the client may choose to filter out (spec §3
// "Achievement").
type Category uint8

const (
	CategoryCore Category = iota
	CategoryUnofficial
)

// Achievement wraps a compiled trigger with the metadata and unlock
// bookkeeping the runtime needs: title/description for display, the
// softcore/hardcore unlock bits the client persists to the server, and
// the challenge-indicator latch that governs show/hide debouncing
// (spec §4.8).
type Achievement struct {
	ID          uint32
	Title       string
	Description string
	Points      int
	Category    Category
	BadgeName   string

	Trigger *expr.Trigger

	unlockedSoftcore bool
	unlockedHardcore bool
	indicatorShown   bool
	disabledReported bool
}

// Unlocked reports whether this achievement has been earned in the
// given mode.
func (a *Achievement) Unlocked(hardcore bool) bool {
	if hardcore {
		return a.unlockedHardcore
	}
	return a.unlockedSoftcore
}

// ApplyServerUnlock marks an achievement already-unlocked from a prior
// session's server state, without generating a Triggered event (spec
// §4.8 "activation applies the server's unlock bitmask before the
// first frame").
func (a *Achievement) ApplyServerUnlock(hardcore bool) {
	if hardcore {
		a.unlockedSoftcore = true
		a.unlockedHardcore = true
		a.Trigger.State = expr.StateTriggered
		return
	}
	a.unlockedSoftcore = true
	a.Trigger.State = expr.StateTriggered
}

// Leaderboard wraps a compiled leaderboard body with the display
// metadata and tracker-visibility latch the runtime needs (spec §3
// "Leaderboard").
type Leaderboard struct {
	ID          uint32
	Title       string
	Description string

	Body *expr.Leaderboard

	trackerShown bool
	lastValue    int64
	lastFormat   string
}

// Game is every compiled artifact for one loaded title: the arena
// backing their storage, the de-duplicated memref graph, and the
// achievements/leaderboards/rich-presence the parser produced from
// them (spec §3 "Game runtime"). A Game is safe for concurrent use;
// DoFrame and Reset both hold the internal mutex for their duration.
type Game struct {
	ID   uint32
	Arena *arena.Buffer
	Graph *memref.Graph

	Achievements []*Achievement
	Leaderboards []*Leaderboard
	RichPresence *expr.RichPresence

	byAchievementID map[uint32]*Achievement
	byLeaderboardID map[uint32]*Leaderboard

	mu sync.Mutex

	FrameCount uint64
	Hardcore   bool

	// Lua backs the DSL's Lua(handle) operand (spec §3's optional
	// scripting hook); nil unless the patch carried scriptlets and the
	// loader wired an internal/script.Engine, in which case Lua operands
	// evaluate to zero per spec's "treated as opaque if absent".
	Lua expr.LuaHook

	completed         bool
	richPresenceCache string
}

// NewGame builds an empty, activatable Game around an already-populated
// arena and memref graph; the caller (the parsing/patch-loading layer)
// is expected to append to Achievements/Leaderboards/RichPresence
// before the first DoFrame.
func NewGame(id uint32, buf *arena.Buffer, graph *memref.Graph) *Game {
	return &Game{
		ID:              id,
		Arena:           buf,
		Graph:           graph,
		byAchievementID: make(map[uint32]*Achievement),
		byLeaderboardID: make(map[uint32]*Leaderboard),
	}
}

// AddAchievement registers a compiled achievement and activates its
// trigger out of Inactive.
func (g *Game) AddAchievement(a *Achievement) {
	a.Trigger.Activate()
	g.Achievements = append(g.Achievements, a)
	g.byAchievementID[a.ID] = a
}

// AddLeaderboard registers a compiled leaderboard and activates its
// Start trigger (Cancel/Submit activate once Start fires, per
// expr.Leaderboard.Evaluate).
func (g *Game) AddLeaderboard(lb *Leaderboard) {
	lb.Body.Start.Activate()
	g.Leaderboards = append(g.Leaderboards, lb)
	g.byLeaderboardID[lb.ID] = lb
}

// Achievement looks up a registered achievement by ID.
func (g *Game) Achievement(id uint32) (*Achievement, bool) {
	a, ok := g.byAchievementID[id]
	return a, ok
}

// Leaderboard looks up a registered leaderboard by ID.
func (g *Game) Leaderboard(id uint32) (*Leaderboard, bool) {
	lb, ok := g.byLeaderboardID[id]
	return lb, ok
}

// RichPresenceText returns the most recently rendered rich-presence
// string (cached from the last DoFrame), or "" before the first frame.
func (g *Game) RichPresenceText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.richPresenceCache
}

// DoFrame evaluates every achievement, leaderboard, and the rich
// presence display exactly once against the current memory image,
// returning the frame's events in the fixed dispatch order spec §4.8
// lays out: memref refresh and invalidation first, then each
// achievement (indicator hide, indicator show, progress update,
// triggered), then each leaderboard (tracker hide, tracker show,
// tracker update, then failed/submitted/started), then one
// GameCompleted the first frame every core achievement is satisfied.
func (g *Game) DoFrame(reader memref.Reader) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.FrameCount++
	c := &collector{}

	g.Graph.Refresh(reader)

	ctx := &expr.EvalContext{Lua: g.Lua, Peek: peekFromReader(reader)}

	for _, a := range g.Achievements {
		g.evalAchievement(a, ctx, c)
	}

	for _, lb := range g.Leaderboards {
		g.evalLeaderboard(lb, ctx, c)
	}

	if g.RichPresence != nil {
		g.richPresenceCache = g.RichPresence.Render(ctx)
	}

	g.checkGameCompleted(c)

	return c.events
}

// peekFromReader adapts a memref.Reader into the expr.PeekFunc a Lua
// scriptlet uses to read memory directly (rc_peek_t's role), so a
// scriptlet sees the same frame's memory image the rest of DoFrame does.
func peekFromReader(reader memref.Reader) expr.PeekFunc {
	if reader == nil {
		return nil
	}
	return func(address uint32, numBytes uint32) uint32 {
		buf := make([]byte, numBytes)
		n := reader.ReadMemory(address, buf)
		if n != int(numBytes) {
			return 0
		}
		var v uint32
		for i := 0; i < n && i < 4; i++ {
			v |= uint32(buf[i]) << (8 * i)
		}
		return v
	}
}

func (g *Game) evalAchievement(a *Achievement, ctx *expr.EvalContext, c *collector) {
	if a.Trigger.CheckInvalidated() {
		if !a.disabledReported {
			a.disabledReported = true
			c.add(Event{Kind: EventAchievementDisabled, AchievementID: a.ID})
		}
		return
	}

	wasPrimed := a.Trigger.State == expr.StatePrimed
	ev := a.Trigger.Evaluate(ctx)

	nowPrimed := a.Trigger.State == expr.StatePrimed
	if wasPrimed && !nowPrimed && a.indicatorShown {
		a.indicatorShown = false
		c.add(Event{Kind: EventChallengeIndicatorHide, AchievementID: a.ID})
	}
	if nowPrimed && !a.indicatorShown {
		a.indicatorShown = true
		c.add(Event{Kind: EventChallengeIndicatorShow, AchievementID: a.ID})
	}

	if a.Trigger.HasMeasuredValue {
		c.add(Event{
			Kind:          EventProgressUpdated,
			AchievementID: a.ID,
			Value:         int64(a.Trigger.MeasuredValue),
		})
	}

	if ev == expr.EventTriggered {
		if a.indicatorShown {
			a.indicatorShown = false
			c.add(Event{Kind: EventChallengeIndicatorHide, AchievementID: a.ID})
		}
		a.unlockedSoftcore = true
		if g.Hardcore {
			a.unlockedHardcore = true
		}
		c.add(Event{Kind: EventTriggered, AchievementID: a.ID})
	}
}

func (g *Game) evalLeaderboard(lb *Leaderboard, ctx *expr.EvalContext, c *collector) {
	value, formatted, ev := lb.Body.Evaluate(ctx)

	switch ev {
	case expr.LboardEventStarted:
		if !lb.trackerShown {
			lb.trackerShown = true
			c.add(Event{Kind: EventTrackerShow, LeaderboardID: lb.ID})
		}
		c.add(Event{Kind: EventLeaderboardStarted, LeaderboardID: lb.ID})

	case expr.LboardEventCancelled:
		if lb.trackerShown {
			lb.trackerShown = false
			c.add(Event{Kind: EventTrackerHide, LeaderboardID: lb.ID})
		}
		c.add(Event{Kind: EventLeaderboardFailed, LeaderboardID: lb.ID})

	case expr.LboardEventUpdated:
		if value != lb.lastValue || formatted != lb.lastFormat {
			lb.lastValue = value
			lb.lastFormat = formatted
			c.add(Event{Kind: EventTrackerUpdate, LeaderboardID: lb.ID, Value: value, Formatted: formatted})
		}

	case expr.LboardEventSubmitted:
		if lb.trackerShown {
			lb.trackerShown = false
			c.add(Event{Kind: EventTrackerHide, LeaderboardID: lb.ID})
		}
		c.add(Event{Kind: EventLeaderboardSubmitted, LeaderboardID: lb.ID, Value: value, Formatted: formatted})
	}
}

// checkGameCompleted reports GameCompleted exactly once, the first
// frame every core (non-unofficial) achievement has been triggered
// (spec §3 "GameCompleted — fires once all core achievements are
// unlocked", a feature the distillation's grammar implies but leaves
// unspecified; this repository supplements it from the original
// engine's rc_client mastery notification — see SPEC_FULL.md).
func (g *Game) checkGameCompleted(c *collector) {
	if g.completed || len(g.Achievements) == 0 {
		return
	}
	for _, a := range g.Achievements {
		if a.Category != CategoryCore {
			continue
		}
		if a.Trigger.State != expr.StateTriggered {
			return
		}
	}
	g.completed = true
	c.add(Event{Kind: EventGameCompleted})
}

// Reset returns every achievement and leaderboard to its pre-activation
// state, hit counts included, for spec §4.8's reset operation (used when
// the player restarts the loaded game without unloading it). Memref values
// are left as they are; the next DoFrame refreshes them.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.FrameCount = 0
	g.completed = false

	resetHits := func(t *expr.Trigger) {
		t.Core.ResetAllHits()
		for _, alt := range t.Alts {
			alt.ResetAllHits()
		}
	}

	for _, a := range g.Achievements {
		a.Trigger.State = expr.StateWaiting
		resetHits(a.Trigger)
		a.indicatorShown = false
		a.disabledReported = false
		a.Trigger.Activate()
	}
	for _, lb := range g.Leaderboards {
		lb.Body.Reset()
		resetHits(lb.Body.Start)
		resetHits(lb.Body.Cancel)
		resetHits(lb.Body.Submit)
		lb.trackerShown = false
		lb.Body.Start.Activate()
	}
}
