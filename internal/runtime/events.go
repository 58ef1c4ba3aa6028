// Package runtime owns one loaded game's compiled artifacts — the
// arena, memref graph, achievements, leaderboards, and rich presence —
// and drives the per-frame evaluation loop (spec §3 "Game runtime",
// §4.8's do_frame). internal/client layers login/identify/retry
// lifecycle on top; this package is purely the synchronous, single-
// threaded-per-call frame loop spec §5 describes.
package runtime

// EventKind names one thing that happened to an artifact this frame,
// driving the runtime's event-debouncing layer (spec §4.8).
type EventKind uint8

const (
	EventChallengeIndicatorShow EventKind = iota
	EventChallengeIndicatorHide
	EventProgressUpdated
	EventTriggered
	EventGameCompleted

	EventTrackerShow
	EventTrackerHide
	EventTrackerUpdate
	EventLeaderboardStarted
	EventLeaderboardFailed
	EventLeaderboardSubmitted

	EventAchievementDisabled
	EventServerError
)

// Event is one debounced notification the client runtime hands to the
// caller's event handler (spec §4.8).
type Event struct {
	Kind          EventKind
	AchievementID uint32
	LeaderboardID uint32
	Value         int64
	Formatted     string
	Message       string
}

// collector accumulates one frame's events in the fixed dispatch order
// spec §4.8 specifies per artifact kind, across every artifact in
// declaration order.
type collector struct {
	events []Event
}

func (c *collector) add(e Event) { c.events = append(c.events, e) }
