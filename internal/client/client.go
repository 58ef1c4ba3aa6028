// Package client is the top-level opaque handle applications drive:
// login, identify-and-load-game, per-frame evaluation, and progress
// persistence, with server calls retried on a fixed backoff schedule
// (spec §4.8 "Client runtime"). It layers the lifecycle and server
// plumbing the original engine's rc_client_t owns on top of the
// synchronous internal/runtime.Game frame loop.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/northbridge-labs/cheevos/internal/arena"
	"github.com/northbridge-labs/cheevos/internal/consoleinfo"
	"github.com/northbridge-labs/cheevos/internal/expr"
	"github.com/northbridge-labs/cheevos/internal/log"
	"github.com/northbridge-labs/cheevos/internal/memref"
	"github.com/northbridge-labs/cheevos/internal/progress"
	"github.com/northbridge-labs/cheevos/internal/runtime"
	"github.com/northbridge-labs/cheevos/internal/script"
	"github.com/northbridge-labs/cheevos/internal/server"
)

// retryDelays is the fixed backoff schedule a failed (non-semantic)
// server call is retried on: 1, 2, 4, 8, 16, 32, 64 seconds, capped at
// 120 (spec §4.8 "retry/backoff policy").
var retryDelays = []time.Duration{
	1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	16 * time.Second, 32 * time.Second, 64 * time.Second, 120 * time.Second,
}

func delayFor(attempt int) time.Duration {
	if attempt >= len(retryDelays) {
		return retryDelays[len(retryDelays)-1]
	}
	return retryDelays[attempt]
}

// pingInterval is how often an active session pings the server to keep
// the player's "currently playing" state fresh (spec §4.8).
const pingInterval = 30 * time.Second

const (
	achievementFlagsCore       = 3
	achievementFlagsUnofficial = 5
)

// EventHandler receives every event a frame produces, in order.
type EventHandler func(ev runtime.Event)

// Client is the single mutex-guarded handle an application drives.
// Every exported method is safe to call from one goroutine at a time;
// DoFrame is expected to be called once per emulated frame and must
// not overlap with another call.
type Client struct {
	mu sync.Mutex

	caller server.Caller
	logger *log.Logger

	username   string
	sessionTok string

	game   *runtime.Game
	reader memref.Reader

	hardcore       bool
	encoreMode     bool
	spectatorMode  bool
	testUnofficial bool

	eventHandler EventHandler

	pingCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a client bound to caller (the server transport) and
// logger (structured diagnostics). Neither may be nil.
func New(caller server.Caller, logger *log.Logger) *Client {
	return &Client{caller: caller, logger: logger}
}

// SetEventHandler installs the callback DoFrame and async operations
// report events through. Replacing it mid-session is allowed; only one
// handler is active at a time.
func (c *Client) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventHandler = h
}

func (c *Client) emit(ev runtime.Event) {
	if c.eventHandler != nil {
		c.eventHandler(ev)
	}
}

// SetHardcoreEnabled toggles hardcore mode. Changing it mid-session
// does not retroactively re-grant hardcore unlocks for achievements
// already triggered in softcore (spec §4.8).
func (c *Client) SetHardcoreEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hardcore = enabled
	if c.game != nil {
		c.game.Hardcore = enabled
	}
}

func (c *Client) SetEncoreModeEnabled(enabled bool)     { c.mu.Lock(); c.encoreMode = enabled; c.mu.Unlock() }
func (c *Client) SetSpectatorModeEnabled(enabled bool)  { c.mu.Lock(); c.spectatorMode = enabled; c.mu.Unlock() }
func (c *Client) SetTestUnofficialEnabled(enabled bool) { c.mu.Lock(); c.testUnofficial = enabled; c.mu.Unlock() }

// callWithRetry invokes the caller, retrying on transport/server errors
// until ctx is cancelled. A reply whose envelope reports success:false is
// not an error at this layer: it comes back as is, without a retry, and
// the call site's server.Parse* function turns it into a semantic error
// (spec §4.8: "retries cover transport failures, not application-level
// rejections"). An error the caller itself marks semantic is likewise
// returned without a retry.
func (c *Client) callWithRetry(ctx context.Context, req server.Request) (server.Response, error) {
	attempt := 0
	for {
		resp, err := c.caller.Call(ctx, req)
		if err == nil {
			return resp, nil
		}
		if server.IsSemantic(err) {
			return resp, err
		}

		delay := delayFor(attempt)
		c.logger.ServerRetry(string(req.API), attempt, int(delay/time.Second), err)
		attempt++

		select {
		case <-ctx.Done():
			return server.Response{}, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Login authenticates with a username/password pair and stores the
// resulting session token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	req, err := server.BuildLoginRequest(server.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	resp, err := c.callWithRetry(ctx, req)
	if err != nil {
		return err
	}
	login, err := server.ParseLoginResponse(resp)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.username = login.Username
	c.sessionTok = login.Token
	c.mu.Unlock()
	return nil
}

// IdentifyAndLoadGame fetches the patch data for the game matching
// hash on console, compiles it against a fresh arena and memref graph,
// applies the server's recorded unlocks, and starts the 30-second ping
// loop (spec §4.8 "activation").
func (c *Client) IdentifyAndLoadGame(ctx context.Context, consoleID consoleinfo.ID, hash string, reader memref.Reader) error {
	gameIDReq, err := server.BuildGameIDRequest(server.GameIDRequest{Hash: hash})
	if err != nil {
		return err
	}
	gameIDResp, err := c.callWithRetry(ctx, gameIDReq)
	if err != nil {
		return err
	}
	gid, err := server.ParseGameIDResponse(gameIDResp)
	if err != nil {
		return err
	}
	if gid.GameID == 0 {
		return fmt.Errorf("client: no game matches hash %q", hash)
	}

	patchReq, err := server.BuildPatchRequest(server.PatchRequest{GameID: gid.GameID})
	if err != nil {
		return err
	}
	patchResp, err := c.callWithRetry(ctx, patchReq)
	if err != nil {
		return err
	}
	patch, err := server.ParsePatchResponse(patchResp)
	if err != nil {
		return err
	}

	unlocksReq, err := server.BuildUnlocksRequest(server.UnlocksRequest{GameID: gid.GameID, Hardcore: c.hardcore})
	if err != nil {
		return err
	}
	unlocksResp, err := c.callWithRetry(ctx, unlocksReq)
	if err != nil {
		return err
	}
	unlocks, err := server.ParseUnlocksResponse(unlocksResp)
	if err != nil {
		return err
	}

	game := compileGame(gid.GameID, patch, c.testUnofficial)
	for _, id := range unlocks.UserUnlocks {
		if a, ok := game.Achievement(id); ok {
			a.ApplyServerUnlock(c.hardcore)
		}
	}
	game.Hardcore = c.hardcore

	c.mu.Lock()
	c.game = game
	c.reader = reader
	c.mu.Unlock()

	startSessionReq, err := server.BuildStartSessionRequest(server.StartSessionRequest{GameID: gid.GameID})
	if err != nil {
		return err
	}
	startSessionResp, err := c.callWithRetry(ctx, startSessionReq)
	if err != nil {
		return err
	}
	if _, err := server.ParseStartSessionResponse(startSessionResp); err != nil {
		return err
	}

	c.startPingLoop(gid.GameID)
	return nil
}

// compileGame turns patch data into a runtime.Game, skipping
// unofficial achievements unless testUnofficial is set (spec §4.8's
// "filter unofficial achievements").
func compileGame(gameID uint32, patch server.PatchResponse, testUnofficial bool) *runtime.Game {
	buf := arena.NewBuffer()
	graph := memref.NewGraph()
	ps := expr.NewParseState(graph, buf, false)

	game := runtime.NewGame(gameID, buf, graph)

	for _, pa := range patch.PatchData.Achievements {
		if pa.Flags == achievementFlagsUnofficial && !testUnofficial {
			continue
		}
		trigger, code := ps.ParseTriggerString(pa.MemAddr)
		if code != expr.OK {
			continue
		}
		game.AddAchievement(&runtime.Achievement{
			ID:          pa.ID,
			Title:       pa.Title,
			Description: pa.Description,
			Points:      pa.Points,
			Category:    achievementCategory(pa.Flags),
			Trigger:     trigger,
		})
	}

	for _, pl := range patch.PatchData.Leaderboards {
		lb, code := ps.ParseLeaderboard(pl.Mem)
		if code != expr.OK {
			continue
		}
		game.AddLeaderboard(&runtime.Leaderboard{
			ID:    pl.ID,
			Title: pl.Title,
			Body:  lb,
		})
	}

	if patch.PatchData.RichPresence != "" {
		if rp, code := ps.ParseRichPresenceScript(patch.PatchData.RichPresence); code == expr.OK {
			game.RichPresence = rp
		}
	}

	if len(patch.PatchData.Scripts) > 0 {
		game.Lua = compileScripts(patch.PatchData.Scripts)
	}

	return game
}

// compileScripts turns a patch's named scriptlet sources into a single
// LuaHook backed by internal/script's goja engine. If any scriptlet
// fails to compile, Lua operands fall back to their "opaque if absent"
// zero value for the whole game rather than partially wiring the set.
func compileScripts(sources map[string]string) expr.LuaHook {
	srcs := make([]script.Source, 0, len(sources))
	for name, body := range sources {
		srcs = append(srcs, script.Source{Name: name, Body: body})
	}
	engine, err := script.NewEngine(srcs)
	if err != nil {
		return nil
	}
	return engine.Hook()
}

func achievementCategory(flags int) runtime.Category {
	if flags == achievementFlagsUnofficial {
		return runtime.CategoryUnofficial
	}
	return runtime.CategoryCore
}

// DoFrame advances the loaded game by exactly one emulated frame,
// dispatches every resulting event to the installed handler in order,
// and fires off (fire-and-forget, retried) server calls for whatever
// needs reporting this frame: newly triggered achievements and
// submitted leaderboard entries (spec §4.8 "do_frame").
func (c *Client) DoFrame() {
	c.mu.Lock()
	game := c.game
	reader := c.reader
	hardcore := c.hardcore
	c.mu.Unlock()
	if game == nil {
		return
	}

	events := game.DoFrame(reader)
	for _, ev := range events {
		c.emit(ev)
		switch ev.Kind {
		case runtime.EventTriggered:
			c.reportUnlock(ev.AchievementID, hardcore)
		case runtime.EventLeaderboardSubmitted:
			c.reportLeaderboardEntry(ev.LeaderboardID, ev.Value)
		}
	}
}

func (c *Client) reportUnlock(achievementID uint32, hardcore bool) {
	body, err := server.BuildAwardAchievementRequest(server.AwardAchievementRequest{
		AchievementID: achievementID, Hardcore: hardcore,
	})
	if err != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.callWithRetry(context.Background(), body)
		if err != nil {
			c.logger.ServerError(string(server.APIAwardAchievement), err.Error())
			return
		}
		if _, err := server.ParseAwardAchievementResponse(resp); err != nil {
			c.logger.ServerError(string(server.APIAwardAchievement), err.Error())
		}
	}()
}

func (c *Client) reportLeaderboardEntry(leaderboardID uint32, score int64) {
	body, err := server.BuildSubmitLBEntryRequest(server.SubmitLBEntryRequest{
		LeaderboardID: leaderboardID, Score: score,
	})
	if err != nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.callWithRetry(context.Background(), body)
		if err != nil {
			c.logger.ServerError(string(server.APISubmitLBEntry), err.Error())
			return
		}
		if _, err := server.ParseSubmitLBEntryResponse(resp); err != nil {
			c.logger.ServerError(string(server.APISubmitLBEntry), err.Error())
		}
	}()
}

// Idle does nothing. The ping loop and pending unlock/submission
// goroutines run on their own whether or not frames advance, so they
// keep making progress while emulation is paused with or without Idle
// calls; it exists to mirror rc_client_idle (spec §4.8).
func (c *Client) Idle() {}

// Reset restarts the loaded game's achievements and leaderboards from
// their pre-activation state (spec §4.8 "reset").
func (c *Client) Reset() {
	c.mu.Lock()
	game := c.game
	c.mu.Unlock()
	if game != nil {
		game.Reset()
	}
}

// SerializeProgress captures the loaded game's current state to a
// binary snapshot suitable for DeserializeProgress.
func (c *Client) SerializeProgress() ([]byte, error) {
	c.mu.Lock()
	game := c.game
	c.mu.Unlock()
	if game == nil {
		return nil, fmt.Errorf("client: no game loaded")
	}
	return progress.Serialize(game), nil
}

// DeserializeProgress restores a snapshot produced by SerializeProgress
// into the currently loaded game. A corrupt or mismatched snapshot
// resets progress rather than partially loading it (spec §4.7).
func (c *Client) DeserializeProgress(snap []byte) error {
	c.mu.Lock()
	game := c.game
	c.mu.Unlock()
	if game == nil {
		return fmt.Errorf("client: no game loaded")
	}
	if err := progress.Deserialize(game, snap); err != nil {
		game.Reset()
		return err
	}
	return nil
}

// startPingLoop launches the background goroutine that pings the
// server every pingInterval while a game is loaded, so the player's
// "currently playing" status stays fresh server-side (spec §4.8).
func (c *Client) startPingLoop(gameID uint32) {
	c.mu.Lock()
	if c.pingCancel != nil {
		c.pingCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.pingCancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sendPing(ctx, gameID)
			}
		}
	}()
}

func (c *Client) sendPing(ctx context.Context, gameID uint32) {
	req, err := server.BuildPingRequest(server.PingRequest{GameID: gameID, RichPresence: c.richPresenceSnapshot()})
	if err != nil {
		return
	}
	if _, err := c.callWithRetry(ctx, req); err != nil {
		c.logger.ServerError(string(server.APIPing), err.Error())
	}
}

func (c *Client) richPresenceSnapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.game == nil {
		return ""
	}
	return c.game.RichPresenceText()
}

// UnloadGame stops the ping loop and drops the loaded game, returning
// the client to its post-login, no-game state.
func (c *Client) UnloadGame() {
	c.mu.Lock()
	if c.pingCancel != nil {
		c.pingCancel()
		c.pingCancel = nil
	}
	c.game = nil
	c.reader = nil
	c.mu.Unlock()
	c.wg.Wait()
}

// Destroy unloads any loaded game and releases the client. The client
// must not be used again afterward.
func (c *Client) Destroy() {
	c.UnloadGame()
}
