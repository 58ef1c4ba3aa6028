package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/northbridge-labs/cheevos/internal/consoleinfo"
	"github.com/northbridge-labs/cheevos/internal/log"
	"github.com/northbridge-labs/cheevos/internal/server"
)

// fakeReader is a tiny map-backed memref.Reader, matching the style of
// internal/memref/memref_test.go and internal/expr/trigger_test.go's
// hand-rolled fakes rather than a mocking framework.
type fakeReader struct {
	mem map[uint32]byte
}

func newFakeReader() *fakeReader { return &fakeReader{mem: make(map[uint32]byte)} }

func (f *fakeReader) set(addr uint32, v byte) { f.mem[addr] = v }

func (f *fakeReader) ReadMemory(address uint32, buf []byte) int {
	for i := range buf {
		buf[i] = f.mem[address+uint32(i)]
	}
	return len(buf)
}

// fakeServer is a scripted server.Caller: each named API is handled by a
// registered function, and every call is counted so tests can assert on
// retry/backoff and fire-and-forget reporting behavior.
type fakeServer struct {
	mu      sync.Mutex
	calls   map[server.API]int
	handler map[server.API]func(req server.Request) (server.Response, error)
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		calls:   make(map[server.API]int),
		handler: make(map[server.API]func(req server.Request) (server.Response, error)),
	}
}

func (f *fakeServer) on(api server.API, h func(req server.Request) (server.Response, error)) {
	f.handler[api] = h
}

func (f *fakeServer) count(api server.API) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[api]
}

func (f *fakeServer) Call(ctx context.Context, req server.Request) (server.Response, error) {
	f.mu.Lock()
	f.calls[req.API]++
	f.mu.Unlock()

	h, ok := f.handler[req.API]
	if !ok {
		return server.Response{}, &transportErr{api: req.API}
	}
	return h(req)
}

type transportErr struct{ api server.API }

func (e *transportErr) Error() string { return "fake transport failure: " + string(e.api) }

func okBody(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func TestDelayForSchedule(t *testing.T) {
	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 64 * time.Second, 120 * time.Second,
	}
	for i, w := range want {
		if got := delayFor(i); got != w {
			t.Fatalf("delayFor(%d) = %v, want %v", i, got, w)
		}
	}
	// Past the end of the table the delay stays capped at the last entry.
	if got := delayFor(50); got != 120*time.Second {
		t.Fatalf("delayFor(50) = %v, want capped 120s", got)
	}
}

func TestCallWithRetryRespectsContextCancellation(t *testing.T) {
	fs := newFakeServer() // no handler registered: every call is a transport error
	c := New(fs, log.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.callWithRetry(ctx, server.Request{API: server.APIPing})
	if err == nil {
		t.Fatal("expected an error once the context is cancelled mid-retry")
	}
	if fs.count(server.APIPing) == 0 {
		t.Fatal("expected at least one attempt before the context expired")
	}
}

func TestCallWithRetrySemanticErrorNotRetried(t *testing.T) {
	fs := newFakeServer()
	fs.on(server.APILogin, func(req server.Request) (server.Response, error) {
		return server.Response{Body: []byte(`{"Success":false,"Error":"bad credentials"}`)}, nil
	})
	c := New(fs, log.NewNop())

	resp, err := c.callWithRetry(context.Background(), server.Request{API: server.APILogin})
	if err != nil {
		t.Fatalf("expected the rejected reply back without a transport error, got %v", err)
	}
	if _, err := server.ParseLoginResponse(resp); err == nil || !server.IsSemantic(err) {
		t.Fatalf("expected a semantic error, got %v", err)
	}
	if got := fs.count(server.APILogin); got != 1 {
		t.Fatalf("semantic errors must not retry: got %d calls, want 1", got)
	}
}

func TestLoginStoresSessionToken(t *testing.T) {
	fs := newFakeServer()
	fs.on(server.APILogin, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.LoginResponse{
			Envelope: server.Envelope{Success: true},
			Username: "player1",
			Token:    "tok-abc",
		})}, nil
	})
	c := New(fs, log.NewNop())

	if err := c.Login(context.Background(), "player1", "hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.username != "player1" || c.sessionTok != "tok-abc" {
		t.Fatalf("Login did not store username/token: %+v", c)
	}
}

func TestIdentifyAndLoadGameAppliesUnlocksAndStartsSession(t *testing.T) {
	fs := newFakeServer()
	fs.on(server.APIGameID, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.GameIDResponse{
			Envelope: server.Envelope{Success: true}, GameID: 42,
		})}, nil
	})
	fs.on(server.APIPatch, func(req server.Request) (server.Response, error) {
		resp := server.PatchResponse{Envelope: server.Envelope{Success: true}}
		resp.PatchData.GameID = 42
		resp.PatchData.Achievements = []server.PatchAchievement{
			{ID: 1, Title: "First", MemAddr: "0xH0010>=10", Points: 5, Flags: 3},
			{ID: 2, Title: "Hidden", MemAddr: "0xH0011>=1", Points: 5, Flags: 5}, // unofficial
		}
		return server.Response{Body: okBody(resp)}, nil
	})
	fs.on(server.APIUnlocks, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.UnlocksResponse{
			Envelope: server.Envelope{Success: true}, UserUnlocks: []uint32{1},
		})}, nil
	})
	fs.on(server.APIStartSession, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.StartSessionResponse{Envelope: server.Envelope{Success: true}})}, nil
	})

	c := New(fs, log.NewNop())
	reader := newFakeReader()

	if err := c.IdentifyAndLoadGame(context.Background(), consoleinfo.NES, "deadbeef", reader); err != nil {
		t.Fatalf("IdentifyAndLoadGame: %v", err)
	}
	defer c.UnloadGame()

	if c.game == nil {
		t.Fatal("expected a compiled game")
	}
	// Unofficial achievement #2 must be filtered out by default.
	if _, ok := c.game.Achievement(2); ok {
		t.Fatal("unofficial achievement should have been filtered out")
	}
	a, ok := c.game.Achievement(1)
	if !ok {
		t.Fatal("expected achievement #1 to be compiled")
	}
	if !a.Unlocked(false) {
		t.Fatal("server-reported unlock should have been applied before the first frame")
	}
	if fs.count(server.APIStartSession) != 1 {
		t.Fatalf("expected exactly one startsession call, got %d", fs.count(server.APIStartSession))
	}
}

func TestDoFrameReportsUnlockAsynchronously(t *testing.T) {
	fs := newFakeServer()
	fs.on(server.APIGameID, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.GameIDResponse{Envelope: server.Envelope{Success: true}, GameID: 7})}, nil
	})
	fs.on(server.APIPatch, func(req server.Request) (server.Response, error) {
		resp := server.PatchResponse{Envelope: server.Envelope{Success: true}}
		resp.PatchData.GameID = 7
		resp.PatchData.Achievements = []server.PatchAchievement{
			{ID: 9, Title: "Threshold", MemAddr: "0xH0010>=10", Points: 5, Flags: 3},
		}
		return server.Response{Body: okBody(resp)}, nil
	})
	fs.on(server.APIUnlocks, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.UnlocksResponse{Envelope: server.Envelope{Success: true}})}, nil
	})
	fs.on(server.APIStartSession, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.StartSessionResponse{Envelope: server.Envelope{Success: true}})}, nil
	})
	fs.on(server.APIAwardAchievement, func(req server.Request) (server.Response, error) {
		return server.Response{Body: okBody(server.AwardAchievementResponse{
			Envelope: server.Envelope{Success: true}, AchievementID: 9,
		})}, nil
	})

	c := New(fs, log.NewNop())
	reader := newFakeReader()
	if err := c.IdentifyAndLoadGame(context.Background(), consoleinfo.NES, "deadbeef", reader); err != nil {
		t.Fatalf("IdentifyAndLoadGame: %v", err)
	}

	reader.set(0x10, 10)
	c.DoFrame()

	// UnloadGame waits for the in-flight award-achievement goroutine,
	// so by the time it returns the fire-and-forget report has landed.
	c.UnloadGame()

	if got := fs.count(server.APIAwardAchievement); got != 1 {
		t.Fatalf("expected exactly one awardachievement call, got %d", got)
	}
}

func TestSetHardcoreEnabledSetsClientFlag(t *testing.T) {
	c := New(newFakeServer(), log.NewNop())
	c.SetHardcoreEnabled(true)
	if !c.hardcore {
		t.Fatal("expected hardcore flag set")
	}
}
