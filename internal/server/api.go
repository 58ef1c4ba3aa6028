package server

import (
	"encoding/json"
	"fmt"
)

// Envelope is the shape every achievements-server reply shares: a
// Success flag plus, on failure, a human-readable Error message (spec §4.8
// "a server-reported semantic error (JSON Success:false with message)").
// Per-API responses embed it so ParseX functions can check it uniformly
// before decoding the rest of the payload.
type Envelope struct {
	Success bool   `json:"Success"`
	Error   string `json:"Error,omitempty"`
}

// semanticErr wraps a server-reported (not transport-level) failure. The
// special "User already has" prefix is coerced to success by
// ParseAwardAchievementResponse per spec §4.8, not by the shared envelope
// check, since only awardachievement needs that carve-out.
type semanticErr struct{ msg string }

func (e semanticErr) Error() string { return e.msg }

// IsSemantic reports whether err is a server-reported Success:false
// failure rather than a transport-level error, the distinction spec §4.8
// and §7 use to decide retry eligibility.
func IsSemantic(err error) bool {
	_, ok := err.(semanticErr)
	return ok
}

func checkEnvelope(env Envelope) error {
	if !env.Success {
		return semanticErr{msg: env.Error}
	}
	return nil
}

// --- login ---

type LoginRequest struct {
	Username string `json:"u"`
	Password string `json:"p,omitempty"`
	Token    string `json:"t,omitempty"`
}

type LoginResponse struct {
	Envelope
	Username          string `json:"User"`
	Token             string `json:"Token"`
	Score             uint32 `json:"Score"`
	SoftcoreScore     uint32 `json:"SoftcoreScore"`
	Messages          uint32 `json:"Messages"`
	Permissions       int    `json:"Permissions"`
}

func BuildLoginRequest(req LoginRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APILogin, Body: body}, nil
}

func ParseLoginResponse(resp Response) (LoginResponse, error) {
	var out LoginResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode login response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}

// --- gameid ---

type GameIDRequest struct {
	Hash string `json:"m"` // opaque 32-hex-char content hash (spec §1 non-goal)
}

type GameIDResponse struct {
	Envelope
	GameID uint32 `json:"GameID"`
}

func BuildGameIDRequest(req GameIDRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APIGameID, Body: body}, nil
}

func ParseGameIDResponse(resp Response) (GameIDResponse, error) {
	var out GameIDResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode gameid response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}

// --- patch (fetch a game's compiled achievement/leaderboard/rich-presence set) ---

type PatchRequest struct {
	GameID uint32 `json:"g"`
}

type PatchAchievement struct {
	ID          uint32 `json:"ID"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	MemAddr     string `json:"MemAddr"`
	Points      int    `json:"Points"`
	Flags       int    `json:"Flags"` // 3 = core, 5 = unofficial
}

type PatchLeaderboard struct {
	ID      uint32 `json:"ID"`
	Title   string `json:"Title"`
	Mem     string `json:"Mem"` // STA:...::CAN:...::SUB:...::VAL:...::FOR:...
	Format  string `json:"Format"`
	LowerIsBetter bool `json:"LowerIsBetter"`
}

type PatchResponse struct {
	Envelope
	PatchData struct {
		GameID          uint32             `json:"ID"`
		Title           string             `json:"Title"`
		ConsoleID       uint32             `json:"ConsoleID"`
		Achievements    []PatchAchievement `json:"Achievements"`
		Leaderboards    []PatchLeaderboard `json:"Leaderboards"`
		RichPresence    string             `json:"RichPresencePatch"`
		// Scripts maps a Lua(handle) operand name (spec §3) to its
		// scriptlet source, distributed alongside the rest of the patch
		// rather than fetched separately.
		Scripts map[string]string `json:"Scripts"`
	} `json:"PatchData"`
}

func BuildPatchRequest(req PatchRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APIPatch, Body: body}, nil
}

func ParsePatchResponse(resp Response) (PatchResponse, error) {
	var out PatchResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode patch response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}

// --- startsession ---

type StartSessionRequest struct {
	GameID uint32 `json:"g"`
}

type StartSessionResponse struct {
	Envelope
}

func BuildStartSessionRequest(req StartSessionRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APIStartSession, Body: body}, nil
}

func ParseStartSessionResponse(resp Response) (StartSessionResponse, error) {
	var out StartSessionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode startsession response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}

// --- unlocks (fetch previously-earned achievement ids for a game) ---

type UnlocksRequest struct {
	GameID   uint32 `json:"g"`
	Hardcore bool   `json:"h"`
}

type UnlocksResponse struct {
	Envelope
	UserUnlocks []uint32 `json:"UserUnlocks"`
}

func BuildUnlocksRequest(req UnlocksRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APIUnlocks, Body: body}, nil
}

func ParseUnlocksResponse(resp Response) (UnlocksResponse, error) {
	var out UnlocksResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode unlocks response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}

// --- awardachievement ---

type AwardAchievementRequest struct {
	AchievementID uint32 `json:"a"`
	Hardcore      bool   `json:"h"`
}

type AwardAchievementResponse struct {
	Envelope
	AchievementID uint32 `json:"AchievementID"`
	Score         uint32 `json:"Score"`
}

func BuildAwardAchievementRequest(req AwardAchievementRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APIAwardAchievement, Body: body}, nil
}

// ParseAwardAchievementResponse applies spec §4.8's special coercion: the
// server reports "User already has" as a Success:false/Error message
// when the achievement was already unlocked server-side; that specific
// message is treated as success rather than a semantic ServerError.
func ParseAwardAchievementResponse(resp Response) (AwardAchievementResponse, error) {
	var out AwardAchievementResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode awardachievement response: %w", err)
	}
	if !out.Success && hasAlreadyUnlockedPrefix(out.Error) {
		out.Success = true
		return out, nil
	}
	return out, checkEnvelope(out.Envelope)
}

const alreadyUnlockedPrefix = "User already has"

func hasAlreadyUnlockedPrefix(msg string) bool {
	return len(msg) >= len(alreadyUnlockedPrefix) && msg[:len(alreadyUnlockedPrefix)] == alreadyUnlockedPrefix
}

// --- submitlbentry ---

type SubmitLBEntryRequest struct {
	LeaderboardID uint32 `json:"i"`
	Score         int64  `json:"v"`
}

type SubmitLBEntryResponse struct {
	Envelope
	Score     int64 `json:"Score"`
	BestScore int64 `json:"BestScore"`
	Rank      int   `json:"Rank"`
}

func BuildSubmitLBEntryRequest(req SubmitLBEntryRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APISubmitLBEntry, Body: body}, nil
}

// ParseSubmitLBEntryResponse does NOT apply the unlock "User already has"
// coercion (Open Question #2 in SPEC_FULL.md: that carve-out is scoped to
// unlocks only). A stale-rank or duplicate submission surfaces as an
// ordinary semantic ServerError.
func ParseSubmitLBEntryResponse(resp Response) (SubmitLBEntryResponse, error) {
	var out SubmitLBEntryResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode submitlbentry response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}

// --- ping (session heartbeat) ---

type PingRequest struct {
	GameID        uint32 `json:"g"`
	RichPresence  string `json:"m,omitempty"`
}

type PingResponse struct {
	Envelope
}

func BuildPingRequest(req PingRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APIPing, Body: body}, nil
}

func ParsePingResponse(resp Response) (PingResponse, error) {
	var out PingResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode ping response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}

// --- codenotes (developer notes on memory addresses; spec §6 names this
// API explicitly even though spec.md's worked examples never exercise it) ---

type CodeNotesRequest struct {
	GameID uint32 `json:"g"`
}

type CodeNote struct {
	Address string `json:"Address"`
	Note    string `json:"Note"`
	User    string `json:"User"`
}

type CodeNotesResponse struct {
	Envelope
	CodeNotes []CodeNote `json:"CodeNotes"`
}

func BuildCodeNotesRequest(req CodeNotesRequest) (Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Request{}, err
	}
	return Request{API: APICodeNotes, Body: body}, nil
}

func ParseCodeNotesResponse(resp Response) (CodeNotesResponse, error) {
	var out CodeNotesResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("server: decode codenotes response: %w", err)
	}
	return out, checkEnvelope(out.Envelope)
}
