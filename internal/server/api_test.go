package server

import (
	"context"
	"testing"
)

func TestLoginRoundTrip(t *testing.T) {
	req, err := BuildLoginRequest(LoginRequest{Username: "ash", Password: "pikachu"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.API != APILogin {
		t.Fatalf("expected APILogin, got %v", req.API)
	}

	caller := CallerFunc(func(ctx context.Context, r Request) (Response, error) {
		return Response{Status: 200, Body: []byte(`{"Success":true,"User":"ash","Token":"tok123"}`)}, nil
	})
	resp, err := caller.Call(context.Background(), req)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	out, err := ParseLoginResponse(resp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Username != "ash" || out.Token != "tok123" {
		t.Fatalf("unexpected login response: %+v", out)
	}
}

func TestParseResponseReturnsSemanticError(t *testing.T) {
	resp := Response{Status: 200, Body: []byte(`{"Success":false,"Error":"invalid credentials"}`)}
	_, err := ParseLoginResponse(resp)
	if err == nil {
		t.Fatal("expected a semantic error")
	}
	if !IsSemantic(err) {
		t.Fatalf("expected IsSemantic(err) to be true, got false for %v", err)
	}
	if err.Error() != "invalid credentials" {
		t.Fatalf("expected error message passthrough, got %q", err.Error())
	}
}

func TestAwardAchievementCoercesAlreadyUnlocked(t *testing.T) {
	resp := Response{Status: 200, Body: []byte(`{"Success":false,"Error":"User already has this achievement unlocked."}`)}
	out, err := ParseAwardAchievementResponse(resp)
	if err != nil {
		t.Fatalf("expected already-unlocked to be coerced to success, got %v", err)
	}
	if !out.Success {
		t.Fatal("expected Success to be coerced true")
	}
}

func TestAwardAchievementDoesNotCoerceOtherErrors(t *testing.T) {
	resp := Response{Status: 200, Body: []byte(`{"Success":false,"Error":"unknown achievement"}`)}
	_, err := ParseAwardAchievementResponse(resp)
	if err == nil || !IsSemantic(err) {
		t.Fatalf("expected an uncoerced semantic error, got %v", err)
	}
}

func TestSubmitLBEntryDoesNotCoerceAlreadyHas(t *testing.T) {
	// Open Question #2: the "User already has" coercion is scoped to
	// unlocks only, never leaderboard submissions.
	resp := Response{Status: 200, Body: []byte(`{"Success":false,"Error":"User already has a better score"}`)}
	_, err := ParseSubmitLBEntryResponse(resp)
	if err == nil || !IsSemantic(err) {
		t.Fatalf("expected submitlbentry to surface this as an ordinary semantic error, got %v", err)
	}
}

func TestGameIDRoundTrip(t *testing.T) {
	req, err := BuildGameIDRequest(GameIDRequest{Hash: "deadbeef"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	resp := Response{Status: 200, Body: []byte(`{"Success":true,"GameID":7}`)}
	out, err := ParseGameIDResponse(resp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.GameID != 7 {
		t.Fatalf("expected GameID 7, got %d", out.GameID)
	}
	_ = req
}
