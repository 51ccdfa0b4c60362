package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"saasbooks/internal/domain"
)

func newSessionFixture(t *testing.T, now *time.Time) (*SessionService, *mockSessionRepo, *mockUserRepo) {
	t.Helper()
	sessions := newMockSessionRepo()
	users := newMockUserRepo()
	_ = users.Create(context.Background(), domain.User{ID: "u1", Email: "user@example.com"})
	svc := NewSessionService(zap.NewNop(), sessions, users).WithClock(func() time.Time { return *now })
	return svc, sessions, users
}

func TestGenerateSessionToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := GenerateSessionToken()
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if len(token) != 32 {
			t.Fatalf("expected 32 chars, got %d (%s)", len(token), token)
		}
		if !IsPlausibleSessionToken(token) {
			t.Fatalf("expected plausible token, got %s", token)
		}
		if strings.ToLower(token) != token || strings.Contains(token, "=") {
			t.Fatalf("expected lowercase unpadded token, got %s", token)
		}
		if seen[token] {
			t.Fatalf("duplicate token %s", token)
		}
		seen[token] = true
	}
}

func TestHashSessionToken(t *testing.T) {
	a := HashSessionToken("abc")
	if a != HashSessionToken("abc") {
		t.Fatalf("expected deterministic hash")
	}
	if a != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected sha256 hex: %s", a)
	}
	if a == HashSessionToken("abd") {
		t.Fatalf("expected different hashes for different tokens")
	}
}

func TestIsPlausibleSessionToken(t *testing.T) {
	cases := map[string]bool{
		"":                                  false,
		"abcdefghijklmnopqrstuvwxyz234567":  true,
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ234567":  false,
		"abcdefghijklmnopqrstuvwxyz234561":  false,
		"abcdefghijklmnopqrstuvwxyz23456":   false,
		"abcdefghijklmnopqrstuvwxyz2345677": false,
	}
	for token, want := range cases {
		if got := IsPlausibleSessionToken(token); got != want {
			t.Fatalf("token %q: expected %v, got %v", token, want, got)
		}
	}
}

func TestCreateSessionStoresHashOnly(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, repo, _ := newSessionFixture(t, &now)

	session, err := svc.CreateSession(context.Background(), "tok", "u1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != HashSessionToken("tok") {
		t.Fatalf("expected id to be token hash")
	}
	if !session.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expected 30 day expiry, got %v", session.ExpiresAt)
	}
	if _, ok := repo.sessions["tok"]; ok {
		t.Fatalf("raw token must not be stored")
	}
}

func TestValidateSessionToken_Lifecycle(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		now := start
		svc, _, _ := newSessionFixture(t, &now)
		res, err := svc.ValidateSessionToken(ctx, "missing")
		if err != nil || res.Valid() {
			t.Fatalf("expected empty result, got %+v %v", res, err)
		}
	})

	t.Run("fresh session not renewed", func(t *testing.T) {
		now := start
		svc, repo, _ := newSessionFixture(t, &now)
		_, _ = svc.CreateSession(ctx, "tok", "u1")

		now = start.Add(10 * 24 * time.Hour)
		res, err := svc.ValidateSessionToken(ctx, "tok")
		if err != nil || !res.Valid() {
			t.Fatalf("expected valid session, got %+v %v", res, err)
		}
		if res.Renewed || repo.updates != 0 {
			t.Fatalf("expected no renewal at 20 days remaining")
		}
		if res.User.ID != "u1" {
			t.Fatalf("expected user u1, got %s", res.User.ID)
		}
	})

	t.Run("renewed at exactly 15 days remaining", func(t *testing.T) {
		now := start
		svc, repo, _ := newSessionFixture(t, &now)
		_, _ = svc.CreateSession(ctx, "tok", "u1")

		now = start.Add(15 * 24 * time.Hour)
		res, err := svc.ValidateSessionToken(ctx, "tok")
		if err != nil || !res.Valid() {
			t.Fatalf("expected valid session, got %+v %v", res, err)
		}
		if !res.Renewed {
			t.Fatalf("expected renewal")
		}
		want := now.Add(30 * 24 * time.Hour)
		if !res.Session.ExpiresAt.Equal(want) {
			t.Fatalf("expected expiry %v, got %v", want, res.Session.ExpiresAt)
		}
		if !repo.sessions[HashSessionToken("tok")].ExpiresAt.Equal(want) {
			t.Fatalf("expected renewed expiry persisted")
		}
	})

	t.Run("expired exactly at expiresAt", func(t *testing.T) {
		now := start
		svc, repo, _ := newSessionFixture(t, &now)
		_, _ = svc.CreateSession(ctx, "tok", "u1")

		now = start.Add(30 * 24 * time.Hour)
		res, err := svc.ValidateSessionToken(ctx, "tok")
		if err != nil || res.Valid() {
			t.Fatalf("expected empty result, got %+v %v", res, err)
		}
		if _, ok := repo.sessions[HashSessionToken("tok")]; ok {
			t.Fatalf("expected expired session deleted")
		}
	})

	t.Run("one second before expiry still valid", func(t *testing.T) {
		now := start
		svc, _, _ := newSessionFixture(t, &now)
		_, _ = svc.CreateSession(ctx, "tok", "u1")

		now = start.Add(30*24*time.Hour - time.Second)
		res, err := svc.ValidateSessionToken(ctx, "tok")
		if err != nil || !res.Valid() || !res.Renewed {
			t.Fatalf("expected valid renewed session, got %+v %v", res, err)
		}
	})

	t.Run("user removed", func(t *testing.T) {
		now := start
		svc, _, users := newSessionFixture(t, &now)
		_, _ = svc.CreateSession(ctx, "tok", "u1")
		delete(users.usersByID, "u1")

		res, err := svc.ValidateSessionToken(ctx, "tok")
		if err != nil || res.Valid() {
			t.Fatalf("expected empty result for orphaned session, got %+v %v", res, err)
		}
	})
}

func TestInvalidateSessions(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, repo, _ := newSessionFixture(t, &now)
	ctx := context.Background()

	_, _ = svc.CreateSession(ctx, "a", "u1")
	_, _ = svc.CreateSession(ctx, "b", "u1")
	_, _ = svc.CreateSession(ctx, "c", "u2")

	if err := svc.InvalidateSession(ctx, HashSessionToken("a")); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if res, _ := svc.ValidateSessionToken(ctx, "a"); res.Valid() {
		t.Fatalf("expected invalidated session to be gone")
	}

	n, err := svc.InvalidateAllSessions(ctx, "u1")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 remaining session removed, got %d %v", n, err)
	}
	if _, ok := repo.sessions[HashSessionToken("c")]; !ok {
		t.Fatalf("expected other user's session untouched")
	}
}

func TestPurgeExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc, repo, _ := newSessionFixture(t, &now)
	ctx := context.Background()

	_, _ = svc.CreateSession(ctx, "old", "u1")
	now = now.Add(31 * 24 * time.Hour)
	_, _ = svc.CreateSession(ctx, "new", "u1")

	n, err := svc.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 purged, got %d %v", n, err)
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected one session left, got %d", len(repo.sessions))
	}
}
