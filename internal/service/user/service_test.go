package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"frunk-store/internal/domain"
)

// memoryRepo is a lightweight in-memory user repository for tests.
type memoryRepo struct {
	byName map[string]domain.User
}

type memorySessionRepo struct {
	sessions map[string]domain.Session
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byName: make(map[string]domain.User)}
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]domain.Session)}
}

func (r *memoryRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	key := strings.ToLower(u.Username)
	if _, exists := r.byName[key]; exists {
		return nil, domain.ErrAlreadyExists
	}
	clone := u
	if clone.ID == "" {
		clone.ID = "user-" + key
	}
	r.byName[key] = clone
	return &clone, nil
}

func (r *memoryRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := r.byName[strings.ToLower(username)]; ok {
		clone := u
		return &clone, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.byName {
		if u.ID == id {
			clone := u
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memorySessionRepo) Create(_ context.Context, s domain.Session) error {
	if _, exists := r.sessions[s.Token]; exists {
		return domain.ErrAlreadyExists
	}
	r.sessions[s.Token] = s
	return nil
}

func (r *memorySessionRepo) Get(_ context.Context, token string) (*domain.Session, error) {
	s, ok := r.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := s
	return &clone, nil
}

func (r *memorySessionRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.sessions[token]; !ok {
		return domain.ErrNotFound
	}
	delete(r.sessions, token)
	return nil
}

func TestSignupAndLogin_SucceedsWithTrimmedPassword(t *testing.T) {
	svc := New(newMemoryRepo(), newMemorySessionRepo(), nil)
	ctx := context.Background()

	u, err := svc.Signup(ctx, Credentials{Username: " driver ", Password: " Abcdefg1 "})
	if err != nil {
		t.Fatalf("signup returned error: %v", err)
	}
	if u == nil || u.Username != "driver" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "Abcdefg1" {
		t.Fatalf("password stored in clear")
	}

	_, token, err := svc.Login(ctx, Credentials{Username: "Driver", Password: "Abcdefg1"})
	if err != nil {
		t.Fatalf("login failed with trimmed password: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a session token")
	}

	me, err := svc.LookupByToken(ctx, token)
	if err != nil || me.ID != u.ID {
		t.Fatalf("LookupByToken: %+v %v", me, err)
	}
}

func TestLogin_AcceptsPaddedUsername(t *testing.T) {
	svc := New(newMemoryRepo(), newMemorySessionRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, Credentials{Username: " bob", Password: "Abcdefg1"}); err != nil {
		t.Fatalf("signup returned error: %v", err)
	}
	u, _, err := svc.Login(ctx, Credentials{Username: " bob", Password: "Abcdefg1"})
	if err != nil {
		t.Fatalf("login with the signup input failed: %v", err)
	}
	if u.Username != "bob" {
		t.Fatalf("unexpected username %q", u.Username)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc := New(newMemoryRepo(), newMemorySessionRepo(), nil)
	ctx := context.Background()

	cases := []Credentials{
		{Username: "ab", Password: "Abcdefg1"},
		{Username: "has space", Password: "Abcdefg1"},
		{Username: "driver", Password: "short"},
	}
	for _, in := range cases {
		if _, err := svc.Signup(ctx, in); !errors.Is(err, domain.ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %+v, got %v", in, err)
		}
	}
}

func TestValidatePassword_FailsOnWeakValues(t *testing.T) {
	cases := []struct {
		name string
		pass string
	}{
		{"too short", "Abc1"},
		{"no upper", "abcdefg1"},
		{"no lower", "ABCDEFG1"},
		{"no digit", "Abcdefgh"},
	}
	for _, tc := range cases {
		if err := validatePassword(tc.pass, 8); err == nil {
			t.Fatalf("expected error for case %s", tc.name)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := New(newMemoryRepo(), newMemorySessionRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, Credentials{Username: "driver", Password: "Abcdefg1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, _, err := svc.Login(ctx, Credentials{Username: "driver", Password: "wrongpass"}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, Credentials{Username: "missing", Password: "Abcdefg1"}); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for missing user, got %v", err)
	}
}

func TestLookupByToken_ExpiredAndRevoked(t *testing.T) {
	sessions := newMemorySessionRepo()
	svc := New(newMemoryRepo(), sessions, nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, Credentials{Username: "driver", Password: "Abcdefg1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, token, err := svc.Login(ctx, Credentials{Username: "driver", Password: "Abcdefg1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.LookupByToken(ctx, token); err != ErrInvalidToken {
		t.Fatalf("expected revoked token rejected, got %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("second logout should be a no-op, got %v", err)
	}

	_, token, _ = svc.Login(ctx, Credentials{Username: "driver", Password: "Abcdefg1"})
	svc.sessions.now = func() time.Time { return time.Now().Add(svc.sessionTTL + time.Hour) }
	if _, err := svc.LookupByToken(ctx, token); err != ErrInvalidToken {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
	if _, ok := sessions.sessions[token]; ok {
		t.Fatalf("expired session should be deleted")
	}
}
