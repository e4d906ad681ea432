package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"

	"building_automation/internal/models"
	"building_automation/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var panelAuth = AuthConfig{SigningKey: "panel-signing-key", TokenTTL: time.Hour}

// operatorStore is an in-memory repository.Operators keyed by lowercase username.
type operatorStore struct {
	users   map[string]*models.User
	nextID  int
	failOn  error
	creates int
	lookups int
}

func newOperatorStore(users ...*models.User) *operatorStore {
	s := &operatorStore{users: map[string]*models.User{}, nextID: 100}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

func (s *operatorStore) Create(_ context.Context, username, hash string) (int, error) {
	s.creates++
	if s.failOn != nil {
		return 0, s.failOn
	}
	key := strings.ToLower(strings.TrimSpace(username))
	if _, ok := s.users[key]; ok {
		return 0, repository.ErrUsernameTaken
	}
	s.nextID++
	s.users[key] = &models.User{ID: s.nextID, Username: key, PasswordHash: hash}
	return s.nextID, nil
}

func (s *operatorStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	s.lookups++
	if s.failOn != nil {
		return nil, s.failOn
	}
	return s.users[strings.ToLower(strings.TrimSpace(username))], nil
}

func operator(t *testing.T, id int, name, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return &models.User{ID: id, Username: name, PasswordHash: string(hash)}
}

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims *Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestAuthService_SignUp(t *testing.T) {
	tests := []struct {
		name      string
		store     *operatorStore
		username  string
		password  string
		wantErr   error
		anyErr    bool
		wantRepo  int
		wantStore bool
	}{
		{name: "new operator", store: newOperatorStore(), username: "facility", password: "boiler-room", wantRepo: 1, wantStore: true},
		{name: "blank username", store: newOperatorStore(), username: "  ", password: "pw", wantErr: ErrEmptyCredentials},
		{name: "blank password", store: newOperatorStore(), username: "night-shift", password: "   ", wantErr: ErrEmptyCredentials},
		{
			name:     "taken",
			store:    newOperatorStore(&models.User{ID: 1, Username: "facility"}),
			username: "Facility", password: "pw",
			wantErr: repository.ErrUsernameTaken, wantRepo: 1,
		},
		{
			name:     "storage failure",
			store:    &operatorStore{users: map[string]*models.User{}, failOn: errors.New("database is locked")},
			username: "facility", password: "pw",
			anyErr: true, wantRepo: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(tt.store, panelAuth)
			id, err := svc.SignUp(context.Background(), tt.username, tt.password)

			if tt.store.creates != tt.wantRepo {
				t.Fatalf("Create calls = %d, want %d", tt.store.creates, tt.wantRepo)
			}
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.anyErr:
				if err == nil {
					t.Fatal("expected error")
				}
				return
			case err != nil:
				t.Fatalf("SignUp: %v", err)
			}

			stored := tt.store.users[tt.username]
			if !tt.wantStore || stored == nil || stored.ID != id {
				t.Fatalf("operator not stored: id=%d stored=%+v", id, stored)
			}
			if stored.PasswordHash == tt.password {
				t.Fatal("password stored in clear text")
			}
			if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(tt.password)); err != nil {
				t.Fatalf("stored hash does not verify: %v", err)
			}
		})
	}
}

func TestAuthService_GenerateToken(t *testing.T) {
	tests := []struct {
		name     string
		store    *operatorStore
		username string
		password string
		wantErr  error
		anyErr   bool
		wantUID  int
	}{
		{name: "valid credentials", store: newOperatorStore(operator(t, 7, "facility", "letmein")), username: "facility", password: "letmein", wantUID: 7},
		{name: "unknown operator", store: newOperatorStore(), username: "ghost", password: "pw", wantErr: ErrUserNotFound},
		{name: "wrong password", store: newOperatorStore(operator(t, 1, "facility", "correct")), username: "facility", password: "wrong", wantErr: ErrInvalidPassword},
		{
			name:     "storage failure",
			store:    &operatorStore{users: map[string]*models.User{}, failOn: errors.New("query failed")},
			username: "facility", password: "pw", anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(tt.store, panelAuth)
			token, err := svc.GenerateToken(context.Background(), tt.username, tt.password)

			if tt.store.lookups != 1 {
				t.Fatalf("GetByUsername calls = %d, want 1", tt.store.lookups)
			}
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			case tt.anyErr:
				if err == nil {
					t.Fatal("expected error")
				}
				return
			case err != nil:
				t.Fatalf("GenerateToken: %v", err)
			}

			uid, err := svc.ParseToken(token)
			if err != nil {
				t.Fatalf("ParseToken: %v", err)
			}
			if uid != tt.wantUID {
				t.Fatalf("uid = %d, want %d", uid, tt.wantUID)
			}
		})
	}
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	store := newOperatorStore()
	svc := NewAuthService(store, panelAuth)

	id, err := svc.SignUp(context.Background(), "Night-Shift", "hvac")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	token, err := svc.GenerateToken(context.Background(), "night-shift", "hvac")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if uid, err := svc.ParseToken(token); err != nil || uid != id {
		t.Fatalf("ParseToken = %d, %v; want %d", uid, err, id)
	}
}

func TestAuthService_ParseToken_Rejections(t *testing.T) {
	svc := NewAuthService(newOperatorStore(), panelAuth)
	key := []byte(panelAuth.SigningKey)
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	expired.IssuedAt = jwt.NewNumericDate(now.Add(-2 * time.Hour))

	foreign := valid
	foreign.Issuer = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed", token: "not-a-jwt"},
		{name: "other key", token: signClaims(t, jwt.SigningMethodHS256, []byte("different-key"), &Claims{RegisteredClaims: valid, UserID: 5})},
		{name: "expired", token: signClaims(t, jwt.SigningMethodHS256, key, &Claims{RegisteredClaims: expired, UserID: 11})},
		{name: "rsa signed", token: signClaims(t, jwt.SigningMethodRS256, rsaKey, &Claims{RegisteredClaims: valid, UserID: 12})},
		{name: "foreign issuer", token: signClaims(t, jwt.SigningMethodHS256, key, &Claims{RegisteredClaims: foreign, UserID: 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if uid, err := svc.ParseToken(tt.token); err == nil {
				t.Fatalf("expected rejection, got uid %d", uid)
			}
		})
	}
}

func TestAuthService_IssuedClaims(t *testing.T) {
	svc := NewAuthService(newOperatorStore(), AuthConfig{SigningKey: "k", TokenTTL: 15 * time.Minute})
	fixed := time.Date(2025, 1, 6, 7, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	token, err := svc.issueToken(99)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if claims.UserID != 99 || claims.Issuer != tokenIssuer {
		t.Fatalf("claims = %+v", claims)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Fatalf("lifetime = %v, want 15m", got)
	}
}

func TestAuthService_DefaultTTL(t *testing.T) {
	svc := NewAuthService(newOperatorStore(), AuthConfig{SigningKey: "k"})
	if svc.ttl != defaultTokenTTL {
		t.Fatalf("ttl = %v, want %v", svc.ttl, defaultTokenTTL)
	}
}

func TestAuthService_NoSigningKey(t *testing.T) {
	svc := NewAuthService(newOperatorStore(), AuthConfig{})
	if _, err := svc.issueToken(1); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("issueToken err = %v", err)
	}
	if _, err := svc.ParseToken("x.y.z"); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("ParseToken err = %v", err)
	}
}
