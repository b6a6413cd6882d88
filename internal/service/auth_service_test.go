package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stash-it/backend/internal/model"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	r.byID[u.ID] = u
	return nil
}

func (r *fakeUserRepo) SetDB(db *gorm.DB) {}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, nil, "test-secret", time.Hour)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Bob", "Bob@Campus.EDU", "hunter2hunter2", "State College")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "bob@campus.edu" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "hunter2hunter2" {
		t.Fatalf("password stored in the clear")
	}

	token, logged, err := svc.Login(ctx, "bob@campus.edu", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != u.ID || token == "" {
		t.Fatalf("login returned wrong user or empty token")
	}

	ident, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.UserID != u.ID || ident.Name != "Bob" {
		t.Fatalf("identity wrong: %+v", ident)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"missing name", "", "a@b.edu", "longenough"},
		{"missing email", "Bob", "", "longenough"},
		{"short password", "Bob", "a@b.edu", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(newFakeUserRepo(), nil, "s", time.Hour)
			if _, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password, ""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), nil, "s", time.Hour)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Bob", "bob@campus.edu", "hunter2hunter2", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "Impostor", "BOB@campus.edu", "hunter2hunter2", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err=%v want ErrEmailTaken", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, nil, "s", time.Hour)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Bob", "bob@campus.edu", "hunter2hunter2", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@campus.edu", "hunter2hunter2"},
		{"wrong password", "bob@campus.edu", "wrong-password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err=%v want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, nil, "real-secret", time.Hour)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Bob", "bob@campus.edu", "hunter2hunter2", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.Login(ctx, "bob@campus.edu", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewAuthService(repo, nil, "other-secret", time.Hour)
	tests := []struct {
		name  string
		svc   AuthService
		token string
	}{
		{"empty token", svc, ""},
		{"garbage token", svc, "not.a.jwt"},
		{"wrong signing key", other, token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.Verify(ctx, tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err=%v want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, nil, "s", -time.Minute)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Bob", "bob@campus.edu", "hunter2hunter2", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.Login(ctx, "bob@campus.edu", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err=%v want ErrInvalidToken for expired token", err)
	}
}
