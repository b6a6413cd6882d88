package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stash-it/backend/internal/cache"
	"github.com/stash-it/backend/internal/model"
	"github.com/stash-it/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Claims is the JWT payload minted at login. ID (jti) keys the Redis
// denylist entry written at logout.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Identity is the verified result of a bearer credential.
type Identity struct {
	UserID string
	Name   string
}

type AuthService interface {
	Register(ctx context.Context, name, email, password, college string) (*model.User, error)
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	Logout(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*Identity, error)
}

type authService struct {
	users  repository.UserRepository
	cache  *cache.Cache
	secret []byte
	ttl    time.Duration
}

func NewAuthService(users repository.UserRepository, c *cache.Cache, secret string, ttl time.Duration) AuthService {
	return &authService{users: users, cache: c, secret: []byte(secret), ttl: ttl}
}

func (s *authService) Register(ctx context.Context, name, email, password, college string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || len(password) < 8 {
		return nil, errors.New("name, email and a password of at least 8 characters are required")
	}
	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		College:      strings.TrimSpace(college),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Logout denylists the token's jti until the token would have expired
// anyway. An already-invalid token is not an error.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	var until time.Time
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	} else {
		until = time.Now().Add(s.ttl)
	}
	return s.cache.DenyToken(ctx, claims.ID, until)
}

// Verify authenticates a bearer credential. All failure modes (bad
// signature, expired, denylisted) collapse into ErrInvalidToken so the
// caller cannot distinguish them.
func (s *authService) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if s.cache.TokenDenied(ctx, claims.ID) {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: claims.Subject, Name: claims.Name}, nil
}

func (s *authService) parse(token string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
