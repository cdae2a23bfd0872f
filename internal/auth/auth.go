package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alphabot-ai/fritter/internal/attach"
	"github.com/alphabot-ai/fritter/internal/model"
	"github.com/alphabot-ai/fritter/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired")
)

type Service struct {
	store      store.Store
	sessionTTL time.Duration
	cost       int
}

func NewService(store store.Store, sessionTTL time.Duration, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		store:      store,
		sessionTTL: sessionTTL,
		cost:       cost,
	}
}

// Register creates an account. The username must be unused.
func (s *Service) Register(ctx context.Context, username, password string) (model.User, error) {
	if err := attach.ValidateUsername(username); err != nil {
		return model.User{}, err
	}
	if err := attach.ValidatePassword(password); err != nil {
		return model.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		DateJoined:   time.Now(),
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.User{}, fmt.Errorf("username %s is already taken: %w", username, err)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (model.Session, model.User, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Session{}, model.User{}, ErrInvalidCredentials
		}
		return model.Session{}, model.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.Session{}, model.User{}, ErrInvalidCredentials
	}

	tokenValue, err := randomToken(32)
	if err != nil {
		return model.Session{}, model.User{}, err
	}
	session := model.Session{
		Token:     tokenValue,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return model.Session{}, model.User{}, err
	}
	return session, user, nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (model.User, error) {
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return model.User{}, err
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, token)
		return model.User{}, ErrSessionExpired
	}
	return s.store.GetUser(ctx, session.UserID)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
