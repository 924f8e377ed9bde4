package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/id"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists accounts. CreateUser returns domain.ErrUsernameTaken on a duplicate name.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	UserByUsername(ctx context.Context, username string) (domain.User, error)
	UserByID(ctx context.Context, userID string) (domain.User, error)
}

// Session is returned after a successful register or login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

type Service struct {
	store  UserStore
	tokens *Tokens
	now    func() time.Time
	idGen  func() string
}

func NewService(store UserStore, tokens *Tokens) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
		idGen:  id.New,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 32 {
		return Session{}, domain.Invalid("username", "must be 3-32 characters")
	}
	if len(password) < 6 {
		return Session{}, domain.Invalid("password", "must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, err
	}
	user := domain.User{ID: s.idGen(), Username: username, PasswordHash: hash, CreatedAt: s.now()}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, domain.Invalid("credentials", "username and password are required")
	}
	user, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, domain.ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return Session{}, domain.ErrUnauthorized
	}
	return s.issue(user)
}

// Me returns the account behind a verified user id.
func (s *Service) Me(ctx context.Context, userID string) (domain.User, error) {
	return s.store.UserByID(ctx, userID)
}

func (s *Service) issue(user domain.User) (Session, error) {
	token, err := s.tokens.Sign(user.ID, user.Username)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: s.tokens.now().Add(s.tokens.TTL()), User: user}, nil
}
