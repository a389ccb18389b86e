// Package accounts manages user accounts: signup, login, admin provisioning,
// password changes and the admin user listing.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/events"
)

// Repository is the account storage used by Service.
type Repository interface {
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
}

// SignupParams is the self-service registration payload.
type SignupParams struct {
	Name     string
	Email    string
	Address  string
	Password string
}

// CreateParams is the admin provisioning payload.
type CreateParams struct {
	Name     string
	Email    string
	Address  string
	Password string
	Role     domain.Role
}

// Session is the result of a successful login.
type Session struct {
	User  domain.User
	Token auth.Token
}

// Service implements account operations.
type Service struct {
	repo      Repository
	tokens    *auth.Issuer
	publisher events.Publisher
	logger    zerolog.Logger
	cost      int
	now       func() time.Time
	newID     func() string
	compare   func(hash, password []byte) error

	// dummyHash is compared against on unknown emails so a miss costs the
	// same bcrypt work as a wrong password.
	dummyOnce sync.Once
	dummyHash []byte
}

// Option customises a Service.
type Option func(*Service)

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithPublisher sets where account events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds an account service issuing tokens with tokens.
func NewService(repo Repository, tokens *auth.Issuer, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		tokens:    tokens,
		publisher: events.Nop{},
		logger:    zerolog.Nop(),
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
		newID:     uuid.NewString,
		compare:   bcrypt.CompareHashAndPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup registers a normal user.
func (s *Service) Signup(ctx context.Context, p SignupParams) (domain.User, error) {
	return s.Create(ctx, CreateParams{
		Name:     p.Name,
		Email:    p.Email,
		Address:  p.Address,
		Password: p.Password,
		Role:     domain.RoleUser,
	})
}

// Create provisions an account with any role. A taken email yields domain.ErrConflict.
func (s *Service) Create(ctx context.Context, p CreateParams) (domain.User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Address = strings.TrimSpace(p.Address)

	var v domain.ValidationError
	domain.CheckUserName(&v, p.Name)
	domain.CheckEmail(&v, p.Email)
	domain.CheckAddress(&v, p.Address)
	domain.CheckPassword(&v, "password", p.Password)
	if !p.Role.Valid() {
		v.Add("role", "role must be one of admin, user, store_owner")
	}
	if err := v.Err(); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, domain.User{
		ID:           s.newID(),
		Name:         p.Name,
		Email:        p.Email,
		Address:      p.Address,
		Role:         p.Role,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, fmt.Errorf("%w: email %s is already registered", domain.ErrConflict, p.Email)
		}
		return domain.User{}, err
	}

	s.logger.Info().Str("user_id", u.ID).Str("role", u.Role.String()).Msg("user created")
	s.publish(ctx, events.UserCreated{UserID: u.ID, Role: u.Role.String(), OccurredAt: u.CreatedAt})
	return u, nil
}

// Login checks the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, domain.ErrNotFound) {
		_ = s.compare(s.unknownUserHash(), []byte(password))
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if s.compare([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, domain.ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: tok}, nil
}

func (s *Service) unknownUserHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), s.cost)
		if err != nil {
			s.logger.Error().Err(err).Msg("generate placeholder hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Authenticate resolves a bearer token to the current state of its user.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (domain.User, error) {
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.repo.FindUserByID(ctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: unknown subject", auth.ErrInvalidToken)
	}
	return u, err
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (domain.User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// List returns accounts matching filter.
func (s *Service) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	if filter.SortBy == "" {
		filter.SortBy = domain.SortByName
	}
	return s.repo.ListUsers(ctx, filter)
}

// ChangePassword replaces userID's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if s.compare([]byte(u.PasswordHash), []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}

	var v domain.ValidationError
	domain.CheckPassword(&v, "newPassword", next)
	if err := v.Err(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

// Delete removes an account. Accounts with ratings or a linked store are kept
// and domain.ErrConflict is returned.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("user deleted")
	s.publish(ctx, events.UserDeleted{UserID: id, OccurredAt: s.now().UTC()})
	return nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", evt.Name()).Msg("publish event failed")
	}
}
