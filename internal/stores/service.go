// Package stores is the store registry: provisioning, lookup, search and owner
// assignment. Aggregates are read-only here; only the ratings service writes them.
package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/events"
)

// Repository is the store storage used by Service.
type Repository interface {
	ListStores(ctx context.Context, query string) ([]domain.Store, error)
	FindStoreByID(ctx context.Context, id string) (domain.Store, error)
	CreateStore(ctx context.Context, st domain.Store) (domain.Store, error)
	AssignStoreOwner(ctx context.Context, storeID, ownerID string) (domain.Store, error)
	DeleteStore(ctx context.Context, id string) error
}

// UserDirectory resolves prospective owners.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id string) (domain.User, error)
}

// CreateParams is the admin payload for a new store.
type CreateParams struct {
	Name    string
	Email   string
	Address string
	OwnerID string
}

// Service implements the store registry.
type Service struct {
	repo      Repository
	users     UserDirectory
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sets where store events are sent.
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

// NewService wires the registry.
func NewService(repo Repository, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		users:     users,
		publisher: events.Nop{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every store with its live aggregate, optionally narrowed by a
// case-insensitive match on name or address.
func (s *Service) List(ctx context.Context, query string) ([]domain.Store, error) {
	return s.repo.ListStores(ctx, query)
}

// Get returns one store.
func (s *Service) Get(ctx context.Context, id string) (domain.Store, error) {
	return s.repo.FindStoreByID(ctx, id)
}

// Create provisions a store with a 0.0/0 aggregate.
func (s *Service) Create(ctx context.Context, p CreateParams) (domain.Store, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.Address = strings.TrimSpace(p.Address)
	p.OwnerID = strings.TrimSpace(p.OwnerID)

	var v domain.ValidationError
	switch n := utf8.RuneCountInString(p.Name); {
	case n == 0:
		v.Add("name", "name is required")
	case n > domain.MaxNameLen:
		v.Add("name", "name must not exceed 60 characters")
	}
	domain.CheckEmail(&v, p.Email)
	domain.CheckAddress(&v, p.Address)
	if err := v.Err(); err != nil {
		return domain.Store{}, err
	}
	if p.OwnerID != "" {
		if err := s.checkOwner(ctx, p.OwnerID); err != nil {
			return domain.Store{}, err
		}
	}

	st, err := s.repo.CreateStore(ctx, domain.Store{
		ID:        s.newID(),
		Name:      p.Name,
		Email:     p.Email,
		Address:   p.Address,
		OwnerID:   p.OwnerID,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Store{}, err
	}

	s.logger.Info().Str("store_id", st.ID).Str("owner_id", st.OwnerID).Msg("store created")
	s.publish(ctx, events.StoreCreated{StoreID: st.ID, OwnerID: st.OwnerID, OccurredAt: st.CreatedAt})
	return st, nil
}

// UpdateOwner assigns ownerID to storeID; an empty ownerID clears the owner.
// The owner must be a store_owner not already linked to another store.
func (s *Service) UpdateOwner(ctx context.Context, storeID, ownerID string) (domain.Store, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID != "" {
		if err := s.checkOwner(ctx, ownerID); err != nil {
			return domain.Store{}, err
		}
	}
	st, err := s.repo.AssignStoreOwner(ctx, storeID, ownerID)
	if err != nil {
		return domain.Store{}, err
	}
	s.logger.Info().Str("store_id", st.ID).Str("owner_id", ownerID).Msg("store owner updated")
	return st, nil
}

// Delete removes a store that has no ratings.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteStore(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("store_id", id).Msg("store deleted")
	s.publish(ctx, events.StoreDeleted{StoreID: id, OccurredAt: s.now().UTC()})
	return nil
}

func (s *Service) checkOwner(ctx context.Context, ownerID string) error {
	owner, err := s.users.FindUserByID(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("owner %q: %w", ownerID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if owner.Role != domain.RoleStoreOwner {
		var v domain.ValidationError
		v.Add("ownerId", fmt.Sprintf("user %s has role %s, want store_owner", ownerID, owner.Role))
		return v.Err()
	}
	return nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", evt.Name()).Msg("publish event failed")
	}
}
