// Package seed loads fixture data through the service layer, so seeded
// aggregates are derived by the ratings service like any other.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/store-ratings/internal/accounts"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/ratings"
	"github.com/Clark-Hu/store-ratings/internal/stores"
)

// Fixture is the JSON document accepted by Load.
type Fixture struct {
	Users   []User   `json:"users"`
	Stores  []Store  `json:"stores"`
	Ratings []Rating `json:"ratings"`
}

// User is a fixture account with a plaintext password.
type User struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Address  string      `json:"address"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// Store references its owner by email.
type Store struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
}

// Rating references the rater by email and the store by name.
type Rating struct {
	UserEmail string `json:"userEmail"`
	StoreName string `json:"storeName"`
	Rating    int    `json:"rating"`
}

// Services are the operations the loader goes through.
type Services struct {
	Accounts *accounts.Service
	Stores   *stores.Service
	Ratings  *ratings.Service
}

// Result summarises what Apply wrote.
type Result struct {
	Users   int
	Stores  int
	Ratings int
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// Apply writes f. Users and stores that already exist (same email, same
// name) are reused, so applying a fixture twice only resubmits its ratings.
func Apply(ctx context.Context, svc Services, f Fixture, logger zerolog.Logger) (Result, error) {
	var res Result
	userIDs := make(map[string]string, len(f.Users))
	for _, u := range f.Users {
		created, err := svc.Accounts.Create(ctx, accounts.CreateParams{
			Name:     u.Name,
			Email:    u.Email,
			Address:  u.Address,
			Password: u.Password,
			Role:     u.Role,
		})
		switch {
		case err == nil:
			res.Users++
		case errors.Is(err, domain.ErrConflict):
			created, err = findUser(ctx, svc.Accounts, u.Email)
			if err != nil {
				return res, err
			}
		default:
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		userIDs[strings.ToLower(u.Email)] = created.ID
	}

	storeIDs := make(map[string]string, len(f.Stores))
	for _, s := range f.Stores {
		existing, err := findStore(ctx, svc.Stores, s.Name)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return res, err
		}
		if err == nil {
			storeIDs[s.Name] = existing.ID
			continue
		}

		ownerID := ""
		if s.OwnerEmail != "" {
			id, ok := userIDs[strings.ToLower(s.OwnerEmail)]
			if !ok {
				return res, fmt.Errorf("seed store %s: owner %s not in fixture", s.Name, s.OwnerEmail)
			}
			ownerID = id
		}
		created, err := svc.Stores.Create(ctx, stores.CreateParams{
			Name:    s.Name,
			Email:   s.Email,
			Address: s.Address,
			OwnerID: ownerID,
		})
		if err != nil {
			return res, fmt.Errorf("seed store %s: %w", s.Name, err)
		}
		storeIDs[s.Name] = created.ID
		res.Stores++
	}

	for _, r := range f.Ratings {
		userID, ok := userIDs[strings.ToLower(r.UserEmail)]
		if !ok {
			return res, fmt.Errorf("seed rating: user %s not in fixture", r.UserEmail)
		}
		storeID, ok := storeIDs[r.StoreName]
		if !ok {
			return res, fmt.Errorf("seed rating: store %s not in fixture", r.StoreName)
		}
		if _, err := svc.Ratings.Submit(ctx, userID, storeID, r.Rating); err != nil {
			return res, fmt.Errorf("seed rating %s -> %s: %w", r.UserEmail, r.StoreName, err)
		}
		res.Ratings++
	}

	logger.Info().
		Int("users", res.Users).
		Int("stores", res.Stores).
		Int("ratings", res.Ratings).
		Msg("fixture applied")
	return res, nil
}

func findUser(ctx context.Context, svc *accounts.Service, email string) (domain.User, error) {
	users, err := svc.List(ctx, domain.UserFilter{Query: email})
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func findStore(ctx context.Context, svc *stores.Service, name string) (domain.Store, error) {
	list, err := svc.List(ctx, name)
	if err != nil {
		return domain.Store{}, err
	}
	for _, st := range list {
		if st.Name == name {
			return st, nil
		}
	}
	return domain.Store{}, domain.ErrNotFound
}
