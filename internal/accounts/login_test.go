package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/memory"
)

func TestLoginRunsBcryptForUnknownEmail(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), auth.NewIssuer("secret", time.Hour), WithBcryptCost(bcrypt.MinCost))
	_, err := svc.Signup(ctx, SignupParams{
		Name:     "Known Customer With Account",
		Email:    "known@email.com",
		Address:  "1 Known Road",
		Password: "Known123!",
	})
	require.NoError(t, err)

	var hashes [][]byte
	svc.compare = func(hash, password []byte) error {
		hashes = append(hashes, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err = svc.Login(ctx, "nobody@email.com", "Known123!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "known@email.com", "Wrong123!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.Len(t, hashes, 2, "unknown and known emails both pay for one bcrypt comparison")
	cost, err := bcrypt.Cost(hashes[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost, "placeholder hash uses the configured cost")

	_, err = svc.Login(ctx, "other@email.com", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.Len(t, hashes, 3)
	assert.Equal(t, hashes[0], hashes[2], "placeholder hash is generated once")
}
