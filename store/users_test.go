package store

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/trust"
)

func TestUserDirectory_SeedNormalizesTier(t *testing.T) {
	d := NewUserDirectory(models.User{ID: "u1", TrustScore: 150, Tier: models.TierNewUser})

	u, err := d.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, u.TrustScore)
	assert.Equal(t, models.TierCivicGuardian, u.Tier)
}

func TestUserDirectory_GetMissing(t *testing.T) {
	d := NewUserDirectory()

	_, err := d.Get(context.Background(), "ghost")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = d.Update(context.Background(), "ghost", func(u models.User) models.User { return u })
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUserDirectory_SaveRequiresID(t *testing.T) {
	d := NewUserDirectory()

	err := d.Save(context.Background(), models.User{Name: "anon"})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestUserDirectory_UpdateIsAtomic(t *testing.T) {
	d := NewUserDirectory(models.User{ID: "u1"})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Update(ctx, "u1", func(u models.User) models.User {
				return trust.ApplyDelta(u, 1)
			})
		}()
	}
	wg.Wait()

	u, _ := d.Get(ctx, "u1")
	assert.Equal(t, 40, u.TrustScore)
	assert.Equal(t, models.TierContributor, u.Tier)
}

func TestUserDirectory_ListSortedByTrust(t *testing.T) {
	d := NewUserDirectory(
		models.User{ID: "c", TrustScore: 40},
		models.User{ID: "a", TrustScore: 90},
		models.User{ID: "b", TrustScore: 40, ReportsResolved: 3},
	)

	users, err := d.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a", users[0].ID)
	assert.Equal(t, "b", users[1].ID)
	assert.Equal(t, "c", users[2].ID)
}
