package store

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/trust"
)

// UserDirectory is the identity collaborator. The engine only reads users and
// rewrites their trust fields through Update.
type UserDirectory interface {
	Get(ctx context.Context, id string) (models.User, error)
	Save(ctx context.Context, u models.User) error
	// Update applies fn to the stored user atomically and returns the result
	Update(ctx context.Context, id string, fn func(models.User) models.User) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

// NewUserDirectory returns an in-memory UserDirectory
func NewUserDirectory(seed ...models.User) UserDirectory {
	d := &memoryUsers{users: make(map[string]models.User)}
	for _, u := range seed {
		d.users[u.ID] = trust.Normalize(u)
	}
	return d
}

func (d *memoryUsers) Get(ctx context.Context, id string) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return models.User{}, errors.Wrapf(models.ErrNotFound, "user %s", id)
	}
	return u, nil
}

func (d *memoryUsers) Save(ctx context.Context, u models.User) error {
	if u.ID == "" {
		return errors.Wrap(models.ErrValidation, "user id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = trust.Normalize(u)
	return nil
}

func (d *memoryUsers) Update(ctx context.Context, id string, fn func(models.User) models.User) (models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return models.User{}, errors.Wrapf(models.ErrNotFound, "user %s", id)
	}
	u = trust.Normalize(fn(u))
	u.ID = id
	d.users[id] = u
	return u, nil
}

func (d *memoryUsers) List(ctx context.Context) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u)
	}
	SortByTrust(out)
	return out, nil
}

// SortByTrust orders users for the leaderboard: highest score first, then by
// resolved reports, then by id for a stable result
func SortByTrust(users []models.User) {
	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if a.TrustScore != b.TrustScore {
			return a.TrustScore > b.TrustScore
		}
		if a.ReportsResolved != b.ReportsResolved {
			return a.ReportsResolved > b.ReportsResolved
		}
		return a.ID < b.ID
	})
}
