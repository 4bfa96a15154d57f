package databases

// go generate: mockery --name UserDatabase

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/store"
	"github.com/linesmerrill/civic-report-api/trust"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database. It backs
// the store's user directory with mongo.
type UserDatabase interface {
	store.UserDirectory
}

type userDatabase struct {
	db DatabaseHelper
	// serializes read-modify-write trust updates within this process
	mu sync.Mutex
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) Get(ctx context.Context, id string) (models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, errors.Wrapf(models.ErrNotFound, "user %s", id)
		}
		return models.User{}, err
	}
	return trust.Normalize(*user), nil
}

func (u *userDatabase) Save(ctx context.Context, user models.User) error {
	if user.ID == "" {
		return errors.Wrap(models.ErrValidation, "user id is required")
	}
	user = trust.Normalize(user)
	err := u.db.Collection(userName).ReplaceOne(ctx, bson.M{"_id": user.ID}, user, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "failed to save user %s", user.ID)
	}
	return nil
}

func (u *userDatabase) Update(ctx context.Context, id string, fn func(models.User) models.User) (models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	current, err := u.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	next := trust.Normalize(fn(current))
	next.ID = id
	if err := u.Save(ctx, next); err != nil {
		return models.User{}, err
	}
	return next, nil
}

func (u *userDatabase) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	opts := options.Find().SetSort(bson.D{{Key: "trustScore", Value: -1}})
	curr, err := u.db.Collection(userName).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &users)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = trust.Normalize(users[i])
	}
	store.SortByTrust(users)
	return users, nil
}
