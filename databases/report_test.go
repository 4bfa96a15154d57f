package databases_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/civic-report-api/config"
	"github.com/linesmerrill/civic-report-api/databases"
	"github.com/linesmerrill/civic-report-api/databases/mocks"
	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/store"
)

var _ store.Persister = databases.NewReportDatabase(nil)

func TestNewReportDatabase(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	conf := config.New()

	dbClient, err := databases.NewClient(conf)
	assert.NoError(t, err)

	db := databases.NewDatabase(conf, dbClient)

	reportDB := databases.NewReportDatabase(db)

	assert.NotEmpty(t, reportDB)
}

func TestReportDatabase_SaveReport(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	good := models.Report{ID: "r1", Title: "Pothole"}
	bad := models.Report{ID: "r2", Title: "Broken light"}

	collectionHelper.(*mocks.CollectionHelper).
		On("ReplaceOne", context.Background(), bson.M{"_id": "r1"}, good, mock.Anything).
		Return(nil)
	collectionHelper.(*mocks.CollectionHelper).
		On("ReplaceOne", context.Background(), bson.M{"_id": "r2"}, bad, mock.Anything).
		Return(errors.New("mocked-error"))

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	assert.NoError(t, reportDba.SaveReport(context.Background(), good))
	assert.EqualError(t, reportDba.SaveReport(context.Background(), bad), "failed to save report r2: mocked-error")
	collectionHelper.(*mocks.CollectionHelper).AssertNumberOfCalls(t, "ReplaceOne", 2)
}

func TestReportDatabase_LoadReports(t *testing.T) {
	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	cursorHelper.(*mocks.CursorHelper).
		On("All", context.Background(), mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Report)
		*arg = []models.Report{{ID: "a"}, {ID: "b"}}
	})
	cursorHelper.(*mocks.CursorHelper).
		On("Close", context.Background()).
		Return(nil)

	collectionHelper.(*mocks.CollectionHelper).
		On("Find", context.Background(), bson.D{}, mock.Anything).
		Return(cursorHelper, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	reports, err := reportDba.LoadReports(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []models.Report{{ID: "a"}, {ID: "b"}}, reports)
	cursorHelper.(*mocks.CursorHelper).AssertCalled(t, "Close", context.Background())
}

func TestReportDatabase_LoadReportsFindError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.
		On("Find", context.Background(), bson.D{}, mock.Anything).
		Return(nil, errors.New("mocked-error"))
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	reports, err := databases.NewReportDatabase(dbHelper).LoadReports(context.Background())
	assert.Nil(t, reports)
	assert.EqualError(t, err, "mocked-error")
}

func TestReportDatabase_EnsureIndexes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.
		On("CreateIndexes", context.Background(), mock.MatchedBy(func(m []mongo.IndexModel) bool {
			return len(m) == 4
		})).
		Return(nil)
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	assert.NoError(t, databases.NewReportDatabase(dbHelper).EnsureIndexes(context.Background()))
	collectionHelper.AssertExpectations(t)
}
