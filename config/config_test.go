package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/civic-report-api/models"
)

func TestNew(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
}

func TestNewDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("CONSENSUS_THRESHOLD", "")
	t.Setenv("TRANSITION_POLICY", "")
	t.Setenv("STATS_CACHE_TTL", "")
	conf := New()

	assert.Equal(t, "8080", conf.Port)
	assert.Equal(t, 5, conf.ConsensusThreshold)
	assert.Equal(t, "strict", conf.TransitionPolicy)
	assert.Equal(t, 10*time.Second, conf.StatsCacheTTL)
}

func TestNewFileOverlayLosesToEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "civic.yaml")
	err := os.WriteFile(path, []byte(`
dbName: from-file
port: "9000"
consensusThreshold: 3
transitionPolicy: relaxed
demoFeedSchedule: "@every 1m"
statsCacheTtl: 30s
`), 0o600)
	require.NoError(t, err)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_NAME", "")
	t.Setenv("PORT", "9100")
	t.Setenv("CONSENSUS_THRESHOLD", "")
	t.Setenv("TRANSITION_POLICY", "")
	t.Setenv("DEMO_FEED_SCHEDULE", "")
	t.Setenv("STATS_CACHE_TTL", "")

	conf := New()

	assert.Equal(t, "from-file", conf.DatabaseName)
	assert.Equal(t, "9100", conf.Port)
	assert.Equal(t, 3, conf.ConsensusThreshold)
	assert.Equal(t, "relaxed", conf.TransitionPolicy)
	assert.Equal(t, "@every 1m", conf.DemoFeedSchedule)
	assert.Equal(t, 30*time.Second, conf.StatsCacheTTL)
}

func TestNewSeedUsersFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "civic.yaml")
	err := os.WriteFile(path, []byte(`
seedUsers:
  - id: asha
    name: Asha
    role: citizen
    trustScore: 20
  - id: ward-office
    role: AUTHORITY
`), 0o600)
	require.NoError(t, err)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SEED_USERS", "")

	conf := New()

	require.Len(t, conf.SeedUsers, 2)
	asha := conf.SeedUsers[0].User()
	assert.Equal(t, models.User{ID: "asha", Name: "Asha", Role: models.RoleCitizen, TrustScore: 20}, asha)
	assert.Equal(t, models.RoleAuthority, conf.SeedUsers[1].User().Role)
}

func TestNewSeedUsersFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SEED_USERS", "asha:CITIZEN:35, ward-office:AUTHORITY,bare,,odd:CITIZEN:lots")

	conf := New()

	require.Len(t, conf.SeedUsers, 4)
	assert.Equal(t, SeedUser{ID: "asha", Name: "asha", Role: "CITIZEN", TrustScore: 35}, conf.SeedUsers[0])
	assert.Equal(t, "AUTHORITY", conf.SeedUsers[1].Role)
	assert.Equal(t, models.RoleCitizen, conf.SeedUsers[2].User().Role)
	assert.Zero(t, conf.SeedUsers[3].TrustScore)
}

func TestNewIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CONSENSUS_THRESHOLD", "many")
	t.Setenv("STATS_CACHE_TTL", "soon")
	conf := New()

	assert.Equal(t, 5, conf.ConsensusThreshold)
	assert.Equal(t, 10*time.Second, conf.StatsCacheTTL)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()

	ErrorStatus("error it borked", http.StatusBadRequest, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "error it borked", body.Response.Message)
	assert.Equal(t, "bad request", body.Response.Error)
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(1))
	assert.False(t, l.Core().Enabled(-1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(2))
	assert.False(t, l.Core().Enabled(0))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}
