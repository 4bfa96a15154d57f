package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/linesmerrill/civic-report-api/models"
)

// Config holds the project config values
type Config struct {
	URL                string        `yaml:"dbUri"`
	DatabaseName       string        `yaml:"dbName"`
	BaseURL            string        `yaml:"baseUrl"`
	Port               string        `yaml:"port"`
	Environment        string        `yaml:"environment"`
	RedisAddr          string        `yaml:"redisAddr"`
	JWTSecret          string        `yaml:"jwtSecret"`
	ConsensusThreshold int           `yaml:"consensusThreshold"`
	TransitionPolicy   string        `yaml:"transitionPolicy"`
	DemoFeedSchedule   string        `yaml:"demoFeedSchedule"`
	StatsCacheTTL      time.Duration `yaml:"statsCacheTtl"`
	SeedUsers          []SeedUser    `yaml:"seedUsers"`
}

// SeedUser is a user registered at startup when the directory lacks it
type SeedUser struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	TrustScore int    `yaml:"trustScore"`
}

// User converts the seed into a directory entry
func (s SeedUser) User() models.User {
	role := models.Role(strings.ToUpper(s.Role))
	if role == "" {
		role = models.RoleCitizen
	}
	return models.User{ID: s.ID, Name: s.Name, Role: role, TrustScore: s.TrustScore}
}

// New sets up all config related services
func New() *Config {
	conf := &Config{
		Port:               "8080",
		Environment:        "local",
		ConsensusThreshold: 5,
		TransitionPolicy:   "strict",
		StatsCacheTTL:      10 * time.Second,
	}

	var fileErr error
	path := os.Getenv("CONFIG_FILE")
	if path != "" {
		fileErr = conf.load(path)
	}
	conf.overlayEnv()

	//setup zap logger and replace default logger
	logger, err := setLogger(conf.Environment)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	if fileErr != nil {
		zap.S().Errorw("ignoring config file", "path", path, "error", fileErr)
	}
	return conf
}

func (c *Config) load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrap(err, "parse config file")
	}
	return nil
}

// overlayEnv lets every set environment variable win over the file
func (c *Config) overlayEnv() {
	setString(&c.URL, "DB_URI")
	setString(&c.DatabaseName, "DB_NAME")
	setString(&c.BaseURL, "BASE_URL")
	setString(&c.Port, "PORT")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.TransitionPolicy, "TRANSITION_POLICY")
	setString(&c.DemoFeedSchedule, "DEMO_FEED_SCHEDULE")

	if v := os.Getenv("CONSENSUS_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ConsensusThreshold = n
		}
	}
	if v := os.Getenv("STATS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.StatsCacheTTL = d
		}
	}
	if v := os.Getenv("SEED_USERS"); v != "" {
		c.SeedUsers = parseSeedUsers(v)
	}
}

// parseSeedUsers reads "id:ROLE:score" entries separated by commas. Role and
// score are optional and malformed scores are ignored.
func parseSeedUsers(v string) []SeedUser {
	var seeds []SeedUser
	for _, entry := range strings.Split(v, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if parts[0] == "" {
			continue
		}
		seed := SeedUser{ID: parts[0], Name: parts[0]}
		if len(parts) > 1 {
			seed.Role = parts[1]
		}
		if len(parts) > 2 {
			if n, err := strconv.Atoi(parts[2]); err == nil {
				seed.TrustScore = n
			}
		}
		seeds = append(seeds, seed)
	}
	return seeds
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With("error", err).Error(message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	resp := models.ErrorMessageResponse{Response: models.MessageError{Message: message}}
	if err != nil {
		resp.Response.Error = err.Error()
	}
	_ = json.NewEncoder(w).Encode(resp)
}
