package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/api"
	"github.com/linesmerrill/civic-report-api/api/scheduler"
	"github.com/linesmerrill/civic-report-api/config"
	"github.com/linesmerrill/civic-report-api/consensus"
	"github.com/linesmerrill/civic-report-api/databases"
	"github.com/linesmerrill/civic-report-api/lifecycle"
	"github.com/linesmerrill/civic-report-api/logging"
	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/notifier"
	"github.com/linesmerrill/civic-report-api/store"
)

// App stores the router, the engine and its collaborators, so they can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	Notifier  *notifier.Notifier
	Store     *store.Store
	Users     store.UserDirectory
	Lifecycle *lifecycle.Coordinator
	Consensus *consensus.Engine
	Auth      api.Authenticator

	dbClient  databases.ClientHelper
	dbHelper  databases.DatabaseHelper
	redis     *redis.Client
	stats     *Stats
	hub       *ReportHub
	scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()
	r.Use(api.RequestLogger)

	report := Report{Store: a.Store, Lifecycle: a.Lifecycle, Consensus: a.Consensus}
	u := User{Users: a.Users}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(a.Auth.Middleware)

	// long lived, so registered ahead of the timeout bound routes
	apiCreate.HandleFunc("/ws/reports", a.hub.HandleReportsWebSocket).Methods("GET")

	bounded := apiCreate.NewRoute().Subrouter()
	bounded.Use(api.TimeoutMiddleware(api.QueryTimeout))

	bounded.HandleFunc("/reports", report.CreateReportHandler).Methods("POST")
	bounded.HandleFunc("/reports", report.ReportsHandler).Methods("GET")
	bounded.HandleFunc("/reports/{report_id}", report.ReportByIDHandler).Methods("GET")
	bounded.Handle("/reports/{report_id}", api.RequireAuthority(http.HandlerFunc(report.UpdateReportHandler))).Methods("PATCH")
	bounded.Handle("/reports/{report_id}/reject", api.RequireAuthority(http.HandlerFunc(report.RejectReportHandler))).Methods("POST")
	bounded.HandleFunc("/reports/{report_id}/upvote", report.UpvoteHandler).Methods("POST")
	bounded.HandleFunc("/reports/{report_id}/comments", report.AddCommentHandler).Methods("POST")
	bounded.HandleFunc("/reports/{report_id}/validations", report.ValidateHandler).Methods("POST")

	bounded.HandleFunc("/stats", a.stats.StatsHandler).Methods("GET")

	bounded.HandleFunc("/users/{user_id}", u.UserHandler).Methods("GET")
	bounded.HandleFunc("/leaderboard", u.LeaderboardHandler).Methods("GET")

	return r
}

// Initialize is invoked by main to connect the configured backends, build the
// engine and create a router. Without DB_URI reports and users live in memory.
func (a *App) Initialize() error {
	if a.Config.JWTSecret == "" {
		return errors.New("jwt secret is not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Notifier = notifier.New()
	opts := []store.Option{
		store.WithNotifier(a.Notifier),
		store.WithLogger(logging.New()),
	}

	if a.Config.URL != "" {
		client, err := databases.NewClient(&a.Config)
		if err != nil {
			// if we fail to create a new database client, then kill the pod
			zap.S().With("error", err).Error("failed to create new client")
			return err
		}
		connectCtx, done := api.WithQueryTimeout(ctx)
		defer done()
		if err := client.Connect(connectCtx); err != nil {
			// if we fail to connect to the database, then kill the pod
			zap.S().With("error", err).Error("failed to connect to database")
			return err
		}
		a.dbClient = client
		a.dbHelper = databases.NewDatabase(&a.Config, client)
		zap.S().Info("civic-report-api has connected to the database")

		reports := databases.NewReportDatabase(a.dbHelper)
		if err := reports.EnsureIndexes(connectCtx); err != nil {
			zap.S().Warnw("failed to ensure report indexes", "error", err)
		}
		opts = append(opts, store.WithPersister(reports))
		a.Users = databases.NewUserDatabase(a.dbHelper)
	} else {
		zap.S().Warn("DB_URI not set, reports and users are kept in memory")
		a.Users = store.NewUserDirectory()
	}
	if err := a.seedUsers(ctx); err != nil {
		return err
	}

	a.Store = store.New(opts...)
	if err := a.Store.Load(ctx); err != nil {
		return errors.Wrap(err, "failed to load reports")
	}

	a.Lifecycle = lifecycle.New(a.Store, a.Users,
		lifecycle.WithPolicy(lifecycle.ParsePolicy(a.Config.TransitionPolicy)))
	a.Consensus = consensus.New(a.Store, a.Users,
		consensus.WithThreshold(a.Config.ConsensusThreshold))
	a.Auth = api.Authenticator{Secret: []byte(a.Config.JWTSecret), Users: a.Users}

	a.stats = NewStats(a.Store, a.Config.StatsCacheTTL)
	go a.stats.Watch(ctx, a.Notifier)
	a.hub = NewReportHub()
	go a.hub.Run(ctx, a.Notifier)

	if a.Config.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
		relay := notifier.NewRedisRelay(a.redis, a.Notifier)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zap.S().Errorw("redis relay stopped", "error", err)
			}
		}()
		zap.S().Infow("relaying change signals through redis", "addr", a.Config.RedisAddr, "origin", relay.Origin())
	}

	a.scheduler = scheduler.NewScheduler(a.Lifecycle, a.Users, a.Config.DemoFeedSchedule)
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// seedUsers registers configured users missing from the directory. Existing
// users keep their earned trust.
func (a *App) seedUsers(ctx context.Context) error {
	for _, seed := range a.Config.SeedUsers {
		u := seed.User()
		_, err := a.Users.Get(ctx, u.ID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			if err := a.Users.Save(ctx, u); err != nil {
				return errors.Wrapf(err, "failed to seed user %s", u.ID)
			}
			zap.S().Infow("seeded user", "id", u.ID, "role", u.Role)
		case err != nil:
			return errors.Wrapf(err, "failed to look up seed user %s", u.ID)
		}
	}
	return nil
}

// Close stops background work and releases the backends
func (a *App) Close(ctx context.Context) {
	if a.scheduler != nil && a.scheduler.Enabled() {
		a.scheduler.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.dbClient != nil {
		if err := a.dbClient.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}

// Observers returns the number of connected websocket observers
func (a *App) Observers() int {
	if a.hub == nil {
		return 0
	}
	return a.hub.Len()
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
