package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/lifecycle"
	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/store"
)

// DemoUser files every synthetic report
var DemoUser = models.User{
	ID:         "demo-feed",
	Name:       "Demo Feed",
	Role:       models.RoleCitizen,
	TrustScore: 50,
}

// Center is the point synthetic reports are scattered around
var Center = models.Coordinates{Latitude: 28.6139, Longitude: 77.2090}

type template struct {
	title    string
	category models.Category
	urgency  models.Urgency
}

var templates = []template{
	{"Pothole on main road", models.CategoryRoads, models.UrgencyHigh},
	{"Overflowing garbage bin", models.CategoryGarbage, models.UrgencyMedium},
	{"Streetlight not working", models.CategoryElectricity, models.UrgencyMedium},
	{"Burst water pipe", models.CategoryWater, models.UrgencyHigh},
	{"Broken traffic signal", models.CategoryTraffic, models.UrgencyHigh},
	{"Fallen tree branch", models.CategoryOther, models.UrgencyLow},
}

// Scheduler periodically files synthetic reports so a fresh deployment has
// live activity to show
type Scheduler struct {
	cron      *cron.Cron
	Lifecycle *lifecycle.Coordinator
	Users     store.UserDirectory
	spec      string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewScheduler creates a new scheduler instance. An empty spec disables the feed.
func NewScheduler(c *lifecycle.Coordinator, users store.UserDirectory, spec string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		Lifecycle: c,
		Users:     users,
		spec:      spec,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enabled reports whether a schedule was configured
func (s *Scheduler) Enabled() bool {
	return s.spec != ""
}

// Start registers the demo job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		zap.S().Debug("demo feed disabled")
		return nil
	}
	_, err := s.Users.Get(ctx, DemoUser.ID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		if err := s.Users.Save(ctx, DemoUser); err != nil {
			return errors.Wrap(err, "failed to register demo user")
		}
	case err != nil:
		return errors.Wrap(err, "failed to look up demo user")
	}

	_, err = s.cron.AddFunc(s.spec, s.submitDemoReport)
	if err != nil {
		return errors.Wrapf(err, "invalid demo feed schedule %q", s.spec)
	}

	s.cron.Start()
	zap.S().Infow("demo feed scheduler started", "schedule", s.spec)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("demo feed scheduler stopped")
}

func (s *Scheduler) submitDemoReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := s.SubmitDemo(ctx)
	if err != nil {
		zap.S().Errorw("failed to submit demo report", "error", err)
		return
	}
	zap.S().Debugw("demo report submitted", "report", r.ID, "category", r.Category)
}

// SubmitDemo files one synthetic report as the demo user
func (s *Scheduler) SubmitDemo(ctx context.Context) (models.Report, error) {
	demo, err := s.Users.Get(ctx, DemoUser.ID)
	if err != nil {
		return models.Report{}, err
	}
	return s.Lifecycle.Submit(ctx, demo, s.draft())
}

func (s *Scheduler) draft() models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := templates[s.rnd.Intn(len(templates))]
	// roughly a 2km box
	lat := Center.Latitude + (s.rnd.Float64()-0.5)*0.04
	lng := Center.Longitude + (s.rnd.Float64()-0.5)*0.04
	return models.Draft{
		Title:       t.title,
		Description: fmt.Sprintf("%s reported near %.4f, %.4f", t.title, lat, lng),
		Category:    t.category,
		Urgency:     t.urgency,
		Location:    models.Coordinates{Latitude: lat, Longitude: lng},
	}
}
