package corpus

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/dart-portal/internal/common"
)

// Reloader is anything that can refresh itself on a schedule.
type Reloader interface {
	Reload(ctx context.Context) (int, error)
}

// Scheduler reloads the corpus on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	target  Reloader
	logger  *common.Logger
	timeout time.Duration
}

// NewScheduler registers a reload job. spec accepts standard five-field
// cron expressions and descriptors such as "@daily" or "@every 6h".
func NewScheduler(spec string, target Reloader, logger *common.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		target:  target,
		logger:  logger,
		timeout: 2 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	logger.Info().Str("schedule", spec).Msg("corpus reload scheduled")
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.target.Reload(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled corpus reload failed")
		return
	}
	s.logger.Debug().Int("companies", n).Msg("scheduled corpus reload complete")
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running reload to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
