package briefing

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const purgeSchedule = "0 * * * *" // hourly, on the hour

var errMissingCacheService = errors.New("briefing: cache service is required")

// SweeperConfig describes dependencies for the expiry sweeper.
type SweeperConfig struct {
	Cache  *Service
	Logger *zap.Logger
}

// Sweeper periodically purges expired briefing cache rows. Expired entries are
// already invisible to readers; the sweeper only keeps the table small.
type Sweeper struct {
	cache  *Service
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSweeper constructs a sweeper with an hourly purge schedule.
func NewSweeper(cfg SweeperConfig) (*Sweeper, error) {
	if cfg.Cache == nil {
		return nil, errMissingCacheService
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Sweeper{
		cache:  cfg.Cache,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger,
	}, nil
}

// Start registers the purge job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(purgeSchedule, func() {
		removed, err := s.cache.PurgeExpired(context.Background())
		if err != nil {
			s.logger.Warn("briefing cache purge failed", zap.Error(err))
			return
		}
		if removed > 0 {
			s.logger.Info("briefing cache purged", zap.Int64("removed", removed))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
