package archive

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs Export on a cron schedule. An empty schedule disables it.
type Scheduler struct {
	exporter *Exporter
	schedule string
	cron     *cron.Cron
}

func NewScheduler(exporter *Exporter, schedule string) *Scheduler {
	return &Scheduler{
		exporter: exporter,
		schedule: schedule,
		cron:     cron.New(),
	}
}

func (s *Scheduler) Start() error {
	if s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunNow); err != nil {
		return err
	}
	s.cron.Start()

	log.Info().
		Str("schedule", s.schedule).
		Msg("Export scheduler started")
	return nil
}

// Stop waits up to five seconds for a running export to finish.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping export scheduler")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Export still running at shutdown")
	}
}

func (s *Scheduler) RunNow() {
	log.Info().Msg("Starting scheduled export")

	artifact, err := s.exporter.Export(context.Background())
	if err != nil {
		log.Error().
			Err(err).
			Msg("Scheduled export failed")
		return
	}

	log.Info().
		Str("artifact", artifact.Name).
		Int("entries", artifact.Entries).
		Msg("Scheduled export completed")
}
