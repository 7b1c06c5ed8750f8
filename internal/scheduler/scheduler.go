// Package scheduler runs the periodic maintenance jobs: extension
// auto-update and daily settings snapshots.
package scheduler

import (
	"log"
	"log/slog"

	"github.com/robfig/cron/v3"

	"tauritavern/internal/services"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron       *cron.Cron
	extensions *services.ExtensionService
	settings   *services.SettingsService
}

// New creates a scheduler over the maintenance services.
func New(extensions *services.ExtensionService, settings *services.SettingsService) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		extensions: extensions,
		settings:   settings,
	}
}

// Start registers the jobs and launches the runner.
func (s *Scheduler) Start() error {
	// Extensions that opted into auto-update refresh every six hours.
	if _, err := s.cron.AddFunc("0 */6 * * *", s.extensions.AutoUpdateAll); err != nil {
		return err
	}
	// One settings snapshot per day keeps a rollback point without flooding
	// the snapshot directory.
	if _, err := s.cron.AddFunc("30 3 * * *", func() {
		if err := s.settings.CreateSnapshot(); err != nil {
			slog.Warn("scheduled settings snapshot failed", "error", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("⏰ Maintenance scheduler started")
	return nil
}

// Stop halts the runner, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
