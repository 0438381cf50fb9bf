package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tolgaturan/authgate/internal/database/repository"
)

// CleanupSweeper periodically deletes expired and revoked refresh token
// records from the ledger. Active records are never touched, so the sweep is
// safe to run at any time.
type CleanupSweeper struct {
	repo     repository.RefreshTokenRepository
	interval time.Duration
	logger   *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCleanupSweeper creates a sweeper that runs at the given interval
func NewCleanupSweeper(repo repository.RefreshTokenRepository, interval time.Duration, logger *slog.Logger) *CleanupSweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupSweeper{
		repo:     repo,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background sweep loop
func (s *CleanupSweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("🧹 [Cleanup] Token cleanup sweeper started", "interval", s.interval)

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Sweep runs one cleanup pass immediately
func (s *CleanupSweeper) Sweep() {
	s.sweep()
}

func (s *CleanupSweeper) sweep() {
	removed, err := s.repo.Cleanup()
	if err != nil {
		s.logger.Error("❌ [Cleanup] Sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("🧹 [Cleanup] Removed expired/revoked refresh tokens", "count", removed)
	}
}

// Shutdown stops the sweep loop and waits for the current pass to finish
func (s *CleanupSweeper) Shutdown(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("✅ [Cleanup] Sweeper stopped")
	case <-time.After(timeout):
		s.logger.Warn("⚠️ [Cleanup] Shutdown timeout exceeded", "timeout", timeout)
	}
}
