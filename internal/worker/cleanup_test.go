package worker_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tolgaturan/authgate/internal/database/models"
	"github.com/tolgaturan/authgate/internal/database/repository"
	"github.com/tolgaturan/authgate/internal/worker"
)

func TestCleanupSweeper_Sweep(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	user := &models.User{Email: "alice@example.com", Name: "Alice", PasswordHash: "hash"}
	require.NoError(t, db.Create(user).Error)

	repo := repository.NewRefreshTokenRepository(db, time.Hour)
	require.NoError(t, repo.Issue(user.ID, "active-token"))
	require.NoError(t, repo.Issue(user.ID, "revoked-token"))
	require.NoError(t, repo.Revoke("revoked-token"))

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sweeper := worker.NewCleanupSweeper(repo, time.Hour, testLogger)
	sweeper.Sweep()

	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	sweeper.Shutdown(time.Second)
}

func TestCleanupSweeper_StartAndShutdown(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	repo := repository.NewRefreshTokenRepository(db, time.Hour)
	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sweeper := worker.NewCleanupSweeper(repo, 10*time.Millisecond, testLogger)
	sweeper.Start()

	time.Sleep(50 * time.Millisecond)

	// Shutdown returns promptly once the loop notices cancellation.
	done := make(chan struct{})
	go func() {
		sweeper.Shutdown(time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not shut down in time")
	}
}
