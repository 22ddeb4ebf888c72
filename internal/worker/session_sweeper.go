package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
)

// ExpiredSessionDeleter removes idle-expired sessions.
// *session.PostgresStore and *session.MemoryStore satisfy it.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionSweeperConfig contains configuration for the session sweeper
type SessionSweeperConfig struct {
	// SweepInterval is the interval between sweeps
	SweepInterval time.Duration
	// SweepTimeout bounds a single sweep
	SweepTimeout time.Duration
}

// DefaultSessionSweeperConfig returns default configuration
func DefaultSessionSweeperConfig() *SessionSweeperConfig {
	return &SessionSweeperConfig{
		SweepInterval: 5 * time.Minute,
		SweepTimeout:  30 * time.Second,
	}
}

// SessionSweeper periodically deletes sessions past their idle timeout
type SessionSweeper struct {
	store   ExpiredSessionDeleter
	config  *SessionSweeperConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalDeleted  int64
	lastSweepTime time.Time
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(store ExpiredSessionDeleter, config *SessionSweeperConfig) *SessionSweeper {
	defaults := DefaultSessionSweeperConfig()
	if config == nil {
		config = defaults
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = defaults.SweepTimeout
	}

	return &SessionSweeper{
		store:  store,
		config: config,
		log:    logger.Get().Named("session-sweeper"),
		stopCh: make(chan struct{}),
	}
}

// Start starts the sweeper
func (w *SessionSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("session sweeper already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting session sweeper", zap.Duration("interval", w.config.SweepInterval))

	w.wg.Add(1)
	go w.loop(ctx)

	return nil
}

// Stop stops the sweeper and waits for an in-flight sweep
func (w *SessionSweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Session sweeper stopped")
}

func (w *SessionSweeper) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one deletion pass and returns the number of sessions removed
func (w *SessionSweeper) Sweep(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, w.config.SweepTimeout)
	defer cancel()

	deleted, err := w.store.DeleteExpired(ctx)

	w.mu.Lock()
	w.lastSweepTime = time.Now()
	w.totalDeleted += deleted
	w.mu.Unlock()

	if err != nil {
		w.log.Error("Failed to delete expired sessions", zap.Error(err))
		return deleted
	}
	if deleted > 0 {
		w.log.Info("Deleted expired sessions", zap.Int64("count", deleted))
	}
	return deleted
}

// Stats returns the total number of sessions deleted and the time of the last sweep
func (w *SessionSweeper) Stats() (totalDeleted int64, lastSweep time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalDeleted, w.lastSweepTime
}
