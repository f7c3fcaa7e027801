package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often open records are checked for due
// escalations. One shared sweep covers every open alert; there are no
// per-alert timers.
const DefaultSweepInterval = time.Minute

// Sweeper periodically runs the manager's escalation sweep.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	log      *zap.SugaredLogger

	mu          sync.Mutex
	lastSweepAt time.Time
	sweeps      int64
}

// NewSweeper creates a sweeper over manager. A non-positive interval falls
// back to DefaultSweepInterval.
func NewSweeper(manager *Manager, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	return NewSweeperWithContext(context.Background(), manager, interval, log)
}

// NewSweeperWithContext creates a sweeper with a parent context.
func NewSweeperWithContext(ctx context.Context, manager *Manager, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	sweepCtx, cancel := context.WithCancel(ctx)

	return &Sweeper{
		manager:  manager,
		interval: interval,
		ctx:      sweepCtx,
		cancel:   cancel,
		log:      log,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Infow("Escalation sweeper started", "interval", s.interval)
}

// Stop gracefully stops the sweep loop.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
	s.log.Infow("Escalation sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case tickTime := <-ticker.C:
			s.mu.Lock()
			s.lastSweepAt = tickTime
			s.sweeps++
			s.mu.Unlock()

			if _, err := s.manager.Sweep(s.ctx); err != nil {
				s.log.Warnw("Escalation sweep error", "error", err)
			}
		}
	}
}

// Stats returns sweep loop statistics.
func (s *Sweeper) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"last_sweep_at": s.lastSweepAt,
		"sweeps":        s.sweeps,
		"interval":      s.interval,
	}
}
