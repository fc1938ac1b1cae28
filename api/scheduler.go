/*
scheduler.go - Periodic certification status refresh

PURPOSE:
  The stored certification status is redundant with the expiry date and
  goes stale as time passes. The scheduler periodically reclassifies every
  certification and persists the employees whose statuses changed.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - One refresh is one transaction over all employees
  - Employees with no status change are not rewritten
  - Stores with in-place status updates keep certification ids
  - Scores are never stored, so nothing else needs refreshing

CONFIGURATION:
  - CheckInterval: how often to refresh (REFRESH_INTERVAL, off when 0)

USAGE:
  scheduler := NewStatusRefreshScheduler(store, time.Hour, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RefreshStatuses endpoint (manual refresh)
  - certification/time.go: Classify, RefreshStatuses
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
)

// RefreshAllStatuses reclassifies every stored certification at now in one
// transaction. Stores that implement certification.StatusUpdater get the
// changed statuses written in place and keep certification ids; others get
// the employees that changed replaced.
func RefreshAllStatuses(ctx context.Context, store certification.TxStore, now time.Time) (RefreshStatusesResponse, error) {
	var resp RefreshStatusesResponse

	err := store.WithTx(ctx, func(tx certification.EmployeeStore) error {
		resp = RefreshStatusesResponse{RefreshedAt: now}

		employees, err := tx.FindAll(ctx)
		if err != nil {
			return err
		}
		resp.Employees = len(employees)
		updater, inPlace := tx.(certification.StatusUpdater)

		for _, emp := range employees {
			changes := certification.StaleStatuses(emp, now)
			if len(changes) == 0 {
				continue
			}
			if inPlace {
				err = updater.UpdateStatuses(ctx, emp.ID, changes)
			} else {
				certification.RefreshStatuses(&emp, now)
				_, err = tx.ReplaceEmployee(ctx, emp.ID, emp)
			}
			if err != nil {
				return &certification.PersistenceError{Op: "refresh statuses", EmployeeID: emp.ID, Err: err}
			}
			resp.UpdatedEmployees++
			resp.ChangedStatuses += len(changes)
		}
		return nil
	})
	if err != nil {
		return RefreshStatusesResponse{}, err
	}
	return resp, nil
}

// StatusRefreshScheduler runs RefreshAllStatuses on a ticker.
type StatusRefreshScheduler struct {
	Store         certification.TxStore
	CheckInterval time.Duration

	logger  *zap.Logger
	now     func() time.Time
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// NewStatusRefreshScheduler creates a scheduler. It does nothing until Start.
func NewStatusRefreshScheduler(store certification.TxStore, interval time.Duration, logger *zap.Logger) *StatusRefreshScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusRefreshScheduler{
		Store:         store,
		CheckInterval: interval,
		logger:        logger.Named("scheduler"),
		now:           time.Now,
	}
}

// Start begins the scheduler. A non-positive interval leaves it disabled.
func (s *StatusRefreshScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CheckInterval <= 0 {
		s.logger.Info("disabled, not starting")
		return
	}
	if s.running {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.running = true
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.logger.Info("started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a refresh in progress.
func (s *StatusRefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("stopped")
}

func (s *StatusRefreshScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow performs one refresh and logs the outcome.
func (s *StatusRefreshScheduler) RunNow(ctx context.Context) (RefreshStatusesResponse, error) {
	now := s.now()
	resp, err := RefreshAllStatuses(ctx, s.Store, now)
	if err != nil {
		s.logger.Error("status refresh failed", zap.Error(err))
		return resp, err
	}

	s.mu.Lock()
	s.lastRun = now
	s.mu.Unlock()

	if resp.ChangedStatuses > 0 {
		s.logger.Info("statuses refreshed",
			zap.Int("employees", resp.Employees),
			zap.Int("updated_employees", resp.UpdatedEmployees),
			zap.Int("changed_statuses", resp.ChangedStatuses),
		)
	}
	return resp, nil
}

// NextRunTime returns when the next scheduled refresh will occur.
func (s *StatusRefreshScheduler) NextRunTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun.IsZero() {
		return s.now()
	}
	return s.lastRun.Add(s.CheckInterval)
}
