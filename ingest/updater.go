package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helioswap/routegraph/models"
)

// Updater periodically refreshes every configured chain's graph. One
// timer drives all chains; each tick fans out one task per chain and
// waits for all of them to settle. A tick that fires while the previous
// update is still running is skipped, never queued.
type Updater struct {
	registry     *Registry
	buildTimeout time.Duration

	inFlight  atomic.Bool
	skipCount atomic.Int64

	mu        sync.Mutex
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
}

// NewUpdater creates a scheduler over the given registry. Each per-chain
// build gets its own timeout so one stuck source cannot pin the cycle.
func NewUpdater(registry *Registry, buildTimeout time.Duration) *Updater {
	if buildTimeout <= 0 {
		buildTimeout = 2 * time.Minute
	}
	return &Updater{
		registry:     registry,
		buildTimeout: buildTimeout,
	}
}

// Start triggers one immediate update, then repeats on the interval
// until Stop is called. Calling Start on a running updater is a no-op.
func (u *Updater) Start(intervalMinutes int) {
	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return
	}
	u.running = true
	u.stopCh = make(chan struct{})
	u.stoppedCh = make(chan struct{})
	stopCh, stoppedCh := u.stopCh, u.stoppedCh
	u.mu.Unlock()

	interval := time.Duration(intervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log.Info().Dur("interval", interval).Msg("Graph updater starting")

	go func() {
		defer close(stoppedCh)

		u.tick()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				u.tick()
			}
		}
	}()
}

// tick runs one scheduled update unless one is already in flight.
func (u *Updater) tick() {
	if !u.inFlight.CompareAndSwap(false, true) {
		u.skipCount.Add(1)
		ticksSkipped.Inc()
		log.Warn().Int64("skipped", u.skipCount.Load()).Msg("Update still in flight, skipping tick")
		return
	}
	defer u.inFlight.Store(false)
	u.updateAll(context.Background())
}

// ForceUpdate runs one update synchronously, bypassing the timer. It
// shares the in-flight guard with scheduled ticks.
func (u *Updater) ForceUpdate(ctx context.Context) []models.BuildStatus {
	if !u.inFlight.CompareAndSwap(false, true) {
		u.skipCount.Add(1)
		ticksSkipped.Inc()
		log.Warn().Msg("Update already in flight, manual trigger skipped")
		return nil
	}
	defer u.inFlight.Store(false)
	return u.updateAll(ctx)
}

// SkippedTicks reports how many ticks were dropped by the re-entrancy
// guard since the updater was created.
func (u *Updater) SkippedTicks() int64 {
	return u.skipCount.Load()
}

// updateAll fans out one build per chain and joins on all of them. One
// chain's failure never cancels or blocks the others.
func (u *Updater) updateAll(ctx context.Context) []models.BuildStatus {
	chainIDs := u.registry.ChainIDs()
	statuses := make([]models.BuildStatus, len(chainIDs))

	var group errgroup.Group
	for i, chainID := range chainIDs {
		i, chainID := i, chainID
		group.Go(func() error {
			builder, ok := u.registry.Builder(chainID)
			if !ok {
				return nil
			}
			buildCtx, cancel := context.WithTimeout(ctx, u.buildTimeout)
			defer cancel()

			status, err := builder.BuildGraph(buildCtx)
			if err != nil {
				log.Error().Uint64("chain", chainID).Err(err).Msg("Graph build failed")
			}
			statuses[i] = status
			return nil // failures are isolated per chain
		})
	}
	_ = group.Wait()
	return statuses
}

// Stop cancels the timer. An in-flight run completes normally.
func (u *Updater) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}
	u.running = false
	stopCh, stoppedCh := u.stopCh, u.stoppedCh
	u.mu.Unlock()

	close(stopCh)
	<-stoppedCh
	log.Info().Msg("Graph updater stopped")
}
