package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type LoginSessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

type IdleStoreEvicter interface {
	EvictIdle(ctx context.Context) (int64, error)
}

// CleanupJob periodically deletes expired login sessions and evicts
// per-user stores nobody has touched lately.
type CleanupJob struct {
	loginSessions LoginSessionCleaner
	stores        IdleStoreEvicter
	interval      time.Duration
	done          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

func NewCleanupJob(loginSessions LoginSessionCleaner, stores IdleStoreEvicter, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		loginSessions: loginSessions,
		stores:        stores,
		interval:      interval,
		done:          make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	j.wg.Add(1)
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

// Stop ends the loop and waits for a running cleanup to finish.
func (j *CleanupJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.wg.Wait()
		log.Info().Msg("cleanup job stopped")
	})
}

func (j *CleanupJob) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if j.loginSessions != nil {
		j.runCleanup(ctx, "login sessions", j.loginSessions.CleanupExpiredSessions)
	}
	if j.stores != nil {
		j.runCleanup(ctx, "idle stores", j.stores.EvictIdle)
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
