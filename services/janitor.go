package services

import (
	"context"
	"time"

	"pdf-study-platform/internal/logger"
)

// Janitor periodically evicts idle vector indices from the retriever cache
// and sweeps orphaned chunk records. Evicted indices are rebuilt from
// storage on the next search.
type Janitor struct {
	retriever *Retriever
	store     *ChunkStore
	interval  time.Duration
	maxIdle   time.Duration
	stopChan  chan struct{}
}

func NewJanitor(retriever *Retriever, store *ChunkStore, interval, maxIdle time.Duration) *Janitor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}
	return &Janitor{
		retriever: retriever,
		store:     store,
		interval:  interval,
		maxIdle:   maxIdle,
		stopChan:  make(chan struct{}),
	}
}

func (j *Janitor) Start() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	logger.Info("Starting index janitor", "interval", j.interval.String(), "max_idle", j.maxIdle.String())

	for {
		select {
		case <-ticker.C:
			if evicted := j.retriever.EvictIdle(j.maxIdle); evicted > 0 {
				logger.Info("Evicted idle vector indices", "count", evicted)
			}

			if j.store != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				removed, err := j.store.DeleteOrphans(ctx)
				cancel()
				if err != nil {
					logger.Warn("Orphan chunk sweep failed", "error", err)
				} else if removed > 0 {
					logger.Info("Removed orphaned chunks", "count", removed)
				}
			}

		case <-j.stopChan:
			logger.Info("Stopping index janitor")
			return
		}
	}
}

func (j *Janitor) Stop() {
	close(j.stopChan)
}
