// Package jobs schedules the background maintenance work: the advisory cache
// sweep and a daily room reconciliation.
package jobs

import (
	"time"

	"linkup/backend/internal/cache"
	"linkup/backend/internal/storage"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Start wires the jobs onto a scheduler and starts it asynchronously.
func Start(caches *cache.ChatCaches, store storage.Storage, sweepInterval time.Duration, log *zap.SugaredLogger) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)

	// Expired entries are rejected on lookup anyway; the sweep just keeps
	// memory bounded between reads.
	s.Every(sweepInterval).Do(func() {
		caches.SweepExpired()
	})

	// Safety net: LeaveRoom archives inline, this catches anything that
	// slipped through.
	s.Every(1).Day().Do(func() {
		archived, err := store.ArchiveEmptyRooms()
		if err != nil {
			log.Errorw("room reconciliation failed", "err", err)
			return
		}
		if archived > 0 {
			log.Infow("archived empty rooms", "count", archived)
		}
	})

	s.StartAsync()
	return s
}
