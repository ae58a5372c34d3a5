package infrastructure

import (
	"context"
	"sync"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
)

type memoryEntry struct {
	snapshot  domain.SessionSnapshot
	expiresAt time.Time
}

// MemorySessionRepository keeps snapshots in process. Like the Redis
// repository, a snapshot expires ttl after its last save; a ttl of zero
// keeps snapshots until they are deleted.
type MemorySessionRepository struct {
	data   map[string]memoryEntry
	mutex  sync.RWMutex
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

func NewMemorySessionRepository(ttl time.Duration, logger *logger.Logger) *MemorySessionRepository {
	return &MemorySessionRepository{
		data:   make(map[string]memoryEntry),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (r *MemorySessionRepository) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snapshot.State = snapshot.State.Clone()
	entry := memoryEntry{snapshot: snapshot}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.data[snapshot.ID] = entry

	r.logger.WithContext(ctx).WithField("session_id", snapshot.ID).Debug("Stored session snapshot in memory")
	return nil
}

func (r *MemorySessionRepository) Load(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, ok := r.data[id]
	if !ok || r.expired(entry, r.now()) {
		return nil, nil
	}
	snapshot := entry.snapshot
	snapshot.State = snapshot.State.Clone()
	return &snapshot, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, id)
	return nil
}

// PurgeExpired removes every expired snapshot and returns how many went
func (r *MemorySessionRepository) PurgeExpired(ctx context.Context) int {
	r.mutex.Lock()
	now := r.now()
	purged := 0
	for id, entry := range r.data {
		if r.expired(entry, now) {
			delete(r.data, id)
			purged++
		}
	}
	r.mutex.Unlock()

	if purged > 0 {
		r.logger.WithContext(ctx).WithField("purged", purged).Debug("Purged expired session snapshots")
	}
	return purged
}

// RunPurge calls PurgeExpired every interval until ctx is done
func (r *MemorySessionRepository) RunPurge(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.PurgeExpired(ctx)
		}
	}
}

// Count returns the number of stored snapshots, expired or not
func (r *MemorySessionRepository) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.data)
}

func (r *MemorySessionRepository) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}
