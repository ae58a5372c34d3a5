package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/google/uuid"
)

// Session is one dashboard opened by a presentation layer
type Session struct {
	ID        string
	Store     *Store
	CreatedAt time.Time

	// serialises a mutation with the save of its snapshot
	mu       sync.Mutex
	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// SessionService creates, restores and persists dashboard sessions
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	loader    *LoadService
	repo      domain.SessionRepository
	logger    *logger.Logger
	metrics   *metrics.Metrics
	noticeTTL time.Duration
	idleTTL   time.Duration
	now       func() time.Time
}

func NewSessionService(
	loader *LoadService,
	repo domain.SessionRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	noticeTTL time.Duration,
	idleTTL time.Duration,
) *SessionService {
	return &SessionService{
		sessions:  make(map[string]*Session),
		loader:    loader,
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		noticeTTL: noticeTTL,
		idleTTL:   idleTTL,
		now:       time.Now,
	}
}

// Create opens a session and performs its initial load. A failed load
// still yields a usable session (fallback dataset); the load error is
// returned alongside it.
func (s *SessionService) Create(ctx context.Context) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		Store:     s.newStore(),
		CreatedAt: s.now(),
	}
	ctx = context.WithValue(ctx, logger.SessionIDKey, session.ID)

	loadErr := s.loader.Load(ctx, session.Store, domain.HierarchyFilter{})

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	s.add(session)

	s.logger.WithContext(ctx).WithField("fallback", loadErr != nil).Info("Dashboard session created")
	return session, loadErr
}

// Get returns a live session, restoring it from the repository when it
// is not held in memory.
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		session.touch(s.now())
		return session, nil
	}

	snapshot, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	ctx = context.WithValue(ctx, logger.SessionIDKey, id)
	session = &Session{ID: id, Store: s.newStore(), CreatedAt: snapshot.CreatedAt}
	session.touch(s.now())
	if err := s.loader.Load(ctx, session.Store, domain.HierarchyFilter{}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Restored session is using the fallback dataset")
	}
	session.Store.Restore(snapshot.State)

	// another request may have restored it first
	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		session.Store.Close()
		existing.touch(s.now())
		return existing, nil
	}
	s.sessions[id] = session
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(n)

	s.logger.WithContext(ctx).Info("Dashboard session restored")
	return session, nil
}

// Dispatch applies action to the session and persists the new state
func (s *SessionService) Dispatch(ctx context.Context, id string, action domain.Action) (domain.Change, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return domain.ChangeNone, err
	}
	ctx = context.WithValue(ctx, logger.SessionIDKey, id)

	session.mu.Lock()
	defer session.mu.Unlock()

	change, err := session.Store.Dispatch(ctx, action)
	if err != nil {
		return domain.ChangeNone, err
	}
	if err := s.persist(ctx, session); err != nil {
		return change, err
	}
	return change, nil
}

// Reload replaces the session's data with a fresh unfiltered load
func (s *SessionService) Reload(ctx context.Context, id string) (*Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, logger.SessionIDKey, id)

	session.mu.Lock()
	defer session.mu.Unlock()

	loadErr := s.loader.Load(ctx, session.Store, domain.HierarchyFilter{})
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, loadErr
}

// Refresh reloads the session's data filtered by its current selection
func (s *SessionService) Refresh(ctx context.Context, id string) (*Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, logger.SessionIDKey, id)

	session.mu.Lock()
	defer session.mu.Unlock()

	loadErr := s.loader.Refresh(ctx, session.Store)
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, loadErr
}

// Delete drops a session from memory and from the repository
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(n)

	if ok {
		session.Store.Close()
	} else {
		snapshot, err := s.repo.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load session %s: %w", id, err)
		}
		if snapshot == nil {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	s.logger.WithContext(context.WithValue(ctx, logger.SessionIDKey, id)).Info("Dashboard session deleted")
	return nil
}

// Count returns the number of sessions held in memory
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle drops in-memory sessions not accessed for longer than the idle
// TTL. Sessions with an open event stream are kept. Snapshots stay in the
// repository, so an evicted session is restored on its next access.
func (s *SessionService) EvictIdle(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()

	var evicted []*Session
	s.mu.Lock()
	for id, session := range s.sessions {
		if session.idleSince(now) > s.idleTTL && session.Store.Subscribers() == 0 {
			delete(s.sessions, id)
			evicted = append(evicted, session)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	if len(evicted) == 0 {
		return 0
	}
	s.metrics.SetActiveSessions(n)
	for _, session := range evicted {
		session.Store.Close()
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"evicted":   len(evicted),
		"remaining": n,
	}).Info("Evicted idle dashboard sessions")
	return len(evicted)
}

// RunEviction calls EvictIdle every interval until ctx is done
func (s *SessionService) RunEviction(ctx context.Context, interval time.Duration) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle(ctx)
		}
	}
}

// IsNotFound reports whether err means the session does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound)
}

func (s *SessionService) newStore() *Store {
	return NewStore(s.logger, s.metrics, WithNoticeTTL(s.noticeTTL))
}

func (s *SessionService) add(session *Session) {
	session.touch(s.now())
	s.mu.Lock()
	s.sessions[session.ID] = session
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(n)
}

func (s *SessionService) persist(ctx context.Context, session *Session) error {
	snapshot := domain.SessionSnapshot{
		ID:        session.ID,
		State:     session.Store.State(),
		CreatedAt: session.CreatedAt,
		UpdatedAt: s.now(),
	}
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to persist dashboard session")
		return fmt.Errorf("failed to persist session %s: %w", session.ID, err)
	}
	return nil
}
