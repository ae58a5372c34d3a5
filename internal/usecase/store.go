package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"
)

const DefaultNoticeTTL = 5 * time.Second

// Notice is the transient user-visible error message
type Notice struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// View is an immutable snapshot of a store
type View struct {
	State     domain.State
	Hierarchy domain.Hierarchy
	Loaded    bool
	Notice    *Notice
}

// Store owns the selection state of one dashboard together with the
// hierarchy it refers to. Every mutation goes through Dispatch or one of
// the load hooks, and subscribers are told which views to redraw.
type Store struct {
	mu        sync.RWMutex
	state     domain.State
	hierarchy domain.Hierarchy
	loaded    bool
	notice    *Notice
	noticeSeq int

	subsMu  sync.Mutex
	subs    map[int]chan domain.Change
	nextSub int

	noticeTTL time.Duration
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

type StoreOption func(*Store)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithNoticeTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.noticeTTL = ttl
		}
	}
}

func NewStore(logger *logger.Logger, metrics *metrics.Metrics, opts ...StoreOption) *Store {
	s := &Store{
		subs:      make(map[int]chan domain.Change),
		noticeTTL: DefaultNoticeTTL,
		now:       time.Now,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = domain.NewState(s.now())
	return s
}

// Dispatch applies one action. Rejected actions leave the state untouched,
// are logged, and return an error wrapping domain.ErrInvalidSelection or
// domain.ErrInvalidAction.
func (s *Store) Dispatch(ctx context.Context, action domain.Action) (domain.Change, error) {
	s.mu.Lock()
	next, change, err := domain.Apply(s.state, s.hierarchy, action, s.now())
	if err == nil {
		s.state = next
	}
	s.mu.Unlock()

	log := s.logger.WithContext(ctx).WithField("action", action.Type)
	if err != nil {
		s.metrics.RecordRejectedAction(string(action.Type))
		log.WithError(err).WithFields(map[string]any{
			"kind": action.Kind,
			"id":   action.ID,
		}).Warn("Rejected selection action")
		return domain.ChangeNone, err
	}

	s.metrics.RecordAction(string(action.Type))
	log.WithField("views", change.Views()).Debug("Applied selection action")
	s.publish(change)
	return change, nil
}

// ReplaceHierarchy swaps in a freshly loaded hierarchy. Focus and
// selections that refer to vanished ids are pruned.
func (s *Store) ReplaceHierarchy(h domain.Hierarchy) {
	s.mu.Lock()
	s.hierarchy = h
	s.state = s.state.Prune(h)
	s.loaded = true
	s.mu.Unlock()

	s.publish(domain.ChangeAll &^ domain.ChangeNotice)
}

// Restore adopts a persisted state, pruned against the current hierarchy
func (s *Store) Restore(state domain.State) {
	s.mu.Lock()
	s.state = state.Prune(s.hierarchy)
	s.mu.Unlock()

	s.publish(domain.ChangeAll &^ domain.ChangeNotice &^ domain.ChangeData)
}

// State returns a copy of the current selection state
func (s *Store) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return View{
		State:     s.state.Clone(),
		Hierarchy: s.hierarchy,
		Loaded:    s.loaded,
		Notice:    s.activeNoticeLocked(),
	}
}

// Loaded reports whether a load (real or fallback) has completed
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Campaigns returns all campaigns filtered by query
func (s *Store) Campaigns(query string) []domain.Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FilterByText(s.hierarchy.Campaigns, query)
}

// AdSets returns the ad sets of the focused campaign filtered by query
func (s *Store) AdSets(query string) []domain.AdSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FilterByText(s.hierarchy.AdSetsOf(s.state.Focus.CampaignID()), query)
}

// Ads returns the ads of the focused ad set filtered by query
func (s *Store) Ads(query string) []domain.Ad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FilterByText(s.hierarchy.AdsOf(s.state.Focus.CampaignID(), s.state.Focus.AdSetID()), query)
}

// Metrics returns the metric catalog filtered by query
func (s *Store) Metrics(query string) []domain.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.FilterByText(s.hierarchy.Metrics, query)
}

// VisibleIDs returns the ids of kind currently shown under query. It is
// what a "select all" checkbox sends.
func (s *Store) VisibleIDs(kind domain.Kind, query string) ([]string, error) {
	switch kind {
	case domain.KindCampaigns:
		return domain.IDsOf(s.Campaigns(query)), nil
	case domain.KindAdSets:
		return domain.IDsOf(s.AdSets(query)), nil
	case domain.KindAds:
		return domain.IDsOf(s.Ads(query)), nil
	case domain.KindMetrics:
		return domain.IDsOf(s.Metrics(query)), nil
	}
	_, err := domain.ParseKind(string(kind))
	return nil, err
}

// ReportError shows message until it is acknowledged or its TTL passes
func (s *Store) ReportError(message string) {
	s.mu.Lock()
	s.noticeSeq++
	seq := s.noticeSeq
	s.notice = &Notice{Message: message, ExpiresAt: s.now().Add(s.noticeTTL)}
	s.mu.Unlock()

	time.AfterFunc(s.noticeTTL, func() { s.expireNotice(seq) })
	s.publish(domain.ChangeNotice)
}

// AcknowledgeError clears the current message. It reports whether one was shown.
func (s *Store) AcknowledgeError() bool {
	s.mu.Lock()
	had := s.activeNoticeLocked() != nil
	s.notice = nil
	s.mu.Unlock()

	if had {
		s.publish(domain.ChangeNotice)
	}
	return had
}

// Notice returns the current message, or nil once acknowledged or expired
func (s *Store) Notice() *Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeNoticeLocked()
}

func (s *Store) activeNoticeLocked() *Notice {
	if s.notice == nil || !s.now().Before(s.notice.ExpiresAt) {
		return nil
	}
	n := *s.notice
	return &n
}

func (s *Store) expireNotice(seq int) {
	s.mu.Lock()
	if s.noticeSeq != seq || s.notice == nil {
		s.mu.Unlock()
		return
	}
	s.notice = nil
	s.mu.Unlock()

	s.publish(domain.ChangeNotice)
}

// Subscribe returns a channel of pending changes and a cancel func.
// Changes that arrive while the subscriber is busy are merged, so a slow
// reader sees one combined change instead of blocking the store.
func (s *Store) Subscribe() (<-chan domain.Change, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.Change, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Subscribers returns the number of open subscriptions
func (s *Store) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// Close drops every subscriber
func (s *Store) Close() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store) publish(change domain.Change) {
	if change == domain.ChangeNone {
		return
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			// merge with the pending change; we are the only sender
			select {
			case pending := <-ch:
				ch <- pending | change
			default:
				ch <- change
			}
		}
	}
}

// IsRejected reports whether err is a rejected action rather than a fault
func IsRejected(err error) bool {
	return errors.Is(err, domain.ErrInvalidSelection) || errors.Is(err, domain.ErrInvalidAction)
}
