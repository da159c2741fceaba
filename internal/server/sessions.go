package server

import (
	"context"
	"sync"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/errors"
)

// SessionMetrics tracks the number of live sessions
type SessionMetrics interface {
	SessionOpened(ctx context.Context)
	SessionClosed(ctx context.Context)
}

// SessionStore keeps Q&A sessions in memory and discards the ones idle for
// longer than the TTL. At most max sessions are live when max is positive.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*analysis.Session
	ttl      time.Duration
	max      int
	metrics  SessionMetrics
	done     chan struct{}
	once     sync.Once
	logger   *errors.Logger
}

// NewSessionStore creates a store and starts its expiry loop. A zero ttl
// defaults to 30 minutes; a zero maxSessions leaves the store unbounded.
func NewSessionStore(ttl time.Duration, maxSessions int, metrics SessionMetrics, logger *errors.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	st := &SessionStore{
		sessions: make(map[string]*analysis.Session),
		ttl:      ttl,
		max:      maxSessions,
		metrics:  metrics,
		done:     make(chan struct{}),
		logger:   logger,
	}
	go st.expiryRoutine(max(ttl/2, time.Second))
	return st
}

// Add stores a session under its ID. It fails with SESSION_LIMIT_REACHED
// when the store is full.
func (st *SessionStore) Add(ctx context.Context, s *analysis.Session) error {
	st.mu.Lock()
	if st.max > 0 && len(st.sessions) >= st.max {
		st.mu.Unlock()
		return errors.NewInternalError(errors.ErrCodeSessionLimit,
			"Too many open sessions, close one or retry later", nil).WithContext("max_sessions", st.max)
	}
	st.sessions[s.ID] = s
	st.mu.Unlock()
	if st.metrics != nil {
		st.metrics.SessionOpened(ctx)
	}
	return nil
}

// Get returns the session with id
func (st *SessionStore) Get(id string) (*analysis.Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeSessionNotFound, "Session not found", nil).
			WithContext("session_id", id)
	}
	return s, nil
}

// Delete closes and removes the session with id
func (st *SessionStore) Delete(ctx context.Context, id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return errors.NewValidationError(errors.ErrCodeSessionNotFound, "Session not found", nil).
			WithContext("session_id", id)
	}
	s.Close()
	if st.metrics != nil {
		st.metrics.SessionClosed(ctx)
	}
	return nil
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) expiryRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.expire(time.Now())
		case <-st.done:
			return
		}
	}
}

// expire drops every session last used more than ttl before now
func (st *SessionStore) expire(now time.Time) int {
	st.mu.Lock()
	var expired []*analysis.Session
	for id, s := range st.sessions {
		if now.Sub(s.LastUsed()) > st.ttl {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
		if st.metrics != nil {
			st.metrics.SessionClosed(context.Background())
		}
	}
	if len(expired) > 0 && st.logger != nil {
		st.logger.Debug("Expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Close stops the expiry loop and closes every session
func (st *SessionStore) Close() {
	st.once.Do(func() { close(st.done) })

	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*analysis.Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		if st.metrics != nil {
			st.metrics.SessionClosed(context.Background())
		}
	}
}
