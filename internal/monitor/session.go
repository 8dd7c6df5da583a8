package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const maxRecentFailures = 20

// Session is one monitoring run. The seen set is owned by the scan loop; the
// running flag may be cleared from any goroutine.
type Session struct {
	ID      string
	Started time.Time

	running atomic.Bool
	// ctx ends on Stop and bounds the waits between rows and passes. Row
	// work runs on work, which Stop leaves alone so the current row can
	// finish.
	ctx     context.Context
	work    context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	seen     map[string]struct{}
	passes   int
	lastDiag time.Time

	mu     sync.Mutex
	stats  Stats
	failed []RowResult
}

type Stats struct {
	Passes       int
	FailedPasses int
	Published    int
	Empty        int
	Stale        int
	Failed       int
	Premarked    int
}

func newSession(parent context.Context, now time.Time) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:      uuid.NewString(),
		Started: now,
		ctx:     ctx,
		work:    parent,
		cancel:  cancel,
		done:    make(chan struct{}),
		seen:    make(map[string]struct{}),
	}
	s.running.Store(true)
	return s
}

func (s *Session) Running() bool {
	return s.running.Load() && s.ctx.Err() == nil
}

// Stop clears the running flag. The loop notices at the next row boundary or
// wait point; a row already being handled is finished first.
func (s *Session) Stop() {
	s.running.Store(false)
	s.cancel()
}

// Done is closed once the loop has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Seen(key string) bool {
	_, ok := s.seen[key]
	return ok
}

func (s *Session) markSeen(key string) {
	s.seen[key] = struct{}{}
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// RecentFailures returns the last failed rows, oldest first.
func (s *Session) RecentFailures() []RowResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RowResult(nil), s.failed...)
}

func (s *Session) record(r PassReport, passErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Passes++
	if passErr != nil {
		s.stats.FailedPasses++
		return
	}
	for _, res := range r.Rows {
		switch res.Status {
		case StatusPublished:
			s.stats.Published++
		case StatusEmpty:
			s.stats.Empty++
		case StatusStale:
			s.stats.Stale++
		}
		if res.Err != nil {
			s.stats.Failed++
			s.failed = append(s.failed, res)
		}
	}
	if over := len(s.failed) - maxRecentFailures; over > 0 {
		s.failed = s.failed[over:]
	}
}

// wait blocks for d or until the session is stopped. It reports whether the
// session is still running.
func (s *Session) wait(c Clock, d time.Duration) bool {
	if d > 0 {
		select {
		case <-c.After(d):
		case <-s.ctx.Done():
		}
	}
	return s.Running()
}
