package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AlfredBerg/optionstrip-monitor/internal/model"
	"github.com/AlfredBerg/optionstrip-monitor/internal/timewindow"
	"go.uber.org/zap"
)

var (
	ErrNotRunning     = errors.New("monitor is not running")
	ErrAlreadyRunning = errors.New("monitor is already running")
)

type Options struct {
	Topic  string
	Source string

	PassInterval        time.Duration
	PublishDelay        time.Duration
	RetryDelay          time.Duration
	DiagnosticsInterval time.Duration

	// EnforceWindow skips rows whose time is outside the filter tolerance.
	// Otherwise the filter result is only logged.
	EnforceWindow bool
	Screenshots   bool
}

func DefaultOptions() Options {
	return Options{
		Topic:               model.DefaultTopic,
		Source:              model.DefaultSource,
		PassInterval:        time.Second,
		PublishDelay:        3 * time.Second,
		RetryDelay:          time.Second,
		DiagnosticsInterval: 30 * time.Second,
	}
}

type Monitor struct {
	table     Table
	publisher Publisher
	shots     ScreenshotSink
	filter    *timewindow.Filter
	clock     Clock
	opts      Options
	log       *zap.Logger

	// OnStateChange is called after every start and stop, e.g. to repaint a
	// toggle button.
	OnStateChange func(running bool)

	mu      sync.Mutex
	session *Session
}

type Option func(*Monitor)

func WithClock(c Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

func WithScreenshots(sink ScreenshotSink) Option {
	return func(m *Monitor) { m.shots = sink }
}

func WithOptions(o Options) Option {
	return func(m *Monitor) { m.opts = o }
}

func New(table Table, publisher Publisher, filter *timewindow.Filter, opts ...Option) *Monitor {
	m := &Monitor{
		table:     table,
		publisher: publisher,
		filter:    filter,
		clock:     realClock{},
		opts:      DefaultOptions(),
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.Running()
}

// Session returns the current or last session, nil before the first start.
func (m *Monitor) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Begin creates a session and marks every row currently in the table as seen
// so history is not replayed. It does not start the loop.
func (m *Monitor) Begin(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.Running() {
		return nil, fmt.Errorf("session %s: %w", m.session.ID, ErrAlreadyRunning)
	}

	s := newSession(ctx, m.clock.Now())
	rows, err := m.table.Rows(s.ctx)
	if err != nil {
		s.Stop()
		return nil, fmt.Errorf("reading existing rows: %w", err)
	}
	for _, r := range rows {
		s.markSeen(r.Key())
	}
	s.stats.Premarked = len(rows)

	m.session = s
	m.log.Info("monitoring started", zap.String("session", s.ID), zap.Int("premarked", len(rows)))
	return s, nil
}

// Start begins a session and runs the loop in the background. Starting while
// a session is running is a no-op and reports false.
func (m *Monitor) Start(ctx context.Context) (bool, error) {
	if m.Running() {
		return false, nil
	}
	s, err := m.Begin(ctx)
	if errors.Is(err, ErrAlreadyRunning) {
		// lost a race with another start
		return false, nil
	}
	if err != nil {
		return false, err
	}
	go m.Run(s)
	m.notify(true)
	return true, nil
}

func (m *Monitor) Stop() error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s == nil || !s.Running() {
		return ErrNotRunning
	}
	s.Stop()
	m.log.Info("monitoring stopped", zap.String("session", s.ID))
	m.notify(false)
	return nil
}

// Toggle starts or stops monitoring and returns the new state.
func (m *Monitor) Toggle(ctx context.Context) (bool, error) {
	if m.Running() {
		return false, m.Stop()
	}
	_, err := m.Start(ctx)
	return err == nil, err
}

func (m *Monitor) notify(running bool) {
	if m.OnStateChange != nil {
		m.OnStateChange(running)
	}
}

// Run repeats scan passes until the session is stopped, spacing passes
// roughly PassInterval apart. Failed passes are retried after RetryDelay.
func (m *Monitor) Run(s *Session) {
	defer close(s.done)

	for s.Running() {
		start := m.clock.Now()
		m.diagnostics(s, start)

		report, err := m.ScanPass(s)
		s.record(report, err)
		if err != nil {
			m.log.Error("scan pass failed", zap.Int("pass", report.Pass), zap.Error(err))
			if !s.wait(m.clock, m.opts.RetryDelay) {
				break
			}
			continue
		}

		elapsed := m.clock.Now().Sub(start)
		m.log.Debug("scan pass done", zap.Int("pass", report.Pass), zap.Int("rows", report.Total),
			zap.Int("new", len(report.Rows)), zap.Duration("took", elapsed))
		if !s.wait(m.clock, max(0, m.opts.PassInterval-elapsed)) {
			break
		}
	}
	m.log.Info("monitoring loop exited", zap.String("session", s.ID), zap.Any("stats", s.Stats()))
}
