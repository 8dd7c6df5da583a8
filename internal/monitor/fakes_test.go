package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlfredBerg/optionstrip-monitor/internal/extract"
	"github.com/AlfredBerg/optionstrip-monitor/internal/timewindow"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waits   []time.Duration
	// onAfter runs after each wait is recorded.
	onAfter func(d time.Duration)
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	now, hook := c.now, c.onAfter
	c.mu.Unlock()
	if hook != nil {
		hook(d)
	}

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

type fakeRow struct {
	key    string
	symbol string
	time   string
	cells  []extract.RawCell
	err    error
	panics bool
	png    []byte
	onTime func()
}

func (r *fakeRow) Key() string    { return r.key }
func (r *fakeRow) Symbol() string { return r.symbol }

func (r *fakeRow) TimeText(context.Context) (string, error) {
	if r.panics {
		panic("detached node")
	}
	if r.onTime != nil {
		r.onTime()
	}
	return r.time, nil
}

// RawCells fails on a cancelled context like a browser call would.
func (r *fakeRow) RawCells(ctx context.Context) ([]extract.RawCell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.cells, r.err
}

func (r *fakeRow) Screenshot(context.Context) ([]byte, error) {
	if r.png == nil {
		return nil, errors.New("no screenshot")
	}
	return r.png, nil
}

type fakeTable struct {
	mu     sync.Mutex
	rows   []Row
	errs   []error
	onRows func() error
}

func (t *fakeTable) add(rows ...Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rows...)
}

func (t *fakeTable) failNext(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errs = append(t.errs, err)
}

func (t *fakeTable) Rows(context.Context) ([]Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.onRows != nil {
		if err := t.onRows(); err != nil {
			return nil, err
		}
	}
	if len(t.errs) > 0 {
		err := t.errs[0]
		t.errs = t.errs[1:]
		return nil, err
	}
	return append([]Row(nil), t.rows...), nil
}

type published struct {
	topic   string
	payload []byte
}

type recordingPublisher struct {
	mu     sync.Mutex
	msgs   []published
	err    error
	onSend func()
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	p.msgs = append(p.msgs, published{topic: topic, payload: payload})
	onSend := p.onSend
	p.mu.Unlock()
	if onSend != nil {
		onSend()
	}
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

type recordingSink struct {
	symbols []string
}

func (s *recordingSink) SendScreenshot(_ context.Context, symbol string, png []byte) error {
	s.symbols = append(s.symbols, symbol)
	return nil
}

func newRow(key, hhmm string, texts ...string) *fakeRow {
	r := &fakeRow{key: key, symbol: key, time: hhmm}
	for _, t := range texts {
		r.cells = append(r.cells, extract.RawCell{Text: t})
	}
	return r
}

// at 14:05 Eastern
func testClock(t *testing.T) *fakeClock {
	loc, err := time.LoadLocation(timewindow.DefaultZone)
	require.NoError(t, err)
	return &fakeClock{now: time.Date(2025, time.July, 14, 14, 5, 0, 0, loc)}
}

func newTestMonitor(t *testing.T, table Table, pub Publisher, opts ...Option) (*Monitor, *fakeClock) {
	clock := testClock(t)
	filter, err := timewindow.Load(timewindow.DefaultZone, timewindow.DefaultTolerance, clock.Now)
	require.NoError(t, err)
	o := DefaultOptions()
	o.DiagnosticsInterval = 0
	all := append([]Option{WithClock(clock), WithOptions(o)}, opts...)
	return New(table, pub, filter, all...), clock
}
