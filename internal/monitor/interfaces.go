package monitor

import (
	"context"
	"time"

	"github.com/AlfredBerg/optionstrip-monitor/internal/extract"
)

// Table is the live list of rows, in document order.
type Table interface {
	Rows(ctx context.Context) ([]Row, error)
}

type Row interface {
	extract.CellSource

	// Key identifies the row for the lifetime of a session.
	Key() string
	// Symbol is a human label for the row, used for screenshot names.
	Symbol() string
	TimeText(ctx context.Context) (string, error)
}

// Screenshotter is implemented by rows that can render themselves.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type ScreenshotSink interface {
	SendScreenshot(ctx context.Context, symbol string, png []byte) error
}

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
