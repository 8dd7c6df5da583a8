package page

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

type Job struct {
	Browser    *rod.Browser
	Target     string
	NavTimeout time.Duration
	// FocusEvery keeps the tab in the foreground so the page keeps rendering
	// new rows. Zero disables it.
	FocusEvery time.Duration
	Logger     *zap.Logger
}

// Open creates a tab, navigates to the target and waits for it to settle.
// The focus keeper stops with ctx.
func (j *Job) Open(ctx context.Context) (*rod.Page, error) {
	page, err := j.Browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}

	navTimeout := j.NavTimeout
	if navTimeout <= 0 {
		navTimeout = time.Minute
	}
	err = page.Context(ctx).Timeout(navTimeout).Navigate(j.Target)
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("could not navigate to %s: %w", j.Target, err)
	}

	err = page.Context(ctx).Timeout(time.Second * 5).WaitStable(time.Second)
	if err != nil {
		j.Logger.Warn("wait stable errored out", zap.Error(err))
	}

	if j.FocusEvery > 0 {
		go j.keepFocus(ctx, page)
	}
	return page, nil
}

func (j *Job) keepFocus(ctx context.Context, page *rod.Page) {
	t := time.NewTicker(j.FocusEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := page.Activate(); err != nil {
				j.Logger.Warn("failed focusing tab", zap.Error(err))
				return
			}
		}
	}
}
