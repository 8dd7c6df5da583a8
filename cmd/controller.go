package cmd

import (
	"context"
	"time"

	"github.com/AlfredBerg/optionstrip-monitor/internal/monitor"
	"github.com/AlfredBerg/optionstrip-monitor/internal/timewindow"
	"go.uber.org/zap"
)

// controller serves the page button and the signal handlers.
type controller struct {
	mon    *monitor.Monitor
	filter *timewindow.Filter
	log    *zap.Logger
}

func (c *controller) Toggle(ctx context.Context) {
	running, err := c.mon.Toggle(ctx)
	if err != nil {
		c.log.Error("toggling monitoring failed", zap.Error(err))
		return
	}
	if !running {
		if s := c.mon.Session(); s != nil {
			c.log.Info("session summary", zap.String("session", s.ID), zap.Any("stats", s.Stats()))
		}
	}
}

func (c *controller) SelfTest() {
	logSelfTest(c.log, c.filter)
}

func logSelfTest(log *zap.Logger, f *timewindow.Filter) {
	now := f.Now()
	log.Info("time window self-test",
		zap.Time("local", time.Now()),
		zap.String("reference", now.Format("2006-01-02 15:04:05 MST")))

	for _, r := range f.SelfTest() {
		if r.Err != nil {
			log.Warn("self-test case", zap.String("input", r.Input), zap.Error(r.Err))
			continue
		}
		log.Info("self-test case",
			zap.String("input", r.Input),
			zap.String("period", r.Match.Period),
			zap.String("target", r.Match.Target.Format("15:04:05")),
			zap.Duration("diff", r.Match.Diff.Round(time.Second)),
			zap.Bool("recent", r.Match.Recent))
	}
}
