package monitor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AlfredBerg/optionstrip-monitor/internal/extract"
	"github.com/AlfredBerg/optionstrip-monitor/internal/model"
	"go.uber.org/zap"
)

type RowStatus string

const (
	StatusPublished RowStatus = "published"
	StatusEmpty     RowStatus = "empty"
	StatusStale     RowStatus = "stale"
	StatusFailed    RowStatus = "failed"
)

// RowResult is the outcome for one previously unseen row.
type RowResult struct {
	Key    string
	Status RowStatus
	Recent bool
	Cells  int
	Err    error
}

type PassReport struct {
	Pass    int
	Total   int
	Skipped int
	Rows    []RowResult
	// Aborted is set when the session was stopped part way through the pass.
	Aborted bool
}

// ScanPass sweeps the table once, newest row first. Each unseen row is
// handled and marked seen whatever the outcome. The error is only set when
// the table itself could not be read.
func (m *Monitor) ScanPass(s *Session) (PassReport, error) {
	s.passes++
	report := PassReport{Pass: s.passes}

	rows, err := m.table.Rows(s.ctx)
	if err != nil {
		return report, fmt.Errorf("reading rows: %w", err)
	}
	report.Total = len(rows)

	for i := len(rows) - 1; i >= 0; i-- {
		if !s.Running() {
			report.Aborted = true
			break
		}
		row := rows[i]
		if s.Seen(row.Key()) {
			report.Skipped++
			continue
		}
		report.Rows = append(report.Rows, m.handleRow(s, row))
	}
	return report, nil
}

func (m *Monitor) handleRow(s *Session, row Row) (res RowResult) {
	key := row.Key()
	res = RowResult{Key: key}
	log := m.log.With(zap.String("row", key))

	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("panic handling row: %v", p)
		}
		if res.Err != nil {
			log.Error("failed handling row", zap.Error(res.Err))
		}
		s.markSeen(key)
	}()

	res.Recent = m.checkWindow(s, row, log)
	if !res.Recent && m.opts.EnforceWindow {
		res.Status = StatusStale
		return res
	}

	data := extract.Cells(s.work, row, log)
	res.Cells = len(data)
	if len(data) == 0 {
		res.Status = StatusEmpty
		return res
	}

	env := model.NewEnvelope(data, m.clock.Now(), m.opts.Source)
	payload, err := json.Marshal(env)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("encoding envelope: %w", err)
		return res
	}

	if err := m.publisher.Publish(s.work, m.opts.Topic, payload); err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("publishing: %w", err)
	} else {
		res.Status = StatusPublished
		log.Info("published row", zap.String("topic", m.opts.Topic), zap.Any("data", data))
	}

	if m.opts.Screenshots && m.shots != nil {
		m.sendScreenshot(s, row, log)
	}

	// Throttle bursts of new rows.
	s.wait(m.clock, m.opts.PublishDelay)
	return res
}

func (m *Monitor) checkWindow(s *Session, row Row, log *zap.Logger) bool {
	text, err := row.TimeText(s.work)
	if err != nil {
		log.Warn("failed reading row time", zap.Error(err))
		return false
	}
	match, err := m.filter.Check(text)
	if err != nil {
		log.Warn("could not parse row time", zap.Error(err))
		return false
	}
	if !match.Recent {
		log.Info("row outside time window",
			zap.String("time", text),
			zap.String("period", match.Period),
			zap.Duration("diff", match.Diff.Round(time.Second)),
			zap.Bool("enforced", m.opts.EnforceWindow))
	}
	return match.Recent
}

func (m *Monitor) sendScreenshot(s *Session, row Row, log *zap.Logger) {
	shooter, ok := row.(Screenshotter)
	if !ok {
		return
	}
	png, err := shooter.Screenshot(s.work)
	if err != nil {
		log.Warn("row screenshot failed", zap.Error(err))
		return
	}
	symbol := row.Symbol()
	if symbol == "" {
		symbol = "Unknown"
	}
	if err := m.shots.SendScreenshot(s.work, symbol, png); err != nil {
		log.Warn("sending screenshot failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}
	log.Info("screenshot sent", zap.String("symbol", symbol))
}
