package monitor

import (
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func (m *Monitor) diagnostics(s *Session, now time.Time) {
	if m.opts.DiagnosticsInterval <= 0 || now.Sub(s.lastDiag) < m.opts.DiagnosticsInterval {
		return
	}
	s.lastDiag = now

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	_, offset := now.Zone()

	m.log.Info("diagnostics",
		zap.String("heap", humanize.Bytes(ms.HeapAlloc)),
		zap.String("sys", humanize.Bytes(ms.Sys)),
		zap.Int("goroutines", runtime.NumGoroutine()),
		zap.Duration("utc_offset", time.Duration(offset)*time.Second),
		zap.Time("local", now.Local()),
		zap.Time("utc", now.UTC()))
}
