package extract

import (
	"context"
	"strings"

	"github.com/AlfredBerg/optionstrip-monitor/internal/color"
	"github.com/AlfredBerg/optionstrip-monitor/internal/model"
	"go.uber.org/zap"
)

// RawCell is what the document reports for one td, before any cleanup.
type RawCell struct {
	Text          string `json:"text"`
	InlineColor   string `json:"inline"`
	ComputedColor string `json:"computed"`
}

type CellSource interface {
	RawCells(ctx context.Context) ([]RawCell, error)
}

// Cells extracts the non-empty cells of a row. A source error is logged and
// results in an empty snapshot so a broken row never stops a scan.
func Cells(ctx context.Context, src CellSource, logger *zap.Logger) model.RowSnapshot {
	raw, err := src.RawCells(ctx)
	if err != nil {
		logger.Warn("failed reading row cells", zap.Error(err))
		return model.RowSnapshot{}
	}

	data := make(model.RowSnapshot, 0, len(raw))
	for _, c := range raw {
		if rec, ok := Resolve(c); ok {
			data = append(data, rec)
		}
	}
	logger.Debug("parsed row", zap.Any("data", data))
	return data
}

// Resolve cleans one cell. The bool is false when the cell has no text.
func Resolve(c RawCell) (model.CellRecord, bool) {
	text := collapse(c.Text)
	if text == "" {
		return model.CellRecord{}, false
	}
	return model.CellRecord{Text: text, Color: color.Normalize(pickColor(c))}, true
}

func pickColor(c RawCell) string {
	picked := color.White
	if c.InlineColor != "" && c.InlineColor != "transparent" {
		picked = c.InlineColor
	}

	// Plain white computed styles are the page default, not a signal.
	if picked == color.White || picked == "white" {
		if c.ComputedColor != "" && c.ComputedColor != "rgb(255, 255, 255)" && c.ComputedColor != "white" {
			picked = c.ComputedColor
		}
	}
	return picked
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
