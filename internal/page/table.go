package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/AlfredBerg/optionstrip-monitor/internal/extract"
	"github.com/AlfredBerg/optionstrip-monitor/internal/js"
	"github.com/AlfredBerg/optionstrip-monitor/internal/monitor"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Table reads rows from a live page.
type Table struct {
	Page         *rod.Page
	RowSelector  string
	TimeSelector string
}

type rowInfo struct {
	Key    string `json:"key"`
	Symbol string `json:"symbol"`
}

// keyedRow is a row whose key is read from its own element.
type keyedRow interface {
	monitor.Row
	loadKey(ctx context.Context) error
}

func (t *Table) Rows(ctx context.Context) ([]monitor.Row, error) {
	els, err := t.Page.Context(ctx).Elements(t.RowSelector)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.RowSelector, err)
	}

	rows := make([]keyedRow, len(els))
	for i, el := range els {
		rows[i] = &liveRow{el: el, timeSelector: t.TimeSelector}
	}
	return loadKeys(ctx, rows)
}

// loadKeys keys every row from its own element. Rows that can no longer be
// read, usually because the grid removed them, are left out and not marked
// seen, so they are looked at again next pass if they are still there.
func loadKeys(ctx context.Context, rows []keyedRow) ([]monitor.Row, error) {
	out := make([]monitor.Row, 0, len(rows))
	for _, r := range rows {
		if err := r.loadKey(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("reading row keys: %w", ctx.Err())
			}
			continue
		}
		if r.Key() == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type liveRow struct {
	el           *rod.Element
	info         rowInfo
	timeSelector string
}

func (r *liveRow) loadKey(ctx context.Context) error {
	res, err := r.el.Context(ctx).Eval(js.ROW_KEY, r.timeSelector)
	if err != nil {
		return err
	}
	if err := res.Value.Unmarshal(&r.info); err != nil {
		return fmt.Errorf("decoding row key: %w", err)
	}
	return nil
}

func (r *liveRow) Key() string    { return r.info.Key }
func (r *liveRow) Symbol() string { return r.info.Symbol }

func (r *liveRow) TimeText(ctx context.Context) (string, error) {
	// Elements does not wait, Element would block until the cell shows up.
	cells, err := r.el.Context(ctx).Elements(r.timeSelector)
	if err != nil {
		return "", err
	}
	if cells.Empty() {
		return "", fmt.Errorf("row has no %s cell", r.timeSelector)
	}
	text, err := cells.First().Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (r *liveRow) RawCells(ctx context.Context) ([]extract.RawCell, error) {
	res, err := r.el.Context(ctx).Eval(js.ROW_CELLS)
	if err != nil {
		return nil, err
	}
	var cells []extract.RawCell
	if err := res.Value.Unmarshal(&cells); err != nil {
		return nil, fmt.Errorf("decoding cells: %w", err)
	}
	return cells, nil
}

func (r *liveRow) Screenshot(ctx context.Context) ([]byte, error) {
	return r.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}
