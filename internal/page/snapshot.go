package page

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/AlfredBerg/optionstrip-monitor/internal/extract"
	"github.com/AlfredBerg/optionstrip-monitor/internal/monitor"
	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a Table over saved HTML. There is no layout engine behind it,
// so the computed color is whatever a legacy color attribute says.
type Snapshot struct {
	rows []monitor.Row
}

func LoadSnapshot(r io.Reader, rowSelector, timeSelector string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	s := &Snapshot{}
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		sr := &snapshotRow{sel: row, timeSelector: timeSelector}
		sr.symbol, _ = row.Attr("data-symbol")
		sr.key = snapshotKey(row, sr.symbol, timeSelector)
		s.rows = append(s.rows, sr)
	})
	return s, nil
}

func (s *Snapshot) Rows(context.Context) ([]monitor.Row, error) {
	return s.rows, nil
}

func snapshotKey(row *goquery.Selection, symbol, timeSelector string) string {
	if uid, ok := row.Attr("data-uid"); ok && uid != "" {
		return uid
	}
	time := strings.TrimSpace(row.Find(timeSelector).First().Text())
	if symbol != "" && time != "" {
		return symbol + "@" + time
	}
	return strings.Join(strings.Fields(row.Text()), " ")
}

type snapshotRow struct {
	sel          *goquery.Selection
	key          string
	symbol       string
	timeSelector string
}

func (r *snapshotRow) Key() string    { return r.key }
func (r *snapshotRow) Symbol() string { return r.symbol }

func (r *snapshotRow) TimeText(context.Context) (string, error) {
	cell := r.sel.Find(r.timeSelector).First()
	if cell.Length() == 0 {
		return "", fmt.Errorf("row has no %s cell", r.timeSelector)
	}
	return strings.TrimSpace(cell.Text()), nil
}

func (r *snapshotRow) RawCells(context.Context) ([]extract.RawCell, error) {
	var cells []extract.RawCell
	r.sel.Find("td").Each(func(_ int, td *goquery.Selection) {
		style, _ := td.Attr("style")
		computed, _ := td.Attr("color")
		cells = append(cells, extract.RawCell{
			Text:          td.Text(),
			InlineColor:   styleColor(style),
			ComputedColor: computed,
		})
	})
	return cells, nil
}

// styleColor pulls the color declaration out of an inline style attribute.
func styleColor(style string) string {
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(prop), "color") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
