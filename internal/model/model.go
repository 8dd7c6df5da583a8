package model

import "time"

const (
	DefaultTopic  = "lis-msg/black_box"
	DefaultSource = "blackbox_options_monitor"
)

// CellRecord is one non-empty table cell. Color is always "#RRGGBB" upper case
// once it has gone through the normalizer.
type CellRecord struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// RowSnapshot holds the non-empty cells of one row in left-to-right order.
type RowSnapshot []CellRecord

// Envelope is the message published for a newly seen row.
type Envelope struct {
	Data      RowSnapshot `json:"data"`
	Timestamp int64       `json:"timestamp"` //epoch millis
	Source    string      `json:"source"`
}

func NewEnvelope(data RowSnapshot, at time.Time, source string) Envelope {
	return Envelope{Data: data, Timestamp: at.UnixMilli(), Source: source}
}
