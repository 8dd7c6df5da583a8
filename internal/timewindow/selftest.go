package timewindow

import (
	"fmt"
	"time"
)

type SelfTestResult struct {
	Input string
	Match Match
	Err   error
}

// SelfTest runs the filter against times around now plus two fixed values.
func (f *Filter) SelfTest() []SelfTestResult {
	now := f.Now()
	inputs := []string{
		clock(now),
		clock(now.Add(5 * time.Minute)),
		clock(now.Add(-5 * time.Minute)),
		clock(now.Add(15 * time.Minute)),
		"10:16",
		"22:16",
	}

	results := make([]SelfTestResult, 0, len(inputs))
	for _, in := range inputs {
		m, err := f.Check(in)
		results = append(results, SelfTestResult{Input: in, Match: m, Err: err})
	}
	return results
}

func clock(t time.Time) string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}
