package monitor

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// MultiPublisher sends every payload to all publishers concurrently. The
// returned error joins the individual failures.
type MultiPublisher []Publisher

func (mp MultiPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p := pool.New().WithErrors()
	for _, pub := range mp {
		pub := pub
		p.Go(func() error {
			return pub.Publish(ctx, topic, payload)
		})
	}
	return p.Wait()
}
