package robot

import (
	"context"
	"time"

	"github.com/mtdev/go-dogtrack/internal/log"
)

// Poll issues distance polls at the given interval until ctx is done or
// the client closes, with a battery poll mixed in every tenth cycle.
// Replies come back asynchronously through the registered callbacks.
func (c *Client) Poll(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-t.C:
			if err := c.PollSonic(); err != nil {
				log.Warn("sonic poll failed", "error", err)
				return
			}
			n++
			if n%10 == 0 {
				if err := c.PollPower(); err != nil {
					log.Warn("power poll failed", "error", err)
					return
				}
			}
		}
	}
}
