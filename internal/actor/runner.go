package actor

import (
	"context"
	"math/rand"
	"time"

	"github.com/danmuck/readyctl/internal/transport"
	"github.com/rs/zerolog/log"
)

// KeepConnected connects c and reconnects after every drop until ctx ends.
// It returns nil on cancellation and the connect error once
// MaxConnectAttempts is exhausted.
func KeepConnected(ctx context.Context, c *Client) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		if err := c.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			_ = c.Close()
			<-c.Done()
			return nil
		case <-c.Done():
		}
		log.Warn().Str("role", c.Role().String()).Msg("event channel dropped, reconnecting")
		if err := transport.Sleep(ctx, c.cfg.Transport.Backoff, 1, rng); err != nil {
			return nil
		}
	}
}
