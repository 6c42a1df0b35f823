package mcp

import (
	"context"
	"math/rand"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// startKeepalive emits progress notifications for a long-running tool
// call so clients with short idle timeouts do not drop the session.
// Notifications carry a bare monotonic tick, no total.
//
// Nothing is emitted when the client did not supply a progress token.
// The returned stop function must be called when the tool finishes.
func (s *Server) startKeepalive(ctx context.Context, req *mcp.CallToolRequest) (stop func()) {
	token := req.Params.GetProgressToken()
	if token == nil {
		return func() {}
	}

	done := make(chan struct{})

	go func() {
		var tick float64
		for {
			timer := time.NewTimer(s.keepaliveDelay())
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-done:
				timer.Stop()
				return
			case <-timer.C:
			}

			tick++
			err := req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
				ProgressToken: token,
				Progress:      tick,
			})
			if err != nil {
				s.logger.Debug("keepalive notification failed", zap.Error(err))
				return
			}
		}
	}()

	return func() { close(done) }
}

// keepaliveDelay jitters the interval so concurrent calls do not
// notify in lockstep.
func (s *Server) keepaliveDelay() time.Duration {
	interval := s.keepaliveInterval
	jitter := s.keepaliveJitter
	if jitter <= 0 {
		return interval
	}
	offset := time.Duration((rand.Float64()*2 - 1) * float64(jitter))
	return interval + offset
}
