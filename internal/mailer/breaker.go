package mailer

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Breaker fails fast while the wrapped sender keeps failing. It never retries.
type Breaker struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreaker wraps next; the circuit opens after threshold consecutive failures and
// probes again after cooldown.
func NewBreaker(next Sender, threshold uint32, cooldown time.Duration, log *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// Send delivers m through the breaker.
func (b *Breaker) Send(ctx context.Context, m Message) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Send(ctx, m)
	})
	return err
}

// State reports the breaker state for health output.
func (b *Breaker) State() string { return b.cb.State().String() }
