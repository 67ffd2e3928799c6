// Package imagestore keeps uploaded images in external object storage and
// hands back the public reference stored on accounts and posts.
package imagestore

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Store uploads a staged local file and deletes previously stored images by reference.
type Store interface {
	// Upload stores the file at path and returns its public URL.
	Upload(ctx context.Context, path string) (string, error)
	// Delete removes the image behind ref. Unknown references are not an error.
	Delete(ctx context.Context, ref string) error
}

// Breaker fails fast while the wrapped store keeps failing. Calls are never retried.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreaker wraps next with a circuit breaker that opens after threshold consecutive failures.
func NewBreaker(next Store, threshold uint32, cooldown time.Duration, log *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        "imagestore",
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
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[string](settings)}
}

// Upload implements Store.
func (b *Breaker) Upload(ctx context.Context, path string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Upload(ctx, path)
	})
}

// Delete implements Store.
func (b *Breaker) Delete(ctx context.Context, ref string) error {
	_, err := b.cb.Execute(func() (string, error) {
		return "", b.next.Delete(ctx, ref)
	})
	return err
}
