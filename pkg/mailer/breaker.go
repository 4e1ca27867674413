package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	// Consecutive failures that open the circuit.
	MaxFailures uint32
	// How long the circuit stays open before a trial request.
	OpenTimeout time.Duration
	OnOpen      func()
}

// BreakerSender stops hammering an SMTP server that keeps failing.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[struct{}]
}

func NewBreakerSender(next Sender, st BreakerSettings, log *zap.Logger) *BreakerSender {
	if st.MaxFailures == 0 {
		st.MaxFailures = 5
	}
	if st.OpenTimeout <= 0 {
		st.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     st.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= st.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("mail circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if to == gobreaker.StateOpen && st.OnOpen != nil {
				st.OnOpen()
			}
		},
	})

	return &BreakerSender{next: next, cb: cb}
}

func (s *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
