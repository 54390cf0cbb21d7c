package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type ReliableConfig struct {
	RateLimit     float64
	Burst         int
	MaxAttempts   uint
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	// OnStateChange — для метрики состояния предохранителя; может быть nil.
	OnStateChange func(name string, from, to gobreaker.State)
}

// Reliable оборачивает Notifier: лимит, предохранитель и повторы.
// Хост, заваленный сообщениями, не должен тормозить проверки размещения.
type Reliable struct {
	next        Notifier
	cb          *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
	maxAttempts uint
}

func NewReliable(next Notifier, cfg ReliableConfig) *Reliable {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "host-notifier",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: cfg.OnStateChange,
		IsSuccessful: func(err error) bool {
			// 4xx: проблема сообщения, а не хоста
			var pErr *PermanentError
			return err == nil || errors.As(err, &pErr)
		},
	})

	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	return &Reliable{
		next:        next,
		cb:          cb,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		maxAttempts: attempts,
	}
}

func (r *Reliable) Send(ctx context.Context, actorID, messageKey string) error {
	// 1. Rate Limiter
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	_, err := r.cb.Execute(func() (interface{}, error) {
		var permanent error

		rt := retry.New(
			retry.Context(ctx),
			retry.Attempts(r.maxAttempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Хост сам сказал, сколько ждать
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := rt.Do(func() error {
			callErr := r.next.Send(ctx, actorID, messageKey)
			var pErr *PermanentError
			if errors.As(callErr, &pErr) {
				// повтор бессмысленен, выходим из retry и отдаем ошибку ниже
				permanent = callErr
				return nil
			}
			return callErr
		})
		if permanent != nil {
			return nil, permanent
		}
		return nil, retryErr
	})
	return err
}
