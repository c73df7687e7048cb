package llm

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pagemill/pagemill/internal/domain"
)

// ResilientConfig controls the breaker and rate limiter around a provider.
type ResilientConfig struct {
	Name            string
	RequestsPerMin  int
	BreakerInterval time.Duration
	BreakerTimeout  time.Duration
}

// DefaultResilientConfig returns defaults suitable for hosted providers.
func DefaultResilientConfig(name string) ResilientConfig {
	return ResilientConfig{
		Name:            name,
		RequestsPerMin:  300,
		BreakerInterval: 10 * time.Second,
		BreakerTimeout:  60 * time.Second,
	}
}

// ResilientClient wraps a provider with a circuit breaker and rate limiter so a
// dead endpoint fails fast instead of stalling every request.
type ResilientClient struct {
	inner   Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

var _ Client = (*ResilientClient)(nil)

// NewResilientClient wraps inner with breaker and rate limiting.
func NewResilientClient(inner Client, cfg ResilientConfig) *ResilientClient {
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 300
	}
	if cfg.BreakerInterval <= 0 {
		cfg.BreakerInterval = 10 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 5,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("llm breaker %s: %s -> %s", name, from, to)
		},
	})

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60.0), cfg.RequestsPerMin/10+1)

	return &ResilientClient{
		inner:   inner,
		breaker: breaker,
		limiter: limiter,
	}
}

// GenerateEmbedding proxies to the wrapped client through the breaker.
func (c *ResilientClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.GenerateEmbedding(ctx, text)
	})
	if err != nil {
		return nil, translateBreakerErr(err)
	}
	return result.([]float32), nil
}

// Complete proxies to the wrapped client through the breaker.
func (c *ResilientClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Complete(ctx, req)
	})
	if err != nil {
		return "", translateBreakerErr(err)
	}
	return result.(string), nil
}

func translateBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "llm provider unavailable", err)
	}
	return err
}
