// Package ratelimit governs outbound request concurrency and pacing.
// A Limiter bounds the number of in-flight requests with counted permits,
// spaces request starts by a minimum interval, and in adaptive mode backs
// off when the target signals distress.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/shadowprobe/shadowprobe/pkg/duration"
)

// Backoff reasons reported to Config.OnBackoff.
const (
	ReasonDistress = "distress"
	ReasonSlow     = "slow_response"
)

// Config holds rate limiting configuration
type Config struct {
	// Permits bounds concurrently in-flight requests (minimum 1)
	Permits int

	// RequestsPerSecond sets the minimum interval between request starts
	// to 1s/RequestsPerSecond (0 = 100ms floor)
	RequestsPerSecond int

	// Adaptive enables backoff on 429/5xx and slow responses
	Adaptive bool

	// DistressCooldown is imposed after a 429 or 5xx (default 2s)
	DistressCooldown time.Duration

	// SlowThreshold marks a response as slow (default 5s)
	SlowThreshold time.Duration

	// SlowCooldown is imposed after a slow response (default 500ms)
	SlowCooldown time.Duration

	// OnBackoff is called whenever a cooldown is imposed
	OnBackoff func(reason string, d time.Duration)

	// Logger receives backoff events (default slog.Default())
	Logger *slog.Logger
}

// DefaultConfig returns the balanced preset.
func DefaultConfig() *Config {
	cfg, _ := PresetConfig(PresetBalanced, 0)
	return cfg
}

// Interval returns the minimum spacing between request starts.
func (c *Config) Interval() time.Duration {
	if c.RequestsPerSecond <= 0 {
		return duration.DefaultInterval
	}
	return time.Second / time.Duration(c.RequestsPerSecond)
}

// Limiter provides concurrency and pacing control for HTTP requests.
// It never fails; it only delays. All waits honor context cancellation.
type Limiter struct {
	config   *Config
	interval time.Duration
	logger   *slog.Logger

	permits *semaphore.Weighted
	pacer   *rate.Limiter

	// Unix nano timestamps, atomic
	lastRequestNano int64
	cooldownUntil   int64

	inFlight atomic.Int64
	acquired atomic.Int64
	backoffs atomic.Int64
}

// New creates a new limiter with the given configuration
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Permits <= 0 {
		cfg.Permits = 1
	}
	if cfg.DistressCooldown <= 0 {
		cfg.DistressCooldown = duration.DistressCooldown
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = duration.SlowResponse
	}
	if cfg.SlowCooldown <= 0 {
		cfg.SlowCooldown = duration.SlowResponseCooldown
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval()
	return &Limiter{
		config:   cfg,
		interval: interval,
		logger:   logger,
		permits:  semaphore.NewWeighted(int64(cfg.Permits)),
		pacer:    rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Permit authorizes one in-flight request. Release must be called once the
// response has been read; extra calls are no-ops.
type Permit struct {
	l    *Limiter
	once sync.Once
}

// Release returns the permit to the pool.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.l.inFlight.Add(-1)
		p.l.permits.Release(1)
	})
}

// Acquire blocks until a permit is free, any adaptive cooldown has passed,
// and the minimum interval since the previous request start has elapsed.
// The only error is the context's.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if err := l.permits.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := l.waitCooldown(ctx); err != nil {
		l.permits.Release(1)
		return nil, err
	}
	if err := l.pacer.Wait(ctx); err != nil {
		l.permits.Release(1)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	atomic.StoreInt64(&l.lastRequestNano, time.Now().UnixNano())
	l.inFlight.Add(1)
	l.acquired.Add(1)
	return &Permit{l: l}, nil
}

func (l *Limiter) waitCooldown(ctx context.Context) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	// The deadline may move while we sleep; re-check until it has passed.
	for {
		until := atomic.LoadInt64(&l.cooldownUntil)
		d := time.Until(time.Unix(0, until))
		if until == 0 || d <= 0 {
			return nil
		}
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Reset(d)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Observe reports a completed response. In adaptive mode a 429 or 5xx
// imposes the distress cooldown and a response slower than the slow
// threshold imposes the smaller slow cooldown. Non-adaptive limiters ignore it.
func (l *Limiter) Observe(status int, latency time.Duration) {
	if !l.config.Adaptive {
		return
	}
	switch {
	case status == 429 || (status >= 500 && status <= 599):
		l.backoff(ReasonDistress, l.config.DistressCooldown, slog.Int("status", status))
	case latency > l.config.SlowThreshold:
		l.backoff(ReasonSlow, l.config.SlowCooldown, slog.Duration("latency", latency))
	}
}

func (l *Limiter) backoff(reason string, d time.Duration, attr slog.Attr) {
	target := time.Now().Add(d).UnixNano()
	for {
		cur := atomic.LoadInt64(&l.cooldownUntil)
		if cur >= target {
			break
		}
		if atomic.CompareAndSwapInt64(&l.cooldownUntil, cur, target) {
			break
		}
	}
	l.backoffs.Add(1)
	l.logger.Debug("rate limiter backoff", slog.String("reason", reason), slog.Duration("cooldown", d), attr)
	if l.config.OnBackoff != nil {
		l.config.OnBackoff(reason, d)
	}
}

// Stats is a point-in-time view of a Limiter.
type Stats struct {
	Permits     int           `json:"permits"`
	InFlight    int64         `json:"in_flight"`
	Interval    time.Duration `json:"interval"`
	Adaptive    bool          `json:"adaptive"`
	Acquired    int64         `json:"acquired"`
	Backoffs    int64         `json:"backoffs"`
	Cooldown    time.Duration `json:"cooldown"`
	LastRequest time.Time     `json:"last_request"`
}

// Stats returns current rate limiter statistics.
func (l *Limiter) Stats() Stats {
	st := Stats{
		Permits:  l.config.Permits,
		InFlight: l.inFlight.Load(),
		Interval: l.interval,
		Adaptive: l.config.Adaptive,
		Acquired: l.acquired.Load(),
		Backoffs: l.backoffs.Load(),
	}
	if until := atomic.LoadInt64(&l.cooldownUntil); until != 0 {
		if d := time.Until(time.Unix(0, until)); d > 0 {
			st.Cooldown = d
		}
	}
	if last := atomic.LoadInt64(&l.lastRequestNano); last != 0 {
		st.LastRequest = time.Unix(0, last)
	}
	return st
}
