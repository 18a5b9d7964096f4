package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/dart-portal/internal/common"
)

// Defaults for the retry loop.
const (
	DefaultMaxAttempts    = 5
	DefaultBackoffUnit    = time.Second
	DefaultAttemptTimeout = 60 * time.Second
)

// Options tunes the retry loop. Zero values fall back to the defaults.
// Model is the generator's model name, used to recognise model errors.
type Options struct {
	Model          string
	MaxAttempts    int
	BackoffUnit    time.Duration
	AttemptTimeout time.Duration
}

// Result is a successful explanation.
type Result struct {
	Text       string
	Attempts   int
	RetryCount int
	Backoff    time.Duration
}

// Client wraps a Generator with bounded retries.
type Client struct {
	gen            Generator
	model          string
	logger         *common.Logger
	maxAttempts    int
	unit           time.Duration
	attemptTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewClient creates a retrying client around gen.
func NewClient(gen Generator, opts Options, logger *common.Logger) *Client {
	c := &Client{
		gen:            gen,
		model:          opts.Model,
		logger:         logger,
		maxAttempts:    opts.MaxAttempts,
		unit:           opts.BackoffUnit,
		attemptTimeout: opts.AttemptTimeout,
		sleep:          sleepContext,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.unit <= 0 {
		c.unit = DefaultBackoffUnit
	}
	if c.attemptTimeout <= 0 {
		c.attemptTimeout = DefaultAttemptTimeout
	}
	return c
}

// backoffFor is the wait before attempt k (k >= 1): 2^k units.
func (c *Client) backoffFor(k int) time.Duration {
	return time.Duration(1<<uint(k)) * c.unit
}

// Explain runs prompt through the generator until an attempt succeeds, a
// fatal error is seen, or the attempts run out.
func (c *Client) Explain(ctx context.Context, prompt string) (*Result, error) {
	var (
		last    AttemptResult
		backoff time.Duration
	)

	for k := 0; k < c.maxAttempts; k++ {
		if k > 0 {
			wait := c.backoffFor(k)
			c.logger.Info().Int("attempt", k+1).Dur("wait", wait).Msg("retrying generation")
			if err := c.sleep(ctx, wait); err != nil {
				if last.Err == nil {
					last.Err = err
				}
				return nil, exhaustedError(k, last.Err)
			}
			backoff += wait
		}

		last = c.attempt(ctx, prompt)

		switch last.Outcome {
		case OutcomeSuccess:
			c.logger.Info().
				Int("attempts", k+1).
				Int("chars", len([]rune(last.Text))).
				Msg("generation complete")
			return &Result{Text: last.Text, Attempts: k + 1, RetryCount: k, Backoff: backoff}, nil
		case OutcomeFatal:
			c.logger.Error().Err(last.Err).Str("kind", last.Kind).Int("attempt", k+1).Msg("generation failed, not retrying")
			return nil, fatalError(last)
		case OutcomeRetryable:
			c.logger.Warn().Err(last.Err).Int("attempt", k+1).Int("max_attempts", c.maxAttempts).Msg("generation attempt failed")
		}
	}

	c.logger.Error().Err(last.Err).Int("attempts", c.maxAttempts).Msg("generation attempts exhausted")
	return nil, exhaustedError(c.maxAttempts, last.Err)
}

// attempt makes one bounded call and classifies it.
func (c *Client) attempt(ctx context.Context, prompt string) AttemptResult {
	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	text, err := c.gen.Generate(actx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("request timed out after %s: %w", c.attemptTimeout, err)
		}
		return Classify(err, c.model)
	}
	return validate(text)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
