// Package fallback runs an ordered list of strategies and keeps the first
// one that succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrAllFailed = errors.New("all strategies failed")
	// ErrNotApplicable lets a strategy step aside, e.g. when it needs a session.
	ErrNotApplicable = errors.New("strategy not applicable")
	ErrNoStrategies  = errors.New("no strategies configured")
)

type Strategy[In, Out any] struct {
	Name  string
	Check func(ctx context.Context, in In) (Out, error)
}

type Chain[In, Out any] struct {
	strategies []Strategy[In, Out]
	onFailure  func(name string, err error)
}

func NewChain[In, Out any](strategies ...Strategy[In, Out]) *Chain[In, Out] {
	return &Chain[In, Out]{strategies: strategies}
}

// OnFailure registers a hook called for every strategy that errors.
func (c *Chain[In, Out]) OnFailure(fn func(name string, err error)) *Chain[In, Out] {
	c.onFailure = fn

	return c
}

// Run returns the first successful output together with the winning
// strategy name. When every strategy fails the error wraps ErrAllFailed and
// each individual failure.
func (c *Chain[In, Out]) Run(ctx context.Context, in In) (Out, string, error) {
	var zero Out

	if len(c.strategies) == 0 {
		return zero, "", ErrNoStrategies
	}

	errs := make([]error, 0, len(c.strategies)+1)
	errs = append(errs, ErrAllFailed)

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", fmt.Errorf("before %s: %w", s.Name, err)
		}

		out, err := s.Check(ctx, in)
		if err == nil {
			return out, s.Name, nil
		}

		if c.onFailure != nil {
			c.onFailure(s.Name, err)
		}

		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}

	return zero, "", errors.Join(errs...)
}
