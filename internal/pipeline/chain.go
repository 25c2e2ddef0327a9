// Package pipeline runs a stage as an ordered list of fallback tiers.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"narrator/internal/domain"
	"narrator/internal/infra"
)

// Tier is one attempt within a stage. Run returns the path of the artifact it
// produced; a nil error is the success predicate.
type Tier struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// Failure records why a tier was skipped over.
type Failure struct {
	Tier string
	Err  error
}

// Result describes the artifact a stage ended up with.
type Result struct {
	Path     string
	Tier     string
	Failures []Failure
}

// Fallback reports whether a tier other than the first one produced the result.
func (r Result) Fallback() bool {
	return len(r.Failures) > 0
}

// Chain evaluates tiers in order until one succeeds. The last tier is
// expected to be a stand-in that only fails when the disk does.
type Chain struct {
	stage  string
	tiers  []Tier
	logger infra.Logger
}

// NewChain builds a chain for the named stage.
func NewChain(stage string, logger infra.Logger, tiers ...Tier) *Chain {
	return &Chain{stage: stage, tiers: tiers, logger: logger}
}

// Tiers returns the tier names in evaluation order.
func (c *Chain) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name
	}
	return names
}

// Run evaluates the chain. Context cancellation does not stop the chain: the
// tiers decide for themselves whether they need the context.
func (c *Chain) Run(ctx context.Context) (Result, error) {
	var res Result
	for i, tier := range c.tiers {
		path, err := runTier(ctx, tier)
		if err == nil {
			res.Path = path
			res.Tier = tier.Name
			if res.Fallback() {
				c.logger.Info().
					Str("stage", c.stage).
					Str("tier", tier.Name).
					Str("path", path).
					Msg("pipeline: fallback tier produced artifact")
			}
			return res, nil
		}
		res.Failures = append(res.Failures, Failure{Tier: tier.Name, Err: err})

		ev := c.logger.Warn().Err(err).Str("stage", c.stage).Str("tier", tier.Name)
		if i+1 < len(c.tiers) {
			ev.Str("next", c.tiers[i+1].Name).Msg("pipeline: tier failed; falling back")
		} else {
			ev.Msg("pipeline: last tier failed")
		}
	}

	errs := make([]error, 0, len(res.Failures)+1)
	errs = append(errs, fmt.Errorf("%s: %w", c.stage, domain.ErrStageExhausted))
	for _, f := range res.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Tier, f.Err))
	}
	return res, errors.Join(errs...)
}

func runTier(ctx context.Context, tier Tier) (path string, err error) {
	if tier.Run == nil {
		return "", errors.New("tier not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tier panicked: %v", r)
		}
	}()
	return tier.Run(ctx)
}
