package pricing

import (
	"context"

	"tollsim/internal/logging"
	"tollsim/internal/traffic"
)

// Controller wraps the active pricing strategy with the rule-based fallback.
// Any strategy failure degrades to the fallback without propagating; this is
// a designed control path, not incidental error swallowing.
type Controller struct {
	strategy Strategy
	fallback *RuleBased
}

// NewController creates a controller. A nil strategy runs on the fallback
// alone.
func NewController(strategy Strategy, fallback *RuleBased) *Controller {
	return &Controller{strategy: strategy, fallback: fallback}
}

// Recommend returns the proposed toll price for the given state. The caller
// still applies the engine's rate limiter before the price takes effect.
func (c *Controller) Recommend(ctx context.Context, state traffic.State) float64 {
	if c.strategy != nil {
		price, err := c.strategy.Recommend(state)
		if err == nil {
			return price
		}
		logging.FromContext(ctx).Warn("pricing strategy failed, using rule-based fallback", "err", err)
	}
	price, _ := c.fallback.Recommend(state)
	return price
}

// TrainStep forwards the observed transition to the active strategy.
// Training failures are logged and dropped; they must never reach the tick
// loop.
func (c *Controller) TrainStep(ctx context.Context, prev traffic.State, appliedPrice float64, next traffic.State) {
	if c.strategy == nil {
		return
	}
	if err := c.strategy.TrainStep(prev, appliedPrice, next); err != nil {
		logging.FromContext(ctx).Debug("pricing train step failed", "err", err)
	}
}
