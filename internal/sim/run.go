package sim

import (
	"context"
	"time"

	"tollsim/internal/logging"
)

// Run starts the tick loop and stops when the context is done. Each tick's
// full effect completes before the next begins; writer failures are logged
// and never abort a tick.
func (e *Engine) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting engine", "tick_interval", e.tickInterval, "scenario", e.Scenario())
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.advanceScript()
			snap := e.SimulateStep(e.Scenario())
			if e.writer != nil {
				if err := e.writer.Write(snap); err != nil {
					log.Error("snapshot write failed", "err", err)
				}
			}
			e.maybeAdjustToll(ctx)
		case <-ctx.Done():
			log.Info("stopping engine")
			return
		}
	}
}

// advanceScript switches the active scenario per the installed script.
func (e *Engine) advanceScript() {
	e.mu.Lock()
	script, tick := e.script, e.ticks
	e.mu.Unlock()
	if script == nil {
		return
	}
	if name, ok := script.At(tick); ok {
		_ = e.SetScenario(name)
	}
}

// maybeAdjustToll runs the pricing controller when the simulated clock
// passes the next scheduled adjustment.
func (e *Engine) maybeAdjustToll(ctx context.Context) {
	if e.controller == nil {
		return
	}
	e.mu.Lock()
	due := !e.simTime.Before(e.nextAdjust)
	if due {
		e.nextAdjust = e.schedule.Next(e.simTime)
	}
	e.mu.Unlock()
	if !due {
		return
	}

	log := logging.FromContext(ctx)
	state := e.CurrentState()
	proposed := e.controller.Recommend(ctx, state)
	applied := e.UpdateTollPrice(proposed)
	log.Info("toll adjusted",
		"proposed", proposed,
		"applied", applied,
		"tunnel_congestion", state.TunnelCongestion,
		"revenue", state.Revenue)

	e.mu.Lock()
	prev := e.prevState
	e.prevState = &state
	e.mu.Unlock()
	if prev != nil {
		e.controller.TrainStep(ctx, *prev, applied, state)
	}
}
