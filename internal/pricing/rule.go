package pricing

import (
	"tollsim/internal/config"
	"tollsim/internal/traffic"
)

// RuleBased prices the toll with hand-tuned multiplicative rules on tunnel
// congestion, revenue against the hourly target, and time of day.
type RuleBased struct {
	toll          config.TollConfig
	revenueTarget float64
}

// NewRuleBased creates the rule-based strategy.
func NewRuleBased(toll config.TollConfig, revenueTarget float64) *RuleBased {
	return &RuleBased{toll: toll, revenueTarget: revenueTarget}
}

// Recommend multiplies the base price by independent congestion, revenue,
// and time-of-day factors. The factors compound multiplicatively; the result
// is clamped to the configured price bounds. It never fails.
func (m *RuleBased) Recommend(state traffic.State) (float64, error) {
	var mult float64
	switch {
	case state.TunnelCongestion > 0.8:
		mult = 1.5
	case state.TunnelCongestion > 0.5:
		mult = 1.2
	default:
		mult = 0.9
	}

	ratio := state.Revenue / m.revenueTarget
	if ratio < 0.7 {
		mult *= 1.2
	} else if ratio > 1.3 {
		mult *= 0.9
	}

	h := state.Hour
	if (h >= 7 && h <= 9) || (h >= 17 && h <= 19) {
		mult *= 1.3
	} else if h >= 22 || h <= 6 {
		mult *= 0.7
	}

	price := m.toll.BasePrice * mult
	if price < m.toll.MinPrice {
		price = m.toll.MinPrice
	} else if price > m.toll.MaxPrice {
		price = m.toll.MaxPrice
	}
	return price, nil
}

// TrainStep is a no-op; the rules are static.
func (m *RuleBased) TrainStep(prev traffic.State, appliedPrice float64, next traffic.State) error {
	return nil
}
