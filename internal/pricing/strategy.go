// Toll pricing strategies consuming engine state aggregates
package pricing

import "tollsim/internal/traffic"

// Strategy produces toll price recommendations from aggregated simulation
// state. Adaptive strategies learn from TrainStep; static ones treat it as
// a no-op. A Strategy must never be trusted to succeed: the Controller
// downgrades any error to the rule-based fallback.
type Strategy interface {
	Recommend(state traffic.State) (float64, error)
	TrainStep(prev traffic.State, appliedPrice float64, next traffic.State) error
}
