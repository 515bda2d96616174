package traffic

import (
	"math"
	"math/rand/v2"
)

// Chooser assigns vehicles to corridors with a multinomial logit model.
// Each choice is a single independent draw; no history is kept.
type Chooser struct {
	rng *rand.Rand
}

// NewChooser creates a chooser drawing from src.
func NewChooser(src rand.Source) *Chooser {
	return &Chooser{rng: rand.New(src)}
}

// Probabilities computes the logit choice probabilities for a vehicle over
// roads in their fixed configuration order. The tolled corridor's
// generalized cost includes the toll; free corridors cost travel time alone,
// weighted by the vehicle's value of time. Utilities are shifted by their
// maximum before exponentiation so extreme costs cannot produce NaN; the
// resulting probabilities are unchanged and sum to 1.
func Probabilities(roads []*Road, tollPrice, weatherFactor float64, v Vehicle) []float64 {
	utils := make([]float64, len(roads))
	maxU := math.Inf(-1)
	for i, r := range roads {
		cost := r.TravelTime(weatherFactor) * v.ValueOfTime
		if r.Config().Tolled {
			cost += tollPrice
		}
		u := -cost * v.PriceSensitivity
		utils[i] = u
		if u > maxU {
			maxU = u
		}
	}
	var total float64
	probs := make([]float64, len(utils))
	for i, u := range utils {
		e := math.Exp(u - maxU)
		probs[i] = e
		total += e
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// Choose picks a road index for the vehicle by walking the cumulative
// probability mass against one uniform draw. If rounding leaves the draw
// unmatched, the first free corridor is used.
func (c *Chooser) Choose(roads []*Road, tollPrice, weatherFactor float64, v Vehicle) int {
	probs := Probabilities(roads, tollPrice, weatherFactor, v)
	draw := c.rng.Float64()
	cumulative := 0.0
	for i, p := range probs {
		cumulative += p
		if draw <= cumulative {
			return i
		}
	}
	return fallbackRoad(roads)
}

func fallbackRoad(roads []*Road) int {
	for i, r := range roads {
		if !r.Config().Tolled {
			return i
		}
	}
	return 0
}
