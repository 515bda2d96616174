package traffic

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"tollsim/internal/config"
)

// DemandGenerator produces stochastic hourly vehicle demand from a fixed
// 24-entry base profile.
type DemandGenerator struct {
	profile []int
	src     rand.Source
}

// NewDemandGenerator creates a generator over a validated 24-entry profile.
func NewDemandGenerator(profile []int, src rand.Source) *DemandGenerator {
	return &DemandGenerator{profile: profile, src: src}
}

// Generate returns the stochastic hourly demand for a scenario: the base
// profile entry scaled by the scenario multiplier, plus Poisson noise with
// mean equal to 10% of the scaled figure. Never negative.
func (g *DemandGenerator) Generate(scn config.Scenario, hour int) int {
	base := g.profile[hour%24]
	scaled := int(float64(base) * scn.DemandMultiplier)
	demand := scaled + Poisson(float64(scaled)*0.1, g.src)
	if demand < 0 {
		return 0
	}
	return demand
}

// Poisson draws a Poisson-distributed count with the given mean. A mean of
// zero or less yields zero.
func Poisson(mean float64, src rand.Source) int {
	if mean <= 0 {
		return 0
	}
	p := distuv.Poisson{Lambda: mean, Src: src}
	return int(p.Rand())
}
