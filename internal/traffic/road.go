package traffic

import "tollsim/internal/config"

// Road tracks live occupancy for one corridor. The engine owns all mutation;
// occupancy never goes below zero.
type Road struct {
	cfg       config.RoadConfig
	occupancy int
}

// NewRoad creates an empty road from its static configuration.
func NewRoad(cfg config.RoadConfig) *Road {
	return &Road{cfg: cfg}
}

// TravelTime returns the current travel time in minutes using the BPR
// volume-delay function. The occupancy/capacity ratio here is deliberately
// unclamped: past capacity the penalty grows without bound, which is how
// gridlock escalates. The result never drops below the free-flow time.
func (r *Road) TravelTime(weatherFactor float64) float64 {
	ratio := float64(r.occupancy) / float64(r.cfg.Capacity)
	tt := r.cfg.BaseTravelTime * (1 + 0.15*ratio*ratio*ratio*ratio) * weatherFactor
	if tt < r.cfg.BaseTravelTime {
		return r.cfg.BaseTravelTime
	}
	return tt
}

// AddVehicle places one vehicle on the road.
func (r *Road) AddVehicle() {
	r.occupancy++
}

// RemoveVehicle takes one vehicle off the road. Removing past zero is a
// silent no-op, not an error.
func (r *Road) RemoveVehicle() {
	if r.occupancy > 0 {
		r.occupancy--
	}
}

// CongestionLevel reports occupancy/capacity saturated at 1.0. Unlike the
// ratio inside TravelTime, the reported metric never exceeds 1.
func (r *Road) CongestionLevel() float64 {
	ratio := float64(r.occupancy) / float64(r.cfg.Capacity)
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Occupancy returns the current vehicle count.
func (r *Road) Occupancy() int {
	return r.occupancy
}

// Config returns the road's static configuration.
func (r *Road) Config() config.RoadConfig {
	return r.cfg
}
