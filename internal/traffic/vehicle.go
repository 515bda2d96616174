package traffic

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"
)

// Vehicle is one simulated trip. Origin and destination are informational;
// all vehicles travel the same corridor pair.
type Vehicle struct {
	ID               string
	Origin           string
	Destination      string
	DepartedAt       time.Time
	PriceSensitivity float64 // (0,1), higher = more price sensitive
	ValueOfTime      float64 // HKD per minute
}

// VehicleFactory samples vehicle attributes. Price sensitivity follows
// Beta(2,5), skewed toward low sensitivity; value of time follows
// Normal(2.5, 0.8), clamped at zero so a rare negative draw cannot invert
// route preference.
type VehicleFactory struct {
	origin      string
	destination string
	sensitivity distuv.Beta
	valueOfTime distuv.Normal
}

// NewVehicleFactory creates a factory drawing from src.
func NewVehicleFactory(origin, destination string, src rand.Source) *VehicleFactory {
	return &VehicleFactory{
		origin:      origin,
		destination: destination,
		sensitivity: distuv.Beta{Alpha: 2, Beta: 5, Src: src},
		valueOfTime: distuv.Normal{Mu: 2.5, Sigma: 0.8, Src: src},
	}
}

// New creates a vehicle departing at the given simulated time.
func (f *VehicleFactory) New(departedAt time.Time) Vehicle {
	vot := f.valueOfTime.Rand()
	if vot < 0 {
		vot = 0
	}
	return Vehicle{
		ID:               uuid.New().String(),
		Origin:           f.origin,
		Destination:      f.destination,
		DepartedAt:       departedAt,
		PriceSensitivity: f.sensitivity.Rand(),
		ValueOfTime:      vot,
	}
}
