package traffic

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"tollsim/internal/config"
)

func testCorridors() []*Road {
	return []*Road{
		NewRoad(config.RoadConfig{Key: "tunnel", Name: "Tunnel", Capacity: 3000, BaseTravelTime: 4.0, Tolled: true}),
		NewRoad(config.RoadConfig{Key: "west", Name: "West Road", Capacity: 4500, BaseTravelTime: 18.0}),
		NewRoad(config.RoadConfig{Key: "east", Name: "East Road", Capacity: 3500, BaseTravelTime: 16.0}),
	}
}

func testVehicle(sensitivity, valueOfTime float64) Vehicle {
	return Vehicle{
		ID:               "v1",
		DepartedAt:       time.Now(),
		PriceSensitivity: sensitivity,
		ValueOfTime:      valueOfTime,
	}
}

func TestProbabilities_SumToOne(t *testing.T) {
	roads := testCorridors()
	cases := []struct {
		name string
		v    Vehicle
		toll float64
	}{
		{"typical", testVehicle(0.3, 2.5), 30},
		{"price insensitive", testVehicle(0.01, 2.5), 30},
		{"highly sensitive", testVehicle(0.99, 2.5), 55},
		{"zero value of time", testVehicle(0.3, 0), 30},
		{"extreme value of time", testVehicle(0.9, 1000), 30},
	}
	for _, tc := range cases {
		probs := Probabilities(roads, tc.toll, 1.0, tc.v)
		if len(probs) != 3 {
			t.Fatalf("%s: got %d probabilities, want 3", tc.name, len(probs))
		}
		var sum float64
		for _, p := range probs {
			if p < 0 || p > 1 {
				t.Errorf("%s: probability %v out of [0,1]", tc.name, p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("%s: probabilities sum to %v, want 1.0", tc.name, sum)
		}
	}
}

func TestProbabilities_HigherTollLowersTunnelShare(t *testing.T) {
	roads := testCorridors()
	v := testVehicle(0.4, 2.5)
	low := Probabilities(roads, 5, 1.0, v)[0]
	high := Probabilities(roads, 50, 1.0, v)[0]
	if high >= low {
		t.Errorf("tunnel probability did not fall with toll: %v (toll 5) vs %v (toll 50)", low, high)
	}
}

func TestChoose_ValidIndex(t *testing.T) {
	roads := testCorridors()
	c := NewChooser(rand.NewPCG(11, 11))
	v := testVehicle(0.3, 2.5)
	for i := 0; i < 500; i++ {
		idx := c.Choose(roads, 30, 1.0, v)
		if idx < 0 || idx >= len(roads) {
			t.Fatalf("choice index %d out of range", idx)
		}
	}
}

func TestChoose_Deterministic(t *testing.T) {
	roads := testCorridors()
	v := testVehicle(0.3, 2.5)
	a := NewChooser(rand.NewPCG(3, 3))
	b := NewChooser(rand.NewPCG(3, 3))
	for i := 0; i < 100; i++ {
		if ia, ib := a.Choose(roads, 30, 1.0, v), b.Choose(roads, 30, 1.0, v); ia != ib {
			t.Fatalf("draw %d: %d != %d with identical seeds", i, ia, ib)
		}
	}
}

func TestFallbackRoad_FirstFreeCorridor(t *testing.T) {
	roads := testCorridors()
	if idx := fallbackRoad(roads); idx != 1 {
		t.Errorf("fallback road = %d, want 1 (first free corridor)", idx)
	}
}
