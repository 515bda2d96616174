package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"tollsim/internal/config"
	"tollsim/internal/pricing"
	"tollsim/internal/traffic"
)

// MockWriter collects snapshots for validation.
type MockWriter struct {
	Snapshots []traffic.Snapshot
}

func (w *MockWriter) Write(snap traffic.Snapshot) error {
	w.Snapshots = append(w.Snapshots, snap)
	return nil
}

func testConfig() *config.SimulationConfig {
	return &config.SimulationConfig{
		Origin:      "tuen_mun",
		Destination: "tsuen_wan",
		Roads: []config.RoadConfig{
			{Key: "tunnel", Name: "Tunnel", Capacity: 3000, LengthKM: 3.8, BaseTravelTime: 4.0, Tolled: true},
			{Key: "west", Name: "West Road", Capacity: 4500, LengthKM: 15.2, BaseTravelTime: 18.0},
			{Key: "east", Name: "East Road", Capacity: 3500, LengthKM: 12.8, BaseTravelTime: 16.0},
		},
		Toll: config.TollConfig{BasePrice: 8.0, MinPrice: 5.0, MaxPrice: 25.0, MaxChangePercent: 0.20},
		Scenarios: map[string]config.Scenario{
			"normal":    {DemandMultiplier: 1.0, WeatherFactor: 1.0},
			"rush_hour": {DemandMultiplier: 2.5, WeatherFactor: 1.0},
			"rainstorm": {DemandMultiplier: 1.2, WeatherFactor: 1.8},
		},
		DefaultScenario: "normal",
		HourlyDemand: []int{
			50, 30, 20, 15, 25, 80,
			200, 350, 400, 250, 180, 200,
			220, 200, 180, 200, 280, 380,
			420, 300, 200, 150, 120, 80,
		},
		RevenueTargetHourly: 50000,
		AdjustmentSchedule:  "*/15 * * * *",
	}
}

func newTestEngine(t *testing.T, seed uint64) *Engine {
	t.Helper()
	e, err := NewEngine(testConfig(), nil, nil, time.Second, seed)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	return e
}

// setHour pins the simulated clock to a fixed weekday at the given hour.
func setHour(e *Engine, hour int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.simTime = time.Date(2025, time.March, 3, hour, 0, 0, 0, time.UTC)
	e.nextAdjust = e.schedule.Next(e.simTime)
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Roads[0].Capacity = 0
	if _, err := NewEngine(cfg, nil, nil, time.Second, 1); err == nil {
		t.Errorf("expected error for zero-capacity road")
	}
}

func TestUpdateTollPrice_RelativeClampBindsFirst(t *testing.T) {
	e := newTestEngine(t, 1)
	// base 8.0, max change 20%: proposing 100 applies 8.0 * 1.20 = 9.6
	if got := e.UpdateTollPrice(100); math.Abs(got-9.6) > 1e-9 {
		t.Errorf("applied price = %v, want 9.6", got)
	}
	if got := e.TollPrice(); math.Abs(got-9.6) > 1e-9 {
		t.Errorf("stored price = %v, want 9.6", got)
	}
}

func TestUpdateTollPrice_NeverOutsideBounds(t *testing.T) {
	e := newTestEngine(t, 1)
	rng := rand.New(rand.NewPCG(9, 9))
	cfg := testConfig()
	for i := 0; i < 1000; i++ {
		before := e.TollPrice()
		proposed := rng.Float64()*200 - 50
		after := e.UpdateTollPrice(proposed)
		if after < cfg.Toll.MinPrice || after > cfg.Toll.MaxPrice {
			t.Fatalf("price %v outside [%v,%v]", after, cfg.Toll.MinPrice, cfg.Toll.MaxPrice)
		}
		if math.Abs(after-before) > before*cfg.Toll.MaxChangePercent+1e-9 {
			t.Fatalf("price moved %v from %v, beyond %v%% limit", after-before, before, cfg.Toll.MaxChangePercent*100)
		}
	}
}

func TestUpdateTollPrice_FloorReached(t *testing.T) {
	e := newTestEngine(t, 1)
	for i := 0; i < 20; i++ {
		e.UpdateTollPrice(0)
	}
	if got := e.TollPrice(); got != 5.0 {
		t.Errorf("price after repeated decreases = %v, want floor 5.0", got)
	}
}

func TestReset_Idempotent(t *testing.T) {
	e := newTestEngine(t, 42)
	setHour(e, 8)
	for i := 0; i < 100; i++ {
		e.SimulateStep("rush_hour")
	}
	e.UpdateTollPrice(20)

	check := func(label string) {
		if got := e.TollPrice(); got != 8.0 {
			t.Errorf("%s: toll = %v, want base 8.0", label, got)
		}
		if got := e.Revenue(); got != 0 {
			t.Errorf("%s: revenue = %v, want 0", label, got)
		}
		if got := e.ActiveVehicles(); got != 0 {
			t.Errorf("%s: active vehicles = %d, want 0", label, got)
		}
		state := e.CurrentState()
		for key, c := range state.Congestion {
			if c != 0 {
				t.Errorf("%s: road %s congestion = %v, want 0", label, key, c)
			}
		}
	}
	e.Reset()
	check("first reset")
	e.Reset()
	check("second reset")
}

func TestSimulateStep_AccruesTunnelRevenue(t *testing.T) {
	e := newTestEngine(t, 42)
	setHour(e, 8)
	for i := 0; i < 30; i++ {
		e.SimulateStep("rush_hour")
	}
	snap, ok := e.LastSnapshot()
	if !ok {
		t.Fatalf("no snapshot recorded")
	}
	if snap.Roads[0].Vehicles == 0 {
		t.Fatalf("expected tunnel traffic during rush hour")
	}
	// toll never changed, so revenue must be a whole multiple of the base price
	entries := snap.Revenue / 8.0
	if math.Abs(entries-math.Round(entries)) > 1e-6 {
		t.Errorf("revenue %v is not a multiple of the toll price", snap.Revenue)
	}
	if snap.Revenue <= 0 {
		t.Errorf("revenue = %v, want > 0", snap.Revenue)
	}
}

func TestSimulateStep_RushHourOutpacesNormal(t *testing.T) {
	rush := newTestEngine(t, 42)
	normal := newTestEngine(t, 42)
	setHour(rush, 8)
	setHour(normal, 8)

	var rushLoad, normalLoad int
	for i := 0; i < 120; i++ {
		rs := rush.SimulateStep("rush_hour")
		ns := normal.SimulateStep("normal")
		for _, r := range rs.Roads {
			rushLoad += r.Vehicles
		}
		for _, r := range ns.Roads {
			normalLoad += r.Vehicles
		}
	}
	if rushLoad <= normalLoad {
		t.Errorf("rush hour load %d not above normal load %d", rushLoad, normalLoad)
	}
}

func TestSimulateStep_UnknownScenarioFallsBack(t *testing.T) {
	e := newTestEngine(t, 1)
	snap := e.SimulateStep("bogus")
	if snap.Scenario != "normal" {
		t.Errorf("scenario = %q, want fallback to %q", snap.Scenario, "normal")
	}
}

func TestSimulateStep_SnapshotWellFormed(t *testing.T) {
	e := newTestEngine(t, 7)
	setHour(e, 17)
	snap := e.SimulateStep("rainstorm")
	if len(snap.Roads) != 3 {
		t.Fatalf("snapshot has %d roads, want 3", len(snap.Roads))
	}
	wantKeys := []string{"tunnel", "west", "east"}
	for i, r := range snap.Roads {
		if r.Key != wantKeys[i] {
			t.Errorf("road %d key = %q, want %q (config order)", i, r.Key, wantKeys[i])
		}
		if r.Congestion < 0 || r.Congestion > 1 {
			t.Errorf("road %s congestion %v out of [0,1]", r.Key, r.Congestion)
		}
		if r.TravelTime < e.cfg.Roads[i].BaseTravelTime {
			t.Errorf("road %s travel time %v below free-flow %v", r.Key, r.TravelTime, e.cfg.Roads[i].BaseTravelTime)
		}
	}
	if snap.TollPrice != 8.0 {
		t.Errorf("snapshot toll = %v, want 8.0", snap.TollPrice)
	}
}

func TestSimulateStep_CompletionUsesCurrentTravelTime(t *testing.T) {
	e := newTestEngine(t, 1)
	setHour(e, 3)

	// plant a vehicle that departed 10 minutes ago on the 4-minute tunnel
	e.mu.Lock()
	e.roads[0].AddVehicle()
	e.vehicles = append(e.vehicles, activeVehicle{
		vehicle: traffic.Vehicle{ID: "stale", DepartedAt: e.simTime.Add(-10 * time.Minute)},
		road:    0,
	})
	e.mu.Unlock()

	before := e.roads[0].Occupancy()
	e.SimulateStep("normal")

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, av := range e.vehicles {
		if av.vehicle.ID == "stale" {
			t.Errorf("stale vehicle still active after sweep")
		}
	}
	tunnelActive := 0
	for _, av := range e.vehicles {
		if av.road == 0 {
			tunnelActive++
		}
	}
	if got := e.roads[0].Occupancy(); got != tunnelActive {
		t.Errorf("tunnel occupancy %d does not match %d active vehicles (started at %d)", got, tunnelActive, before)
	}
}

func TestMaybeAdjustToll_AppliesControllerOutput(t *testing.T) {
	cfg := testConfig()
	controller := pricing.NewController(nil, pricing.NewRuleBased(cfg.Toll, cfg.RevenueTargetHourly))
	e, err := NewEngine(cfg, nil, controller, time.Second, 1)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}
	setHour(e, 12)

	e.mu.Lock()
	e.nextAdjust = e.simTime.Add(-time.Minute)
	e.mu.Unlock()

	before := e.TollPrice()
	e.maybeAdjustToll(context.Background())
	after := e.TollPrice()

	// empty roads at midday: rule-based proposes base*0.9*1.2, within the
	// 20% window, so the engine applies it directly
	want := 8.0 * 0.9 * 1.2
	if math.Abs(after-want) > 1e-9 {
		t.Errorf("toll after adjustment = %v, want %v", after, want)
	}
	if after == before {
		t.Errorf("adjustment did not change the toll")
	}

	// second due adjustment must also train without panicking
	e.mu.Lock()
	e.nextAdjust = e.simTime.Add(-time.Minute)
	e.mu.Unlock()
	e.maybeAdjustToll(context.Background())
}

func TestRun_EmitsSnapshots(t *testing.T) {
	cfg := testConfig()
	writer := &MockWriter{}
	e, err := NewEngine(cfg, writer, nil, 5*time.Millisecond, 1)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	time.Sleep(60 * time.Millisecond)
	cancel()
	<-done

	if len(writer.Snapshots) == 0 {
		t.Fatalf("no snapshots written by the run loop")
	}
	for _, s := range writer.Snapshots {
		if len(s.Roads) != 3 {
			t.Errorf("snapshot has %d roads, want 3", len(s.Roads))
		}
	}
}
