// Engine orchestrating demand, routing, congestion, and toll state
package sim

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tollsim/internal/config"
	"tollsim/internal/pricing"
	"tollsim/internal/scenario"
	"tollsim/internal/traffic"
)

// SnapshotWriter is an interface to support different output writers.
type SnapshotWriter interface {
	Write(traffic.Snapshot) error
}

// Optional: writers can also support batch mode.
type batchSnapshotWriter interface {
	WriteBatch([]traffic.Snapshot) error
}

// activeVehicle pairs a vehicle with its chosen road index.
type activeVehicle struct {
	vehicle traffic.Vehicle
	road    int
}

// Engine advances the simulation one minute at a time. All state is owned
// here; ticks are strictly sequential and each completes atomically under
// the mutex before the next begins.
type Engine struct {
	mu  sync.Mutex
	cfg *config.SimulationConfig

	roads    []*traffic.Road
	tunnel   int // index of the tolled corridor
	vehicles []activeVehicle

	factory *traffic.VehicleFactory
	chooser *traffic.Chooser
	demand  *traffic.DemandGenerator
	src     rand.Source

	tollPrice float64
	revenue   float64
	simTime   time.Time
	ticks     int

	activeScenario string
	script         *scenario.Script

	schedule   cron.Schedule
	nextAdjust time.Time
	controller *pricing.Controller
	prevState  *traffic.State

	writer       SnapshotWriter
	tickInterval time.Duration

	lastSnapshot traffic.Snapshot
	hasSnapshot  bool

	now func() time.Time
}

// NewEngine builds an engine from validated configuration. Configuration
// errors are fatal here; nothing downstream guards against them per tick.
func NewEngine(cfg *config.SimulationConfig, writer SnapshotWriter, controller *pricing.Controller, tickInterval time.Duration, seed uint64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(seed, seed)
	e := &Engine{
		cfg:            cfg,
		tunnel:         cfg.TolledRoad(),
		factory:        traffic.NewVehicleFactory(cfg.Origin, cfg.Destination, src),
		chooser:        traffic.NewChooser(src),
		demand:         traffic.NewDemandGenerator(cfg.HourlyDemand, src),
		src:            src,
		activeScenario: cfg.DefaultScenario,
		schedule:       schedule,
		controller:     controller,
		writer:         writer,
		tickInterval:   tickInterval,
		now:            time.Now,
	}
	e.resetLocked()
	return e, nil
}

// SimulateStep advances the simulation by one minute: generate demand, route
// each new vehicle, sweep completions, emit a snapshot, advance the clock.
// An unknown scenario name falls back to the configured default.
func (e *Engine) SimulateStep(scenarioName string) traffic.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	scn, ok := e.cfg.Scenarios[scenarioName]
	if !ok {
		scenarioName = e.cfg.DefaultScenario
		scn = e.cfg.Scenarios[scenarioName]
	}

	hour := e.simTime.Hour()
	hourly := e.demand.Generate(scn, hour)
	arrivals := traffic.Poisson(float64(hourly)/60, e.src)

	for i := 0; i < arrivals; i++ {
		v := e.factory.New(e.simTime)
		idx := e.chooser.Choose(e.roads, e.tollPrice, scn.WeatherFactor, v)
		e.roads[idx].AddVehicle()
		if idx == e.tunnel {
			e.revenue += e.tollPrice
		}
		e.vehicles = append(e.vehicles, activeVehicle{vehicle: v, road: idx})
	}

	// Completion sweep. Travel time is recomputed against current
	// congestion, not locked in at departure: worsening congestion after a
	// vehicle enters delays its exit, which compounds congestion further.
	remaining := e.vehicles[:0]
	for _, av := range e.vehicles {
		tt := e.roads[av.road].TravelTime(scn.WeatherFactor)
		elapsed := e.simTime.Sub(av.vehicle.DepartedAt)
		if elapsed >= time.Duration(tt*float64(time.Minute)) {
			e.roads[av.road].RemoveVehicle()
			continue
		}
		remaining = append(remaining, av)
	}
	e.vehicles = remaining

	snap := e.snapshotLocked(scenarioName, scn.WeatherFactor)
	e.lastSnapshot = snap
	e.hasSnapshot = true

	e.simTime = e.simTime.Add(time.Minute)
	e.ticks++
	return snap
}

func (e *Engine) snapshotLocked(scenarioName string, weatherFactor float64) traffic.Snapshot {
	roads := make([]traffic.RoadStatus, len(e.roads))
	for i, r := range e.roads {
		roads[i] = traffic.RoadStatus{
			Key:        r.Config().Key,
			Name:       r.Config().Name,
			Vehicles:   r.Occupancy(),
			Congestion: r.CongestionLevel(),
			TravelTime: r.TravelTime(weatherFactor),
		}
	}
	return traffic.Snapshot{
		Timestamp: e.simTime,
		Scenario:  scenarioName,
		TollPrice: e.tollPrice,
		Revenue:   e.revenue,
		Roads:     roads,
	}
}

// CurrentState returns the aggregate consumed by the pricing controller.
func (e *Engine) CurrentState() traffic.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	congestion := make(map[string]float64, len(e.roads))
	for _, r := range e.roads {
		congestion[r.Config().Key] = r.CongestionLevel()
	}
	return traffic.State{
		Congestion:       congestion,
		TunnelCongestion: e.roads[e.tunnel].CongestionLevel(),
		TollPrice:        e.tollPrice,
		Revenue:          e.revenue,
		Hour:             e.simTime.Hour(),
		Weekday:          e.simTime.Weekday(),
		ActiveVehicles:   len(e.vehicles),
	}
}

// UpdateTollPrice applies a proposed price through the rate limiter: the
// change is first clamped to ± current price × max_change_percent, then to
// the absolute [min,max] bounds. The relative clamp binds first; the order
// matters whenever the relative window crosses an absolute bound. Returns
// the applied price.
func (e *Engine) UpdateTollPrice(proposed float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	maxChange := e.tollPrice * e.cfg.Toll.MaxChangePercent
	price := proposed
	if price > e.tollPrice+maxChange {
		price = e.tollPrice + maxChange
	} else if price < e.tollPrice-maxChange {
		price = e.tollPrice - maxChange
	}

	if price < e.cfg.Toll.MinPrice {
		price = e.cfg.Toll.MinPrice
	} else if price > e.cfg.Toll.MaxPrice {
		price = e.cfg.Toll.MaxPrice
	}
	e.tollPrice = price
	return price
}

// Reset wipes all simulation state: empty roads, no active vehicles, base
// toll, zero revenue, clock at wall-clock now. It is idempotent.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.roads = make([]*traffic.Road, len(e.cfg.Roads))
	for i, rc := range e.cfg.Roads {
		e.roads[i] = traffic.NewRoad(rc)
	}
	e.vehicles = nil
	e.tollPrice = e.cfg.Toll.BasePrice
	e.revenue = 0
	e.simTime = e.now()
	e.ticks = 0
	e.nextAdjust = e.schedule.Next(e.simTime)
	e.hasSnapshot = false
	e.prevState = nil
}

// SetScenario switches the scenario used by the background loop.
func (e *Engine) SetScenario(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cfg.Scenarios[name]; !ok {
		return fmt.Errorf("unknown scenario %q", name)
	}
	e.activeScenario = name
	return nil
}

// Scenario returns the scenario used by the background loop.
func (e *Engine) Scenario() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeScenario
}

// SetScript installs a scenario script consulted each tick by Run.
func (e *Engine) SetScript(s *scenario.Script) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.script = s
}

// LastSnapshot returns the most recent snapshot, if any tick has run.
func (e *Engine) LastSnapshot() (traffic.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSnapshot, e.hasSnapshot
}

// TollPrice returns the current toll.
func (e *Engine) TollPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tollPrice
}

// Revenue returns the cumulative toll revenue for the run.
func (e *Engine) Revenue() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revenue
}

// ActiveVehicles returns the size of the active vehicle set.
func (e *Engine) ActiveVehicles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.vehicles)
}

// Config returns the simulation configuration.
func (e *Engine) Config() *config.SimulationConfig {
	return e.cfg
}
