// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// RoadConfig describes one corridor between the shared origin/destination pair.
type RoadConfig struct {
	Key            string       `yaml:"key"`
	Name           string       `yaml:"name"`
	Capacity       int          `yaml:"capacity"` // vehicles per hour
	LengthKM       float64      `yaml:"length_km"`
	BaseTravelTime float64      `yaml:"base_travel_time"` // minutes at free flow
	Tolled         bool         `yaml:"tolled"`
	Path           [][2]float64 `yaml:"path,omitempty"` // lat/lon points, display only
}

// TollConfig bounds the toll price and its per-adjustment movement.
type TollConfig struct {
	BasePrice        float64 `yaml:"base_price"`
	MinPrice         float64 `yaml:"min_price"`
	MaxPrice         float64 `yaml:"max_price"`
	MaxChangePercent float64 `yaml:"max_change_percent"`
}

// Scenario scales demand and travel time for one named traffic condition.
type Scenario struct {
	DemandMultiplier float64 `yaml:"demand_multiplier"`
	WeatherFactor    float64 `yaml:"weather_factor"`
}

// SimulationConfig is the root configuration for the toll simulator.
type SimulationConfig struct {
	Origin              string              `yaml:"origin"`
	Destination         string              `yaml:"destination"`
	Roads               []RoadConfig        `yaml:"roads"`
	Toll                TollConfig          `yaml:"toll"`
	Scenarios           map[string]Scenario `yaml:"scenarios"`
	DefaultScenario     string              `yaml:"default_scenario"`
	HourlyDemand        []int               `yaml:"hourly_demand"` // 24 entries
	RevenueTargetHourly float64             `yaml:"revenue_target_hourly"`
	AdjustmentSchedule  string              `yaml:"adjustment_schedule"` // cron over simulated time
}

// scheduleParser accepts standard five-field cron expressions.
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Load loads YAML config, validates it against a CUE schema, and applies
// the semantic checks that must fail fast before a simulation starts.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants the schema cannot express. Errors here are
// construction-time failures; the engine never guards against them per tick.
func (c *SimulationConfig) Validate() error {
	if len(c.Roads) < 2 {
		return fmt.Errorf("config: need at least two roads, got %d", len(c.Roads))
	}
	tolled := 0
	seen := map[string]bool{}
	for _, r := range c.Roads {
		if r.Key == "" {
			return fmt.Errorf("config: road %q missing key", r.Name)
		}
		if seen[r.Key] {
			return fmt.Errorf("config: duplicate road key %q", r.Key)
		}
		seen[r.Key] = true
		if r.Capacity <= 0 {
			return fmt.Errorf("config: road %q capacity must be positive, got %d", r.Key, r.Capacity)
		}
		if r.BaseTravelTime <= 0 {
			return fmt.Errorf("config: road %q base_travel_time must be positive", r.Key)
		}
		if r.Tolled {
			tolled++
		}
	}
	if tolled != 1 {
		return fmt.Errorf("config: expected exactly one tolled road, got %d", tolled)
	}
	t := c.Toll
	if t.MinPrice <= 0 || t.MinPrice > t.BasePrice || t.BasePrice > t.MaxPrice {
		return fmt.Errorf("config: toll prices must satisfy 0 < min <= base <= max, got min=%.2f base=%.2f max=%.2f",
			t.MinPrice, t.BasePrice, t.MaxPrice)
	}
	if t.MaxChangePercent <= 0 || t.MaxChangePercent > 1 {
		return fmt.Errorf("config: toll max_change_percent must be in (0,1], got %.2f", t.MaxChangePercent)
	}
	if len(c.HourlyDemand) != 24 {
		return fmt.Errorf("config: hourly_demand must have 24 entries, got %d", len(c.HourlyDemand))
	}
	for h, d := range c.HourlyDemand {
		if d < 0 {
			return fmt.Errorf("config: hourly_demand[%d] is negative", h)
		}
	}
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("config: at least one scenario required")
	}
	for name, s := range c.Scenarios {
		if s.DemandMultiplier < 0 {
			return fmt.Errorf("config: scenario %q demand_multiplier is negative", name)
		}
		if s.WeatherFactor <= 0 {
			return fmt.Errorf("config: scenario %q weather_factor must be positive", name)
		}
	}
	if _, ok := c.Scenarios[c.DefaultScenario]; !ok {
		return fmt.Errorf("config: default_scenario %q not in scenario table", c.DefaultScenario)
	}
	if c.RevenueTargetHourly <= 0 {
		return fmt.Errorf("config: revenue_target_hourly must be positive")
	}
	if _, err := c.Schedule(); err != nil {
		return fmt.Errorf("config: adjustment_schedule: %w", err)
	}
	return nil
}

// Schedule parses the toll adjustment cron expression.
func (c *SimulationConfig) Schedule() (cron.Schedule, error) {
	return scheduleParser.Parse(c.AdjustmentSchedule)
}

// TolledRoad returns the index of the tolled corridor. Valid configs have
// exactly one.
func (c *SimulationConfig) TolledRoad() int {
	for i, r := range c.Roads {
		if r.Tolled {
			return i
		}
	}
	return -1
}
