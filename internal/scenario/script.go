// Scenario scripts sequencing traffic conditions over simulated time
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tollsim/internal/config"
)

// Phase holds one scenario for a number of simulated minutes.
type Phase struct {
	Scenario string `yaml:"scenario"`
	Minutes  int    `yaml:"minutes"`
}

// Script is an ordered sequence of phases. Once the last phase's window
// passes, the script stays on that phase.
type Script struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Load reads a YAML script definition from disk.
func Load(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return &s, nil
}

// Validate checks that every phase names a configured scenario and lasts at
// least one minute.
func (s *Script) Validate(scenarios map[string]config.Scenario) error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("script has no phases")
	}
	for i, p := range s.Phases {
		if _, ok := scenarios[p.Scenario]; !ok {
			return fmt.Errorf("phase %d: unknown scenario %q", i, p.Scenario)
		}
		if p.Minutes <= 0 {
			return fmt.Errorf("phase %d: minutes must be positive", i)
		}
	}
	return nil
}

// At returns the scenario active at the given simulated minute. ok is false
// only for an empty script.
func (s *Script) At(minute int) (string, bool) {
	if len(s.Phases) == 0 {
		return "", false
	}
	elapsed := 0
	for _, p := range s.Phases {
		elapsed += p.Minutes
		if minute < elapsed {
			return p.Scenario, true
		}
	}
	return s.Phases[len(s.Phases)-1].Scenario, true
}

// Total returns the scripted duration in minutes.
func (s *Script) Total() int {
	total := 0
	for _, p := range s.Phases {
		total += p.Minutes
	}
	return total
}
