// Snapshot structs with greptime tags
package traffic

import (
	"os"
	"time"
)

// RoadStatus is the per-corridor slice of a snapshot.
type RoadStatus struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Vehicles   int     `json:"vehicles"`
	Congestion float64 `json:"congestion"`
	TravelTime float64 `json:"travel_time"`
}

// Snapshot is the immutable per-tick record of simulation state. Roads are
// listed in configuration order. Consumers must not mutate it.
type Snapshot struct {
	Timestamp time.Time    `json:"ts"`
	Scenario  string       `json:"scenario"`
	TollPrice float64      `json:"toll_price"`
	Revenue   float64      `json:"revenue"`
	Roads     []RoadStatus `json:"roads"`
}

// SnapshotRow is the flattened per-road form of a snapshot for GreptimeDB.
type SnapshotRow struct {
	Scenario   string    `json:"scenario"`    // TAG
	Road       string    `json:"road"`        // TAG
	Vehicles   int       `json:"vehicles"`    // FIELD
	Congestion float64   `json:"congestion"`  // FIELD
	TravelTime float64   `json:"travel_time"` // FIELD
	TollPrice  float64   `json:"toll_price"`  // FIELD
	Revenue    float64   `json:"revenue"`     // FIELD
	Timestamp  time.Time `json:"ts"`          // TIME INDEX
}

// SnapshotTableName holds the table name used when writing to GreptimeDB.
// It defaults to "toll_snapshots" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var SnapshotTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "toll_snapshots"
}()

// Rows flattens a snapshot into one row per road.
func (s Snapshot) Rows() []SnapshotRow {
	rows := make([]SnapshotRow, 0, len(s.Roads))
	for _, r := range s.Roads {
		rows = append(rows, SnapshotRow{
			Scenario:   s.Scenario,
			Road:       r.Key,
			Vehicles:   r.Vehicles,
			Congestion: r.Congestion,
			TravelTime: r.TravelTime,
			TollPrice:  s.TollPrice,
			Revenue:    s.Revenue,
			Timestamp:  s.Timestamp,
		})
	}
	return rows
}

// State is the lower-frequency aggregate consumed by the pricing controller.
type State struct {
	Congestion       map[string]float64 `json:"congestion"`
	TunnelCongestion float64            `json:"tunnel_congestion"`
	TollPrice        float64            `json:"toll_price"`
	Revenue          float64            `json:"revenue"`
	Hour             int                `json:"hour"`
	Weekday          time.Weekday       `json:"weekday"`
	ActiveVehicles   int                `json:"active_vehicles"`
}
