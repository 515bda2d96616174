package sim

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"tollsim/internal/traffic"
)

// GreptimeDBWriter writes flattened snapshot rows to GreptimeDB via the
// ingester client. The server creates the table on first write.
type GreptimeDBWriter struct {
	client *greptime.Client
	table  string
}

// NewGreptimeDBWriter creates a new GreptimeDB writer for an endpoint of the
// form host:port (the port may be omitted, defaulting to 4001).
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := splitEndpoint(endpoint)
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port != 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client: client,
		table:  traffic.SnapshotTableName,
	}, nil
}

func splitEndpoint(endpoint string) (string, int) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}

// Write inserts the rows of a single snapshot.
func (w *GreptimeDBWriter) Write(snap traffic.Snapshot) error {
	return w.WriteBatch([]traffic.Snapshot{snap})
}

// WriteBatch inserts the rows of multiple snapshots.
func (w *GreptimeDBWriter) WriteBatch(snaps []traffic.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tbl, total, err := snapshotTable(w.table, snaps)
	if err != nil {
		return err
	}

	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		slog.Error("greptime write failed", "err", err)
		return err
	}

	slog.Debug("greptime write", "rows", total)
	return nil
}

// snapshotTable builds the wire table for a batch: scenario and road as
// tags, the metrics as fields, ts as the time index. Returns the row count.
func snapshotTable(name string, snaps []traffic.Snapshot) (*table.Table, int, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, 0, err
	}
	if err := tbl.AddTagColumn("scenario", types.STRING); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddTagColumn("road", types.STRING); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("vehicles", types.INT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("congestion", types.FLOAT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("travel_time", types.FLOAT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("toll_price", types.FLOAT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddFieldColumn("revenue", types.FLOAT64); err != nil {
		return nil, 0, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, 0, err
	}

	total := 0
	for _, snap := range snaps {
		for _, r := range snap.Rows() {
			err := tbl.AddRow(r.Scenario, r.Road, int64(r.Vehicles),
				r.Congestion, r.TravelTime, r.TollPrice, r.Revenue, r.Timestamp)
			if err != nil {
				return nil, 0, err
			}
			total++
		}
	}
	return tbl, total, nil
}
