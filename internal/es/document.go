package es

import (
	"encoding/json"
	"fmt"
)

// HealthStatus is the cluster-wide state reported by _cluster/health.
type HealthStatus string

const (
	HealthGreen  HealthStatus = "green"
	HealthYellow HealthStatus = "yellow"
	HealthRed    HealthStatus = "red"
)

// Critical reports whether the cluster is red. Unknown values are treated as
// critical.
func (s HealthStatus) Critical() bool {
	switch s {
	case HealthGreen, HealthYellow:
		return false
	default:
		return true
	}
}

func (s HealthStatus) String() string {
	return string(s)
}

type ClusterHealth struct {
	ClusterName         string       `json:"cluster_name"`
	Status              HealthStatus `json:"status"`
	TimedOut            bool         `json:"timed_out"`
	NumberOfNodes       int          `json:"number_of_nodes"`
	NumberOfDataNodes   int          `json:"number_of_data_nodes"`
	ActivePrimaryShards int          `json:"active_primary_shards"`
	ActiveShards        int          `json:"active_shards"`
	UnassignedShards    int          `json:"unassigned_shards"`
}

// Document is a stored JSON object. Source holds the body exactly as the
// cluster returned it.
type Document struct {
	Index   string          `json:"_index"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version,omitempty"`
	Score   *float64        `json:"_score,omitempty"`
	Found   bool            `json:"found,omitempty"`
	Source  json.RawMessage `json:"_source,omitempty"`
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v any) error {
	if len(d.Source) == 0 {
		return fmt.Errorf("document %s/%s has no source", d.Index, d.ID)
	}
	if err := json.Unmarshal(d.Source, v); err != nil {
		return fmt.Errorf("decoding document %s/%s: %w", d.Index, d.ID, err)
	}
	return nil
}

type SearchResult struct {
	Total    int64
	TimedOut bool
	Took     int
	Hits     []Document
}
