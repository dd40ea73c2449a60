package collusion

// Cluster is a group of users suspiciously interlinked via shared fund
// participation. Members are user IDs, sorted ascending. Fund nodes act as
// bridges between members and are never part of a cluster.
type Cluster struct {
	Members []uint  `json:"members"`
	Density float64 `json:"density"`
}

// Result is the output of one detection pass over a graph snapshot.
// Partial marks a pass cut short by its deadline; downstream consumers must
// treat a partial result as "graph signal unavailable", not as score 0.
type Result struct {
	HighlyConnected []uint    `json:"highly_connected"`
	Clusters        []Cluster `json:"clusters"`
	Partial         bool      `json:"partial"`
}

// InCluster reports whether the user belongs to any detected cluster.
func (r *Result) InCluster(userID uint) bool {
	for _, c := range r.Clusters {
		for _, m := range c.Members {
			if m == userID {
				return true
			}
		}
	}
	return false
}

// IsHighlyConnected reports whether the user exceeded the fund-neighbor
// threshold.
func (r *Result) IsHighlyConnected(userID uint) bool {
	for _, id := range r.HighlyConnected {
		if id == userID {
			return true
		}
	}
	return false
}
