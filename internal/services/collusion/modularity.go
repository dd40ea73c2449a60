package collusion

import (
	"context"
	"sort"

	"poolguard/internal/graph"
)

// detectClusters runs a greedy modularity-maximising community merge over the
// full bipartite snapshot: every node starts in its own community and the
// connected community pair with the highest modularity gain is merged until
// no merge gains. The merge gain for communities a and b with summed edge
// weight w_ab, community degree sums d_a and d_b and total edge weight m is
//
//	dQ = w_ab/m - (d_a*d_b)/(2*m*m)
//
// Node order is fixed (ids ascending, users before funds) and ties pick the
// lowest community pair, so the partition is deterministic for a given
// snapshot.
//
// Fund nodes bridge the communities but are excluded from cluster
// membership: each community's user nodes form the cluster, and clusters
// need at least two users to count. Returns partial=true when the context
// deadline cuts the merge loop short.
func detectClusters(ctx context.Context, snap *graph.Snapshot) ([]Cluster, bool) {
	n := len(snap.Users) + len(snap.Funds)
	if n == 0 || snap.TotalWeight == 0 {
		return nil, false
	}

	// Node index: users first, funds after, both ascending.
	userIdx := make(map[uint]int, len(snap.Users))
	for i, id := range snap.Users {
		userIdx[id] = i
	}
	fundIdx := make(map[uint]int, len(snap.Funds))
	for i, id := range snap.Funds {
		fundIdx[id] = len(snap.Users) + i
	}

	m := snap.TotalWeight
	degree := make([]float64, n)

	// Community state: each node alone, links between communities are the
	// summed bipartite edge weights.
	comm := make([]int, n)
	links := make([]map[int]float64, n)
	for i := range comm {
		comm[i] = i
		links[i] = make(map[int]float64)
	}
	for _, userID := range snap.Users {
		u := userIdx[userID]
		for fundID, w := range snap.UserFunds[userID] {
			f := fundIdx[fundID]
			degree[u] += w
			degree[f] += w
			links[u][f] += w
			links[f][u] += w
		}
	}
	commDegree := append([]float64(nil), degree...)
	alive := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		alive[i] = struct{}{}
	}

	partial := false
	for len(alive) > 1 {
		if ctx.Err() != nil {
			partial = true
			break
		}

		bestA, bestB := -1, -1
		bestGain := 0.0
		order := sortedAlive(alive)
		for _, a := range order {
			// Fixed key order so equal gains resolve to the lowest pair,
			// never to map iteration order.
			for _, b := range sortedLinkKeys(links[a]) {
				if b <= a {
					continue
				}
				gain := links[a][b]/m - (commDegree[a]*commDegree[b])/(2*m*m)
				if gain > bestGain {
					bestGain = gain
					bestA, bestB = a, b
				}
			}
		}
		if bestA < 0 {
			break
		}
		mergeCommunities(bestA, bestB, comm, links, commDegree, alive)
	}

	// Collapse to final assignments and strip fund bridges.
	memberSets := make(map[int]map[uint]struct{})
	internal := make(map[int]float64)
	for _, userID := range snap.Users {
		c := comm[userIdx[userID]]
		if memberSets[c] == nil {
			memberSets[c] = make(map[uint]struct{})
		}
		memberSets[c][userID] = struct{}{}
		for fundID, w := range snap.UserFunds[userID] {
			if comm[fundIdx[fundID]] == c {
				internal[c] += w
			}
		}
	}

	var clusters []Cluster
	for c, members := range memberSets {
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, Cluster{
			Members: sortedMembers(members),
			Density: internal[c] / m,
		})
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Members[0] < clusters[j].Members[0]
	})
	return clusters, partial
}

// mergeCommunities folds community b into a and rewires all links.
func mergeCommunities(a, b int, comm []int, links []map[int]float64, commDegree []float64, alive map[int]struct{}) {
	for i := range comm {
		if comm[i] == b {
			comm[i] = a
		}
	}
	for other, w := range links[b] {
		if other == a {
			continue
		}
		links[a][other] += w
		links[other][a] += w
		delete(links[other], b)
	}
	delete(links[a], b)
	links[b] = nil
	commDegree[a] += commDegree[b]
	delete(alive, b)
}

func sortedLinkKeys(links map[int]float64) []int {
	out := make([]int, 0, len(links))
	for b := range links {
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

func sortedAlive(alive map[int]struct{}) []int {
	out := make([]int, 0, len(alive))
	for c := range alive {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}
