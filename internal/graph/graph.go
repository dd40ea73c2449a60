// Package graph holds the in-memory collusion graph: a bipartite arena of
// user and fund nodes connected by contribution edges. Writers append under a
// lock; detection always runs over an immutable Snapshot, never a live view.
package graph

import (
	"sort"
	"sync"
	"time"

	"poolguard/internal/apperr"
)

// Edge is one contribution from a user to a fund.
type Edge struct {
	UserID uint
	FundID uint
	Amount float64
	At     time.Time
}

// Store is the mutable arena. Edge insertion is append-only and validates
// the bipartite invariant: every edge connects a user node to a fund node.
type Store struct {
	mu        sync.RWMutex
	users     map[uint]struct{}
	funds     map[uint]struct{}
	userFunds map[uint]map[uint]float64 // user -> fund -> summed amount
	fundUsers map[uint]map[uint]float64 // fund -> user -> summed amount
	edgeCount int
}

// NewStore creates an empty graph store.
func NewStore() *Store {
	return &Store{
		users:     make(map[uint]struct{}),
		funds:     make(map[uint]struct{}),
		userFunds: make(map[uint]map[uint]float64),
		fundUsers: make(map[uint]map[uint]float64),
	}
}

// AddUser registers a user node. Adding an existing node is a no-op.
func (s *Store) AddUser(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{}{}
}

// AddFund registers a fund node. Adding an existing node is a no-op.
func (s *Store) AddFund(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds[id] = struct{}{}
}

// AddContribution appends a contribution edge. Dangling references are
// rejected here, at ingestion, so detection never sees malformed edges.
func (s *Store) AddContribution(e Edge) error {
	if e.Amount <= 0 {
		return apperr.Validation("contribution amount must be positive, got %v", e.Amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[e.UserID]; !ok {
		return apperr.NotFound("user node %d not in graph", e.UserID)
	}
	if _, ok := s.funds[e.FundID]; !ok {
		return apperr.NotFound("fund node %d not in graph", e.FundID)
	}

	if s.userFunds[e.UserID] == nil {
		s.userFunds[e.UserID] = make(map[uint]float64)
	}
	if s.fundUsers[e.FundID] == nil {
		s.fundUsers[e.FundID] = make(map[uint]float64)
	}
	s.userFunds[e.UserID][e.FundID] += e.Amount
	s.fundUsers[e.FundID][e.UserID] += e.Amount
	s.edgeCount++
	return nil
}

// Size returns the node and edge counts.
func (s *Store) Size() (users, funds, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.funds), s.edgeCount
}

// Snapshot returns a deep copy of the graph for one detection pass.
// Mutations after the call are invisible to the snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Users:     make([]uint, 0, len(s.users)),
		Funds:     make([]uint, 0, len(s.funds)),
		UserFunds: make(map[uint]map[uint]float64, len(s.userFunds)),
		FundUsers: make(map[uint]map[uint]float64, len(s.fundUsers)),
	}
	for id := range s.users {
		snap.Users = append(snap.Users, id)
	}
	for id := range s.funds {
		snap.Funds = append(snap.Funds, id)
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i] < snap.Users[j] })
	sort.Slice(snap.Funds, func(i, j int) bool { return snap.Funds[i] < snap.Funds[j] })

	for u, funds := range s.userFunds {
		cp := make(map[uint]float64, len(funds))
		for f, w := range funds {
			cp[f] = w
			snap.TotalWeight += w
		}
		snap.UserFunds[u] = cp
	}
	for f, users := range s.fundUsers {
		cp := make(map[uint]float64, len(users))
		for u, w := range users {
			cp[u] = w
		}
		snap.FundUsers[f] = cp
	}
	return snap
}

// Snapshot is an immutable, consistent view of the graph. Node slices are
// sorted ascending so iteration order is deterministic.
type Snapshot struct {
	Users       []uint
	Funds       []uint
	UserFunds   map[uint]map[uint]float64
	FundUsers   map[uint]map[uint]float64
	TotalWeight float64
}

// Empty reports whether the snapshot has no nodes.
func (s *Snapshot) Empty() bool {
	return len(s.Users) == 0 && len(s.Funds) == 0
}

// FundNeighborCount returns the number of distinct funds a user contributes
// to.
func (s *Snapshot) FundNeighborCount(userID uint) int {
	return len(s.UserFunds[userID])
}

// CoMembers returns the derived user-user co-membership weights for a user:
// the summed minimum shared contribution weight through each common fund.
// These edges are a view over the bipartite graph, never stored.
func (s *Snapshot) CoMembers(userID uint) map[uint]float64 {
	out := make(map[uint]float64)
	for fundID, w := range s.UserFunds[userID] {
		for otherID, ow := range s.FundUsers[fundID] {
			if otherID == userID {
				continue
			}
			shared := w
			if ow < shared {
				shared = ow
			}
			out[otherID] += shared
		}
	}
	return out
}
