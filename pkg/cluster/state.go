package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anthanhphan/go-distributed-search/pkg/router"
)

// ReplicaState is the control plane's view of a single replica.
type ReplicaState string

const (
	ReplicaActive         ReplicaState = "active"
	ReplicaDown           ReplicaState = "down"
	ReplicaRecovering     ReplicaState = "recovering"
	ReplicaRecoveryFailed ReplicaState = "recovery_failed"
)

// ShardState is the control plane's view of a shard as a whole.
type ShardState string

const (
	ShardActive       ShardState = "active"
	ShardInactive     ShardState = "inactive"
	ShardConstruction ShardState = "construction"
)

// Replica is one copy of a shard hosted on a node.
type Replica struct {
	Name     string       `json:"name"`
	Core     string       `json:"core"`
	NodeName string       `json:"node_name"`
	State    ReplicaState `json:"state"`
	Leader   bool         `json:"leader,omitempty"`
}

// Active reports whether the replica is usable: its hosting node must be
// in the live set and its state must be active.
func (r Replica) Active(liveNodes map[string]struct{}) bool {
	if _, live := liveNodes[r.NodeName]; !live {
		return false
	}
	return r.State == ReplicaActive
}

// Shard is one partition of a collection's data.
type Shard struct {
	Name     string             `json:"name"`
	Range    router.HashRange   `json:"range"`
	State    ShardState         `json:"state"`
	Replicas map[string]Replica `json:"replicas"`
}

// ActiveReplicaCount counts replicas considered active against the live set.
func (s Shard) ActiveReplicaCount(liveNodes map[string]struct{}) int {
	active := 0
	for _, r := range s.Replicas {
		if r.Active(liveNodes) {
			active++
		}
	}
	return active
}

// Leader returns the shard's leader replica, if one is assigned.
func (s Shard) Leader() (Replica, bool) {
	for _, r := range s.Replicas {
		if r.Leader {
			return r, true
		}
	}
	return Replica{}, false
}

// Collection is a named logical dataset partitioned into shards.
type Collection struct {
	Name              string           `json:"name"`
	ReplicationFactor int              `json:"replication_factor"`
	Router            string           `json:"router"`
	Shards            map[string]Shard `json:"shards"`
}

// Shard returns the named shard descriptor.
func (c *Collection) Shard(name string) (Shard, bool) {
	s, ok := c.Shards[name]
	return s, ok
}

// ShardNames returns shard names in sorted order.
func (c *Collection) ShardNames() []string {
	names := make([]string, 0, len(c.Shards))
	for name := range c.Shards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Collection) String() string {
	if c == nil {
		return "<none>"
	}
	parts := make([]string, 0, len(c.Shards))
	for _, name := range c.ShardNames() {
		s := c.Shards[name]
		parts = append(parts, fmt.Sprintf("%s(%d replicas)", name, len(s.Replicas)))
	}
	return fmt.Sprintf("%s{%s}", c.Name, strings.Join(parts, ", "))
}

// State is an immutable snapshot of the cluster as the control plane sees
// it. Mutation happens only in the state manager, which swaps in a fresh
// snapshot; holders of a *State never observe changes.
type State struct {
	Version     int64                  `json:"version"`
	Collections map[string]*Collection `json:"collections"`
	LiveNodes   map[string]struct{}    `json:"-"`
}

// CollectionOrNil returns the named collection, or nil if the snapshot
// does not contain it (e.g. creation still in flight).
func (s *State) CollectionOrNil(name string) *Collection {
	return s.Collections[name]
}

// IsLive reports whether the node is in the live set.
func (s *State) IsLive(node string) bool {
	_, ok := s.LiveNodes[node]
	return ok
}

// LiveNodeNames returns the live set as a sorted slice.
func (s *State) LiveNodeNames() []string {
	names := make([]string, 0, len(s.LiveNodes))
	for n := range s.LiveNodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies the snapshot so the caller can mutate it freely.
func (s *State) Clone() *State {
	c := &State{
		Version:     s.Version,
		Collections: make(map[string]*Collection, len(s.Collections)),
		LiveNodes:   make(map[string]struct{}, len(s.LiveNodes)),
	}
	for name, coll := range s.Collections {
		c.Collections[name] = coll.clone()
	}
	for n := range s.LiveNodes {
		c.LiveNodes[n] = struct{}{}
	}
	return c
}

func (c *Collection) clone() *Collection {
	out := &Collection{
		Name:              c.Name,
		ReplicationFactor: c.ReplicationFactor,
		Router:            c.Router,
		Shards:            make(map[string]Shard, len(c.Shards)),
	}
	for name, s := range c.Shards {
		replicas := make(map[string]Replica, len(s.Replicas))
		for rn, r := range s.Replicas {
			replicas[rn] = r
		}
		s.Replicas = replicas
		out.Shards[name] = s
	}
	return out
}

// NewState returns an empty snapshot at version zero.
func NewState() *State {
	return &State{
		Collections: make(map[string]*Collection),
		LiveNodes:   make(map[string]struct{}),
	}
}
