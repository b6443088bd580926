package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anthanhphan/go-distributed-search/pkg/cluster"
	"github.com/anthanhphan/go-distributed-search/pkg/resilience"
	"github.com/anthanhphan/go-distributed-search/pkg/router"
	"github.com/anthanhphan/go-distributed-search/pkg/timesource"
	"github.com/anthanhphan/gosdk/logger"
)

var (
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrShardNotFound      = errors.New("shard not found")
	ErrNoLiveNodes        = errors.New("no live nodes available for placement")
	ErrInvalidShape       = errors.New("shard and replica counts must be positive")
)

const hashRouterName = "hash"

// StateManager owns the authoritative cluster state. Every mutation
// builds a fresh snapshot and swaps it in under the lock, so readers
// always hold an immutable view.
type StateManager struct {
	mu       sync.RWMutex
	state    *cluster.State
	ts       timesource.TimeSource
	pool     *resilience.WorkerPool
	watchers []func(*cluster.State)
}

// NewStateManager creates a manager with an empty state at version zero.
func NewStateManager(ts timesource.TimeSource) *StateManager {
	if ts == nil {
		ts = timesource.SystemTimeSource{}
	}
	return &StateManager{
		state: cluster.NewState(),
		ts:    ts,
		pool:  resilience.NewWorkerPool(2, 64),
	}
}

// ClusterState returns the current snapshot.
func (m *StateManager) ClusterState(ctx context.Context) (*cluster.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, nil
}

// TimeSource returns the clock the manager was built with.
func (m *StateManager) TimeSource() timesource.TimeSource {
	return m.ts
}

// Watch registers a callback invoked with each new snapshot. Callbacks
// run on the notification pool; a slow watcher drops updates rather than
// blocking mutations.
func (m *StateManager) Watch(fn func(*cluster.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// Close stops the notification pool and waits for in-flight callbacks.
func (m *StateManager) Close() {
	m.pool.Close()
	m.pool.Wait()
}

// CreateCollection registers a collection with numShards shards, each
// covering an equal slice of the hash space, and places
// replicationFactor replicas per shard round-robin over the live nodes.
func (m *StateManager) CreateCollection(ctx context.Context, name string, numShards, replicationFactor int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if numShards < 1 || replicationFactor < 1 {
		return ErrInvalidShape
	}

	err := m.mutate(func(next *cluster.State) error {
		if next.CollectionOrNil(name) != nil {
			return fmt.Errorf("%w: %s", ErrCollectionExists, name)
		}
		live := next.LiveNodeNames()
		if len(live) == 0 {
			return ErrNoLiveNodes
		}

		ranges := router.SplitRange(numShards)
		coll := &cluster.Collection{
			Name:              name,
			ReplicationFactor: replicationFactor,
			Router:            hashRouterName,
			Shards:            make(map[string]cluster.Shard, numShards),
		}
		seq := 0
		for i := 0; i < numShards; i++ {
			shardName := fmt.Sprintf("shard%d", i+1)
			replicas := make(map[string]cluster.Replica, replicationFactor)
			for j := 0; j < replicationFactor; j++ {
				seq++
				node := live[(i*replicationFactor+j)%len(live)]
				replicaName := fmt.Sprintf("core_node%d", seq)
				replicas[replicaName] = cluster.Replica{
					Name:     replicaName,
					Core:     fmt.Sprintf("%s_%s_replica_n%d", name, shardName, j+1),
					NodeName: node,
					State:    cluster.ReplicaActive,
					Leader:   j == 0,
				}
			}
			coll.Shards[shardName] = cluster.Shard{
				Name:     shardName,
				Range:    ranges[i],
				State:    cluster.ShardActive,
				Replicas: replicas,
			}
		}
		next.Collections[name] = coll
		return nil
	})
	if err != nil {
		return err
	}

	logger.Infow("Collection created", "collection", name, "shards", numShards, "replication_factor", replicationFactor)
	return nil
}

// DeleteCollection removes a collection from the state.
func (m *StateManager) DeleteCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := m.mutate(func(next *cluster.State) error {
		if next.CollectionOrNil(name) == nil {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		delete(next.Collections, name)
		return nil
	})
	if err != nil {
		return err
	}

	logger.Infow("Collection deleted", "collection", name)
	return nil
}

// AddReplica places one more replica of the given shard on a node. The
// replica starts active when the node is live, down otherwise.
func (m *StateManager) AddReplica(ctx context.Context, collection, shard, node string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.mutate(func(next *cluster.State) error {
		coll := next.CollectionOrNil(collection)
		if coll == nil {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		sh, ok := coll.Shard(shard)
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrShardNotFound, collection, shard)
		}

		seq := 0
		for _, s := range coll.Shards {
			seq += len(s.Replicas)
		}
		replicaName := fmt.Sprintf("core_node%d", seq+1)

		state := cluster.ReplicaDown
		if next.IsLive(node) {
			state = cluster.ReplicaActive
		}
		sh.Replicas[replicaName] = cluster.Replica{
			Name:     replicaName,
			Core:     fmt.Sprintf("%s_%s_replica_n%d", collection, shard, len(sh.Replicas)+1),
			NodeName: node,
			State:    state,
		}
		coll.Shards[shard] = sh
		return nil
	})
}

// SetReplicaState overrides one replica's state, e.g. when recovery
// starts or fails.
func (m *StateManager) SetReplicaState(collection, shard, replica string, state cluster.ReplicaState) error {
	return m.mutate(func(next *cluster.State) error {
		coll := next.CollectionOrNil(collection)
		if coll == nil {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		sh, ok := coll.Shard(shard)
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrShardNotFound, collection, shard)
		}
		r, ok := sh.Replicas[replica]
		if !ok {
			return fmt.Errorf("replica not found: %s/%s/%s", collection, shard, replica)
		}
		r.State = state
		sh.Replicas[replica] = r
		coll.Shards[shard] = sh
		return nil
	})
}

// NodeJoined adds the node to the live set and reactivates replicas it
// hosts that went down with it.
func (m *StateManager) NodeJoined(name string) {
	err := m.mutate(func(next *cluster.State) error {
		next.LiveNodes[name] = struct{}{}
		setReplicaStateOnNode(next, name, cluster.ReplicaDown, cluster.ReplicaActive)
		return nil
	})
	if err != nil {
		logger.Warnw("Failed to apply node join", "node", name, "error", err.Error())
		return
	}
	logger.Infow("Node joined", "node", name)
}

// NodeLeft removes the node from the live set and marks its replicas down.
func (m *StateManager) NodeLeft(name string) {
	err := m.mutate(func(next *cluster.State) error {
		delete(next.LiveNodes, name)
		setReplicaStateOnNode(next, name, cluster.ReplicaActive, cluster.ReplicaDown)
		return nil
	})
	if err != nil {
		logger.Warnw("Failed to apply node leave", "node", name, "error", err.Error())
		return
	}
	logger.Infow("Node left", "node", name)
}

// mutate clones the current snapshot, applies fn, bumps the version and
// swaps the new snapshot in. Watchers are notified outside the lock.
func (m *StateManager) mutate(fn func(next *cluster.State) error) error {
	m.mu.Lock()
	next := m.state.Clone()
	if err := fn(next); err != nil {
		m.mu.Unlock()
		return err
	}
	next.Version++
	m.state = next
	watchers := make([]func(*cluster.State), len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	for _, w := range watchers {
		w := w
		if !m.pool.TrySubmit(func() { w(next) }) {
			logger.Warnw("Dropping state notification, watcher queue full", "version", next.Version)
		}
	}
	return nil
}

func setReplicaStateOnNode(s *cluster.State, node string, from, to cluster.ReplicaState) {
	for _, coll := range s.Collections {
		for shardName, sh := range coll.Shards {
			for replicaName, r := range sh.Replicas {
				if r.NodeName == node && r.State == from {
					r.State = to
					sh.Replicas[replicaName] = r
				}
			}
			coll.Shards[shardName] = sh
		}
	}
}
