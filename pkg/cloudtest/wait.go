// Package cloudtest provides helpers for tests that need to wait for the
// cluster to converge on an externally observed state, e.g. a collection
// reaching its expected number of shards and active replicas.
package cloudtest

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/anthanhphan/go-distributed-search/pkg/cluster"
	"github.com/anthanhphan/go-distributed-search/pkg/timesource"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	// DefaultWaitTimeout bounds WaitForState.
	DefaultWaitTimeout = 90 * time.Second

	// pollInterval is the fixed delay between state polls.
	pollInterval = 50 * time.Millisecond
)

var ErrWaitTimeout = errors.New("timed out waiting for collection state")

// CollectionStatePredicate decides whether the observed state of one
// collection, together with the current live-node set, is acceptable.
// The collection descriptor is nil while the collection does not exist.
type CollectionStatePredicate func(liveNodes map[string]struct{}, coll *cluster.Collection) bool

//go:generate mockgen -destination=mocks/state_source_mock.go -package=mocks -source=wait.go

// StateSource provides read access to the current cluster-state snapshot
// and the clock used to measure the wait.
type StateSource interface {
	// ClusterState returns the current snapshot.
	ClusterState(ctx context.Context) (*cluster.State, error)

	// TimeSource returns the clock elapsed time is measured against.
	TimeSource() timesource.TimeSource
}

// WaitForState blocks until the predicate matches the collection's state,
// using DefaultWaitTimeout, and returns the elapsed wait time. On timeout
// or state-source failure it fails the test with the caller's message
// plus the last-seen live nodes and collection state.
func WaitForState(t testing.TB, src StateSource, message, collection string, predicate CollectionStatePredicate) time.Duration {
	t.Helper()

	var (
		lastColl *cluster.Collection
		lastLive map[string]struct{}
	)
	elapsed, err := WaitForStateTimeout(context.Background(), src, collection, DefaultWaitTimeout,
		func(liveNodes map[string]struct{}, coll *cluster.Collection) bool {
			lastLive = liveNodes
			lastColl = coll
			return predicate(liveNodes, coll)
		})
	if err != nil {
		t.Fatalf("%s\nLive Nodes: %v\nLast available state: %s\nerror: %v",
			message, nodeNames(lastLive), lastColl.String(), err)
	}
	return elapsed
}

// WaitForStateTimeout polls the state source every 50ms until the
// predicate matches the named collection, returning the elapsed time. A
// snapshot without the collection counts as not-yet-matching: creation
// may still be in flight, so polling continues. It returns ErrWaitTimeout
// once the timeout elapses, and surfaces state-source errors unmodified.
func WaitForStateTimeout(ctx context.Context, src StateSource, collection string, timeout time.Duration, predicate CollectionStatePredicate) (time.Duration, error) {
	ts := src.TimeSource()
	start := ts.Now()
	deadline := start.Add(timeout)

	for ts.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		state, err := src.ClusterState(ctx)
		if err != nil {
			return 0, err
		}

		coll := state.CollectionOrNil(collection)
		if coll == nil {
			ts.Sleep(pollInterval)
			continue
		}

		if predicate(state.LiveNodes, coll) {
			logger.Debugw("collection state matched predicate", "collection", collection, "version", state.Version)
			return ts.Now().Sub(start), nil
		}
		ts.Sleep(pollInterval)
	}

	return 0, ErrWaitTimeout
}

// ClusterShape returns a predicate that matches when the collection has
// exactly expectedShards shards and every shard has exactly
// expectedReplicas replicas active against the live-node set.
func ClusterShape(expectedShards, expectedReplicas int) CollectionStatePredicate {
	return func(liveNodes map[string]struct{}, coll *cluster.Collection) bool {
		if coll == nil {
			return false
		}
		if len(coll.Shards) != expectedShards {
			return false
		}
		for _, shard := range coll.Shards {
			if shard.ActiveReplicaCount(liveNodes) != expectedReplicas {
				return false
			}
		}
		return true
	}
}

func nodeNames(liveNodes map[string]struct{}) []string {
	names := make([]string, 0, len(liveNodes))
	for n := range liveNodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
