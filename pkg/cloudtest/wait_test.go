package cloudtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/anthanhphan/go-distributed-search/pkg/cloudtest/mocks"
	"github.com/anthanhphan/go-distributed-search/pkg/cluster"
	"github.com/anthanhphan/go-distributed-search/pkg/timesource"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func liveSet(nodes ...string) map[string]struct{} {
	live := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		live[n] = struct{}{}
	}
	return live
}

// shapedCollection builds a collection where shard i has activePerShard[i]
// active replicas on live nodes plus one down replica.
func shapedCollection(name string, activePerShard []int) *cluster.Collection {
	coll := &cluster.Collection{
		Name:   name,
		Shards: make(map[string]cluster.Shard, len(activePerShard)),
	}
	seq := 0
	for i, active := range activePerShard {
		shardName := shardName(i)
		replicas := make(map[string]cluster.Replica)
		for j := 0; j < active; j++ {
			seq++
			replicas[replicaName(seq)] = cluster.Replica{
				Name:     replicaName(seq),
				NodeName: nodeName(seq%5 + 1),
				State:    cluster.ReplicaActive,
			}
		}
		seq++
		replicas[replicaName(seq)] = cluster.Replica{
			Name:     replicaName(seq),
			NodeName: "dead-node",
			State:    cluster.ReplicaActive,
		}
		coll.Shards[shardName] = cluster.Shard{Name: shardName, Replicas: replicas}
	}
	return coll
}

func shardName(i int) string   { return fmt.Sprintf("shard%d", i+1) }
func replicaName(i int) string { return fmt.Sprintf("core_node%d", i) }
func nodeName(i int) string    { return fmt.Sprintf("node%d", i) }

func fiveLiveNodes() map[string]struct{} {
	return liveSet(nodeName(1), nodeName(2), nodeName(3), nodeName(4), nodeName(5))
}

func TestClusterShape(t *testing.T) {
	tests := []struct {
		name      string
		shards    int
		replicas  int
		liveNodes map[string]struct{}
		coll      *cluster.Collection
		want      bool
	}{
		{
			name:      "matching shape",
			shards:    2,
			replicas:  3,
			liveNodes: fiveLiveNodes(),
			coll:      shapedCollection("orders", []int{3, 3}),
			want:      true,
		},
		{
			name:      "one shard short a replica",
			shards:    2,
			replicas:  3,
			liveNodes: fiveLiveNodes(),
			coll:      shapedCollection("orders", []int{3, 2}),
			want:      false,
		},
		{
			name:      "too many active replicas",
			shards:    2,
			replicas:  3,
			liveNodes: fiveLiveNodes(),
			coll:      shapedCollection("orders", []int{3, 4}),
			want:      false,
		},
		{
			name:      "wrong shard count",
			shards:    2,
			replicas:  3,
			liveNodes: fiveLiveNodes(),
			coll:      shapedCollection("orders", []int{3, 3, 3}),
			want:      false,
		},
		{
			name:      "absent collection",
			shards:    2,
			replicas:  3,
			liveNodes: fiveLiveNodes(),
			coll:      nil,
			want:      false,
		},
		{
			name:      "no live nodes",
			shards:    2,
			replicas:  3,
			liveNodes: liveSet(),
			coll:      shapedCollection("orders", []int{3, 3}),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := ClusterShape(tt.shards, tt.replicas)
			assert.Equal(t, tt.want, pred(tt.liveNodes, tt.coll))
		})
	}
}

func TestWaitForStateTimeout_MatchesAfterPolls(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sim := timesource.NewSimTimeSource(time.Unix(0, 0))
	src := mocks.NewMockStateSource(ctrl)
	src.EXPECT().TimeSource().Return(sim).AnyTimes()

	// First poll: collection missing. Second: shape not yet reached.
	// Third: matching.
	polls := 0
	src.EXPECT().ClusterState(gomock.Any()).DoAndReturn(func(ctx context.Context) (*cluster.State, error) {
		polls++
		state := cluster.NewState()
		state.LiveNodes = fiveLiveNodes()
		switch polls {
		case 1:
		case 2:
			state.Collections["orders"] = shapedCollection("orders", []int{3, 2})
		default:
			state.Collections["orders"] = shapedCollection("orders", []int{3, 3})
		}
		return state, nil
	}).AnyTimes()

	elapsed, err := WaitForStateTimeout(context.Background(), src, "orders", time.Second, ClusterShape(2, 3))
	assert.NoError(t, err)
	assert.Equal(t, 3, polls)
	assert.Equal(t, 100*time.Millisecond, elapsed)
	assert.LessOrEqual(t, elapsed, time.Second)
}

func TestWaitForStateTimeout_TimesOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sim := timesource.NewSimTimeSource(time.Unix(0, 0))
	src := mocks.NewMockStateSource(ctrl)
	src.EXPECT().TimeSource().Return(sim).AnyTimes()

	polls := 0
	src.EXPECT().ClusterState(gomock.Any()).DoAndReturn(func(ctx context.Context) (*cluster.State, error) {
		polls++
		state := cluster.NewState()
		state.LiveNodes = fiveLiveNodes()
		state.Collections["orders"] = shapedCollection("orders", []int{3, 2})
		return state, nil
	}).AnyTimes()

	start := sim.Now()
	_, err := WaitForStateTimeout(context.Background(), src, "orders", 200*time.Millisecond, ClusterShape(2, 3))
	assert.ErrorIs(t, err, ErrWaitTimeout)

	// 200ms budget with 50ms polls: checks at 0, 50, 100 and 150ms, then
	// the deadline is reached. Neither immediate nor unbounded.
	assert.Equal(t, 4, polls)
	assert.Equal(t, 200*time.Millisecond, sim.Now().Sub(start))
}

func TestWaitForStateTimeout_CollectionNeverAppears(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sim := timesource.NewSimTimeSource(time.Unix(0, 0))
	src := mocks.NewMockStateSource(ctrl)
	src.EXPECT().TimeSource().Return(sim).AnyTimes()
	src.EXPECT().ClusterState(gomock.Any()).DoAndReturn(func(ctx context.Context) (*cluster.State, error) {
		state := cluster.NewState()
		state.LiveNodes = fiveLiveNodes()
		return state, nil
	}).AnyTimes()

	predicateCalls := 0
	pred := func(liveNodes map[string]struct{}, coll *cluster.Collection) bool {
		predicateCalls++
		return true
	}

	_, err := WaitForStateTimeout(context.Background(), src, "missing", 200*time.Millisecond, pred)
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.Zero(t, predicateCalls, "predicate must not run while the collection is absent")
}

func TestWaitForStateTimeout_SourceErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sim := timesource.NewSimTimeSource(time.Unix(0, 0))
	src := mocks.NewMockStateSource(ctrl)
	src.EXPECT().TimeSource().Return(sim).AnyTimes()

	sourceErr := errors.New("state fetch failed")
	src.EXPECT().ClusterState(gomock.Any()).Return(nil, sourceErr)

	_, err := WaitForStateTimeout(context.Background(), src, "orders", time.Second, ClusterShape(1, 1))
	assert.ErrorIs(t, err, sourceErr)
}

func TestWaitForStateTimeout_ContextCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sim := timesource.NewSimTimeSource(time.Unix(0, 0))
	src := mocks.NewMockStateSource(ctrl)
	src.EXPECT().TimeSource().Return(sim).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WaitForStateTimeout(ctx, src, "orders", time.Second, ClusterShape(1, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

// fixedSource is a StateSource pinned to one snapshot.
type fixedSource struct {
	state *cluster.State
	ts    timesource.TimeSource
}

func (f *fixedSource) ClusterState(ctx context.Context) (*cluster.State, error) {
	return f.state, nil
}

func (f *fixedSource) TimeSource() timesource.TimeSource { return f.ts }

func TestWaitForState_Success(t *testing.T) {
	state := cluster.NewState()
	state.LiveNodes = fiveLiveNodes()
	state.Collections["orders"] = shapedCollection("orders", []int{3, 3})

	src := &fixedSource{state: state, ts: timesource.NewSimTimeSource(time.Unix(0, 0))}

	elapsed := WaitForState(t, src, "expected 2x3 shape", "orders", ClusterShape(2, 3))
	assert.Equal(t, time.Duration(0), elapsed)
}
