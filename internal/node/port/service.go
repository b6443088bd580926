package port

import (
	"context"

	"github.com/anthanhphan/go-distributed-search/pkg/cluster"
)

// ClusterService exposes control-plane operations over the cluster state.
type ClusterService interface {
	// ClusterState returns the current cluster-state snapshot.
	ClusterState(ctx context.Context) (*cluster.State, error)

	// CreateCollection registers a collection and places its replicas on
	// the current live nodes.
	CreateCollection(ctx context.Context, name string, numShards, replicationFactor int) error

	// DeleteCollection removes a collection from the state.
	DeleteCollection(ctx context.Context, name string) error

	// AddReplica places one more replica of the given shard on a node.
	AddReplica(ctx context.Context, collection, shard, node string) error
}
