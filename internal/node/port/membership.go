package port

// MembershipPort defines the interface for cluster membership and failure detection.
type MembershipPort interface {
	// Join joins an existing cluster using a list of seed nodes.
	Join(seeds []string) error

	// Leave gracefully leaves the cluster.
	Leave() error

	// LiveNodes returns the names of members currently considered alive.
	LiveNodes() []string

	// LocalNode returns the local node name.
	LocalNode() string
}

// MembershipHandler receives membership events from the gossip layer.
type MembershipHandler interface {
	NodeJoined(name string)
	NodeLeft(name string)
}
