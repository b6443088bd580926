package gossip

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/anthanhphan/go-distributed-search/internal/node/port"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/hashicorp/memberlist"
)

// GossipAdapter implements port.MembershipPort using memberlist. Member
// names are the node names that appear in the cluster state's live set;
// join/leave events are forwarded to the state manager.
type GossipAdapter struct {
	list    *memberlist.Memberlist
	conf    *memberlist.Config
	handler port.MembershipHandler

	nodeName  string
	addr      string
	port      int
	adminPort int
}

// Ensure GossipAdapter implements the memberlist delegates it registers.
var _ memberlist.Delegate = (*GossipAdapter)(nil)
var _ memberlist.EventDelegate = (*GossipAdapter)(nil)

// NewGossipAdapter creates a membership adapter and registers the local
// node with the handler; memberlist does not emit a join event for self.
func NewGossipAdapter(nodeName string, bindAddr string, bindPort int, adminPort int, handler port.MembershipHandler) (*GossipAdapter, error) {
	config := memberlist.DefaultLANConfig()
	config.Name = nodeName
	config.BindAddr = bindAddr
	config.BindPort = bindPort
	config.AdvertisePort = bindPort

	// Disable logging for now
	config.LogOutput = io.Discard

	adapter := &GossipAdapter{
		conf:      config,
		handler:   handler,
		nodeName:  nodeName,
		addr:      bindAddr,
		port:      bindPort,
		adminPort: adminPort,
	}

	config.Events = adapter
	config.Delegate = adapter

	list, err := memberlist.Create(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create memberlist: %w", err)
	}
	adapter.list = list

	handler.NodeJoined(nodeName)

	return adapter, nil
}

// Join joins the cluster using seed nodes.
func (g *GossipAdapter) Join(seeds []string) error {
	if len(seeds) > 0 {
		_, err := g.list.Join(seeds)
		if err != nil {
			return fmt.Errorf("failed to join cluster: %w", err)
		}
	}
	return nil
}

// Leave leaves the cluster.
func (g *GossipAdapter) Leave() error {
	// gracefully leave
	if err := g.list.Leave(time.Second * 5); err != nil {
		return err
	}
	return g.list.Shutdown()
}

// NodeMeta returns the local node metadata.
func (g *GossipAdapter) NodeMeta(limit int) []byte {
	data, err := json.Marshal(map[string]interface{}{
		"admin_port": g.adminPort,
	})
	if err != nil {
		logger.Warnw("failed to marshal gossip node meta", "error", err.Error())
		return nil
	}
	return data
}

// NotifyMsg, GetBroadcasts, LocalState, MergeRemoteState are not used here but required by Delegate
func (g *GossipAdapter) NotifyMsg([]byte)                           {}
func (g *GossipAdapter) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (g *GossipAdapter) LocalState(join bool) []byte                { return nil }
func (g *GossipAdapter) MergeRemoteState(buf []byte, join bool)     {}

// LiveNodes returns the names of current members.
func (g *GossipAdapter) LiveNodes() []string {
	members := g.list.Members()
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return names
}

// LocalNode returns the local node name.
func (g *GossipAdapter) LocalNode() string {
	return g.nodeName
}

// NotifyJoin is invoked when a node joins.
func (g *GossipAdapter) NotifyJoin(node *memberlist.Node) {
	if node.Name == g.nodeName {
		return
	}
	g.handler.NodeJoined(node.Name)
}

// NotifyLeave is invoked when a node leaves or fails.
func (g *GossipAdapter) NotifyLeave(node *memberlist.Node) {
	if node.Name == g.nodeName {
		return
	}
	g.handler.NodeLeft(node.Name)
}

// NotifyUpdate is invoked when a node's metadata changes.
func (g *GossipAdapter) NotifyUpdate(node *memberlist.Node) {
	adminPort := decodeMeta(node.Meta)
	logger.Debugw("Node metadata updated", "node", node.Name, "admin_port", adminPort)
}

func decodeMeta(meta []byte) int {
	if len(meta) == 0 {
		return 0
	}
	type nodeMeta struct {
		AdminPort int `json:"admin_port"`
	}
	var m nodeMeta
	if err := json.Unmarshal(meta, &m); err != nil {
		logger.Warnw("failed to decode node metadata", "error", err.Error())
		return 0
	}
	return m.AdminPort
}
