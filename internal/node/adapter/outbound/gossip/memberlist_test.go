package gossip

import (
	"encoding/json"
	"testing"

	"github.com/hashicorp/memberlist"
)

type recordingHandler struct {
	joined []string
	left   []string
}

func (h *recordingHandler) NodeJoined(name string) { h.joined = append(h.joined, name) }
func (h *recordingHandler) NodeLeft(name string)   { h.left = append(h.left, name) }

func TestDecodeMeta(t *testing.T) {
	data, _ := json.Marshal(map[string]interface{}{
		"admin_port": 8983,
	})

	if got := decodeMeta(data); got != 8983 {
		t.Errorf("expected 8983, got %d", got)
	}
	if got := decodeMeta(nil); got != 0 {
		t.Errorf("expected 0 for empty meta, got %d", got)
	}
	if got := decodeMeta([]byte("not-json")); got != 0 {
		t.Errorf("expected 0 for invalid meta, got %d", got)
	}
}

func TestGossipAdapter_NodeMeta(t *testing.T) {
	g := &GossipAdapter{
		adminPort: 8984,
	}

	data := g.NodeMeta(0)
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}

	if m["admin_port"].(float64) != 8984 {
		t.Errorf("expected 8984, got %v", m["admin_port"])
	}
}

func TestGossipAdapter_ForwardsMembershipEvents(t *testing.T) {
	handler := &recordingHandler{}
	g := &GossipAdapter{
		nodeName: "local-node",
		handler:  handler,
	}

	g.NotifyJoin(&memberlist.Node{Name: "peer-1"})
	g.NotifyLeave(&memberlist.Node{Name: "peer-1"})

	// Events for the local node are handled at creation, not re-forwarded.
	g.NotifyJoin(&memberlist.Node{Name: "local-node"})
	g.NotifyLeave(&memberlist.Node{Name: "local-node"})

	if len(handler.joined) != 1 || handler.joined[0] != "peer-1" {
		t.Errorf("unexpected join events: %v", handler.joined)
	}
	if len(handler.left) != 1 || handler.left[0] != "peer-1" {
		t.Errorf("unexpected leave events: %v", handler.left)
	}
}
