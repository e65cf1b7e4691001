package domain

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// NodeIndex addresses a node inside its Network
type NodeIndex int

// LinkIndex addresses a link inside its Network
type LinkIndex int

const (
	// NoNode marks an unset node reference
	NoNode NodeIndex = -1
	// NoLink marks an unset link reference (e.g. the upstream link of a source)
	NoLink LinkIndex = -1
)

// Node represents a point of the pipe network
type Node struct {
	ID         string    `json:"id"`
	Position   orb.Point `json:"position"`
	Role       NodeRole  `json:"role"`
	Elevation  float64   `json:"elevation"`
	BaseDemand float64   `json:"base_demand"` // m³/h

	// SupplyPressure overrides the solver's starting pressure for a source (mca)
	SupplyPressure *float64 `json:"supply_pressure,omitempty"`

	// Computed
	Pressure float64 `json:"pressure"` // mca

	// Topology
	ConnectedLinks  []LinkIndex `json:"-"`
	DownstreamLinks []LinkIndex `json:"-"`
	UpstreamLink    LinkIndex   `json:"-"`
}

// Link represents a straight pipe segment between two nodes.
// Geometry is always the segment between the node positions, not the
// original input path.
type Link struct {
	ID       string         `json:"id"`
	Geometry orb.LineString `json:"geometry"`
	Role     LinkRole       `json:"role"`
	Start    NodeIndex      `json:"-"`
	End      NodeIndex      `json:"-"`
	Directed bool           `json:"directed"`
	Length   float64        `json:"length"` // m

	// Computed
	Diameter float64 `json:"diameter"`  // mm
	Flow     float64 `json:"flow"`      // m³/h
	HeadLoss float64 `json:"head_loss"` // mca
	Velocity float64 `json:"velocity"`  // m/s
}

// Network owns the nodes and links of one design run
type Network struct {
	Nodes   []Node
	Links   []Link
	Sources []NodeIndex

	nodeIDs map[string]NodeIndex
	linkIDs map[string]LinkIndex
}

// NewNetwork creates an empty network
func NewNetwork() *Network {
	return &Network{
		Nodes:   make([]Node, 0),
		Links:   make([]Link, 0),
		Sources: make([]NodeIndex, 0),
		nodeIDs: make(map[string]NodeIndex),
		linkIDs: make(map[string]LinkIndex),
	}
}

// AddNode appends a node and registers it as a source when applicable
func (n *Network) AddNode(node Node) (NodeIndex, error) {
	if node.ID == "" {
		return NoNode, fmt.Errorf("node ID is required")
	}
	if _, exists := n.nodeIDs[node.ID]; exists {
		return NoNode, fmt.Errorf("duplicate node ID %s", node.ID)
	}

	idx := NodeIndex(len(n.Nodes))
	node.UpstreamLink = NoLink
	node.ConnectedLinks = nil
	node.DownstreamLinks = nil
	n.Nodes = append(n.Nodes, node)
	n.nodeIDs[node.ID] = idx

	if node.Role == NodeRoleSource {
		n.Sources = append(n.Sources, idx)
	}
	return idx, nil
}

// AddLink creates a link between two existing nodes and connects it to both.
// The geometry is the straight segment between the node positions.
func (n *Network) AddLink(id string, role LinkRole, a, b NodeIndex) (LinkIndex, error) {
	if id == "" {
		return NoLink, fmt.Errorf("link ID is required")
	}
	if _, exists := n.linkIDs[id]; exists {
		return NoLink, fmt.Errorf("duplicate link ID %s", id)
	}
	if !n.validNode(a) || !n.validNode(b) {
		return NoLink, fmt.Errorf("link %s references unknown node", id)
	}
	if a == b {
		return NoLink, fmt.Errorf("link %s is a self-loop", id)
	}

	geom := orb.LineString{n.Nodes[a].Position, n.Nodes[b].Position}
	length := planar.Length(geom)
	if !(length > 0) {
		return NoLink, fmt.Errorf("link %s has non-positive length", id)
	}

	idx := LinkIndex(len(n.Links))
	n.Links = append(n.Links, Link{
		ID:       id,
		Geometry: geom,
		Role:     role,
		Start:    a,
		End:      b,
		Length:   length,
	})
	n.linkIDs[id] = idx
	n.Nodes[a].ConnectedLinks = append(n.Nodes[a].ConnectedLinks, idx)
	n.Nodes[b].ConnectedLinks = append(n.Nodes[b].ConnectedLinks, idx)

	return idx, nil
}

func (n *Network) validNode(i NodeIndex) bool {
	return i >= 0 && int(i) < len(n.Nodes)
}

// NodeByID looks up a node index by ID
func (n *Network) NodeByID(id string) (NodeIndex, bool) {
	idx, ok := n.nodeIDs[id]
	return idx, ok
}

// LinkByID looks up a link index by ID
func (n *Network) LinkByID(id string) (LinkIndex, bool) {
	idx, ok := n.linkIDs[id]
	return idx, ok
}

// Node returns the node at index i
func (n *Network) Node(i NodeIndex) *Node {
	return &n.Nodes[i]
}

// Link returns the link at index i
func (n *Network) Link(i LinkIndex) *Link {
	return &n.Links[i]
}

// Other returns the endpoint of link li that is not node ni
func (n *Network) Other(li LinkIndex, ni NodeIndex) NodeIndex {
	l := &n.Links[li]
	if l.Start == ni {
		return l.End
	}
	return l.Start
}

// IsEmpty reports whether the network has no nodes
func (n *Network) IsEmpty() bool {
	return len(n.Nodes) == 0
}

// Reachable reports whether direction resolution connected the node to a source
func (n *Network) Reachable(i NodeIndex) bool {
	node := &n.Nodes[i]
	return node.Role == NodeRoleSource || node.UpstreamLink != NoLink
}

// UpstreamPath returns the links from node i back to its source, nearest first
func (n *Network) UpstreamPath(i NodeIndex) []LinkIndex {
	var path []LinkIndex
	seen := make(map[NodeIndex]bool)
	for cur := i; n.Nodes[cur].UpstreamLink != NoLink && !seen[cur]; {
		seen[cur] = true
		li := n.Nodes[cur].UpstreamLink
		path = append(path, li)
		cur = n.Links[li].Start
	}
	return path
}

// Clone returns an independent deep copy of the network
func (n *Network) Clone() *Network {
	c := &Network{
		Nodes:   make([]Node, len(n.Nodes)),
		Links:   make([]Link, len(n.Links)),
		Sources: slices.Clone(n.Sources),
		nodeIDs: make(map[string]NodeIndex, len(n.nodeIDs)),
		linkIDs: make(map[string]LinkIndex, len(n.linkIDs)),
	}

	for i, node := range n.Nodes {
		node.ConnectedLinks = slices.Clone(node.ConnectedLinks)
		node.DownstreamLinks = slices.Clone(node.DownstreamLinks)
		if node.SupplyPressure != nil {
			p := *node.SupplyPressure
			node.SupplyPressure = &p
		}
		c.Nodes[i] = node
	}
	for i, link := range n.Links {
		link.Geometry = slices.Clone(link.Geometry)
		c.Links[i] = link
	}
	for id, idx := range n.nodeIDs {
		c.nodeIDs[id] = idx
	}
	for id, idx := range n.linkIDs {
		c.linkIDs[id] = idx
	}
	return c
}
