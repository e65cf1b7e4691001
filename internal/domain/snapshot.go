package domain

import "github.com/paulmach/orb"

// NodeView is the read-only output record of a node
type NodeView struct {
	ID        string    `json:"id" yaml:"id"`
	Role      NodeRole  `json:"role" yaml:"role"`
	Position  orb.Point `json:"position" yaml:"position,flow"`
	Elevation float64   `json:"elevation" yaml:"elevation"`
	Demand    float64   `json:"demand" yaml:"demand"`
	Pressure  float64   `json:"pressure" yaml:"pressure"`
	Upstream  string    `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Reachable bool      `json:"reachable" yaml:"reachable"`
}

// LinkView is the read-only output record of a link
type LinkView struct {
	ID       string         `json:"id" yaml:"id"`
	Role     LinkRole       `json:"role" yaml:"role"`
	Start    string         `json:"start" yaml:"start"`
	End      string         `json:"end" yaml:"end"`
	Directed bool           `json:"directed" yaml:"directed"`
	Diameter float64        `json:"diameter" yaml:"diameter"`
	Flow     float64        `json:"flow" yaml:"flow"`
	HeadLoss float64        `json:"head_loss" yaml:"head_loss"`
	Velocity float64        `json:"velocity" yaml:"velocity"`
	Length   float64        `json:"length" yaml:"length"`
	Geometry orb.LineString `json:"geometry" yaml:"geometry"`
}

// Snapshot is a flattened copy of a solved network, safe to hand to
// exporters and persistence after the network is discarded
type Snapshot struct {
	Nodes []NodeView `json:"nodes" yaml:"nodes"`
	Links []LinkView `json:"links" yaml:"links"`
}

// Snapshot copies the network's current state into a Snapshot
func (n *Network) Snapshot() *Snapshot {
	s := &Snapshot{
		Nodes: make([]NodeView, 0, len(n.Nodes)),
		Links: make([]LinkView, 0, len(n.Links)),
	}

	for i := range n.Nodes {
		node := &n.Nodes[i]
		view := NodeView{
			ID:        node.ID,
			Role:      node.Role,
			Position:  node.Position,
			Elevation: node.Elevation,
			Demand:    node.BaseDemand,
			Pressure:  node.Pressure,
			Reachable: n.Reachable(NodeIndex(i)),
		}
		if node.UpstreamLink != NoLink {
			view.Upstream = n.Links[node.UpstreamLink].ID
		}
		s.Nodes = append(s.Nodes, view)
	}

	for i := range n.Links {
		l := &n.Links[i]
		geom := make(orb.LineString, len(l.Geometry))
		copy(geom, l.Geometry)
		s.Links = append(s.Links, LinkView{
			ID:       l.ID,
			Role:     l.Role,
			Start:    n.Nodes[l.Start].ID,
			End:      n.Nodes[l.End].ID,
			Directed: l.Directed,
			Diameter: l.Diameter,
			Flow:     l.Flow,
			HeadLoss: l.HeadLoss,
			Velocity: l.Velocity,
			Length:   l.Length,
			Geometry: geom,
		})
	}

	return s
}

// Node returns the view of the node with the given ID
func (s *Snapshot) Node(id string) (NodeView, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}

// Link returns the view of the link with the given ID
func (s *Snapshot) Link(id string) (LinkView, bool) {
	for _, l := range s.Links {
		if l.ID == id {
			return l, true
		}
	}
	return LinkView{}, false
}
