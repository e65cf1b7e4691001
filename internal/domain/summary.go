package domain

import (
	"cmp"
	"slices"
)

// PipeQuantity is one line of the bill of quantities
type PipeQuantity struct {
	Role     LinkRole `json:"role" yaml:"role"`
	Diameter float64  `json:"diameter" yaml:"diameter"`
	Length   float64  `json:"length" yaml:"length"`
	Cost     float64  `json:"cost" yaml:"cost"`
}

// Summary aggregates a solved network into pipe quantities and pressure bounds
type Summary struct {
	Pipes       []PipeQuantity `json:"pipes" yaml:"pipes"`
	TotalLength float64        `json:"total_length" yaml:"total_length"`
	TotalCost   float64        `json:"total_cost" yaml:"total_cost"`
	TotalDemand float64        `json:"total_demand" yaml:"total_demand"`
	MinPressure float64        `json:"min_pressure" yaml:"min_pressure"`
	MaxPressure float64        `json:"max_pressure" yaml:"max_pressure"`
	NodeCount   int            `json:"node_count" yaml:"node_count"`
	LinkCount   int            `json:"link_count" yaml:"link_count"`
}

type quantityKey struct {
	role     LinkRole
	diameter float64
}

// Summarize returns the bill of quantities of the network priced with cat.
// Pressure bounds only consider valves and emitters connected to a source.
func (n *Network) Summarize(cat Catalog) Summary {
	s := Summary{
		NodeCount: len(n.Nodes),
		LinkCount: len(n.Links),
	}

	totals := make(map[quantityKey]float64)
	for i := range n.Links {
		l := &n.Links[i]
		totals[quantityKey{l.Role, l.Diameter}] += l.Length
	}
	for key, length := range totals {
		cost := length * cat.Cost(key.diameter)
		s.Pipes = append(s.Pipes, PipeQuantity{
			Role:     key.role,
			Diameter: key.diameter,
			Length:   length,
			Cost:     cost,
		})
		s.TotalLength += length
		s.TotalCost += cost
	}
	slices.SortFunc(s.Pipes, func(a, b PipeQuantity) int {
		if c := cmp.Compare(roleOrder(a.Role), roleOrder(b.Role)); c != 0 {
			return c
		}
		return cmp.Compare(a.Diameter, b.Diameter)
	})

	first := true
	for i := range n.Nodes {
		node := &n.Nodes[i]
		s.TotalDemand += node.BaseDemand
		if !node.Role.IsDemandPoint() || !n.Reachable(NodeIndex(i)) {
			continue
		}
		if first || node.Pressure < s.MinPressure {
			s.MinPressure = node.Pressure
		}
		if first || node.Pressure > s.MaxPressure {
			s.MaxPressure = node.Pressure
		}
		first = false
	}

	return s
}

func roleOrder(r LinkRole) int {
	if i := slices.Index(LinkRoles, r); i >= 0 {
		return i
	}
	return len(LinkRoles)
}
