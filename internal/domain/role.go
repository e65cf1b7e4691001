package domain

import "fmt"

// NodeRole represents the hydraulic role of a network node
type NodeRole string

const (
	NodeRoleSource   NodeRole = "source"
	NodeRoleValve    NodeRole = "valve"
	NodeRoleEmitter  NodeRole = "emitter"
	NodeRoleJunction NodeRole = "junction"
)

// IsDemandPoint reports whether the node must satisfy the minimum pressure
func (r NodeRole) IsDemandPoint() bool {
	return r == NodeRoleValve || r == NodeRoleEmitter
}

// LinkRole represents the pipe category of a link
type LinkRole string

const (
	LinkRoleHose       LinkRole = "hose"
	LinkRoleLateral    LinkRole = "lateral"
	LinkRoleDerivation LinkRole = "derivation"
	LinkRoleMain       LinkRole = "main"
)

// LinkRoles lists every pipe role in the order lines are processed
var LinkRoles = []LinkRole{LinkRoleHose, LinkRoleLateral, LinkRoleDerivation, LinkRoleMain}

// ParseNodeRole converts a string to a point-feature role
func ParseNodeRole(s string) (NodeRole, error) {
	switch NodeRole(s) {
	case NodeRoleSource, NodeRoleValve, NodeRoleEmitter, NodeRoleJunction:
		return NodeRole(s), nil
	}
	return "", fmt.Errorf("unknown node role %q", s)
}

// ParseLinkRole converts a string to a pipe role
func ParseLinkRole(s string) (LinkRole, error) {
	switch LinkRole(s) {
	case LinkRoleHose, LinkRoleLateral, LinkRoleDerivation, LinkRoleMain:
		return LinkRole(s), nil
	}
	return "", fmt.Errorf("unknown link role %q", s)
}
