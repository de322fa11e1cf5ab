package builder

import (
	vverrors "vpc-visualizer/internal/errors"
	"vpc-visualizer/internal/graph"
	"vpc-visualizer/internal/parser"
)

const (
	msgNoTrafficTarget        = "no traffic-target specified"
	msgAmbiguousTrafficTarget = "ambiguous traffic target"
)

// direction is relative to the security group that owns the rule.
type direction int

const (
	ingress direction = iota
	egress
)

func (d direction) String() string {
	switch d {
	case ingress:
		return "ingress"
	case egress:
		return "egress"
	default:
		return "unknown"
	}
}

// Build constructs the traffic graph for a batch of security groups.
// The whole batch is validated first; an invalid rule anywhere yields an
// error and no graph.
func Build(groups []parser.SecurityGroup) (*graph.Graph, error) {
	if err := Validate(groups); err != nil {
		return nil, err
	}

	acc := newAccumulator()
	for _, sg := range groups {
		acc.addNode(graph.NewNode(sg.GroupID, graph.SecurityGroup, sg.GroupName, map[string]string{
			graph.MetadataVPCID: sg.VpcID,
		}))

		for _, rule := range sg.IPPermissions {
			if err := acc.addRule(sg.GroupID, rule, ingress); err != nil {
				return nil, err
			}
		}
		for _, rule := range sg.IPPermissionsEgress {
			if err := acc.addRule(sg.GroupID, rule, egress); err != nil {
				return nil, err
			}
		}
	}

	return acc.freeze(), nil
}

// Validate checks that every rule targets exactly one kind of peer: CIDR
// ranges, security groups or prefix lists.
func Validate(groups []parser.SecurityGroup) error {
	for _, sg := range groups {
		for i, rule := range sg.IPPermissions {
			if err := validateRule(sg.GroupID, ingress, i, rule); err != nil {
				return err
			}
		}
		for i, rule := range sg.IPPermissionsEgress {
			if err := validateRule(sg.GroupID, egress, i, rule); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRule(groupID string, dir direction, index int, rule parser.IPPermission) error {
	targets := 0
	if len(rule.IPRanges) > 0 || len(rule.IPv6Ranges) > 0 {
		targets++
	}
	if len(rule.UserIDGroupPairs) > 0 {
		targets++
	}
	if len(rule.PrefixListIDs) > 0 {
		targets++
	}

	switch {
	case targets == 0:
		return vverrors.New(vverrors.KindValidation, "security group %s %s rule %d: %s", groupID, dir, index, msgNoTrafficTarget)
	case targets > 1:
		return vverrors.New(vverrors.KindValidation, "security group %s %s rule %d: %s", groupID, dir, index, msgAmbiguousTrafficTarget)
	}
	return nil
}

// orient places the security group and its peer on the edge according to the
// rule direction.
func orient(groupID, peerID string, dir direction, protocol string, ports graph.PortRange) (graph.Edge, error) {
	switch dir {
	case egress:
		return graph.Edge{Source: groupID, Target: peerID, Protocol: protocol, PortRange: ports}, nil
	case ingress:
		return graph.Edge{Source: peerID, Target: groupID, Protocol: protocol, PortRange: ports}, nil
	default:
		return graph.Edge{}, vverrors.New(vverrors.KindUnsupportedDirection, "unsupported edge direction %d", int(dir))
	}
}
