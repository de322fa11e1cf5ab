package parser

// DescribeSecurityGroupsOutput is the document printed by
// `aws ec2 describe-security-groups`.
type DescribeSecurityGroupsOutput struct {
	SecurityGroups []SecurityGroup `json:"SecurityGroups" yaml:"SecurityGroups" validate:"required,dive"`
}

// SecurityGroup is a single security group record with its rules.
type SecurityGroup struct {
	GroupID             string         `json:"GroupId" yaml:"GroupId" validate:"required"`
	GroupName           string         `json:"GroupName" yaml:"GroupName"`
	VpcID               string         `json:"VpcId" yaml:"VpcId"`
	OwnerID             string         `json:"OwnerId,omitempty" yaml:"OwnerId,omitempty"`
	Description         string         `json:"Description,omitempty" yaml:"Description,omitempty"`
	IPPermissions       []IPPermission `json:"IpPermissions" yaml:"IpPermissions" validate:"required,dive"`
	IPPermissionsEgress []IPPermission `json:"IpPermissionsEgress" yaml:"IpPermissionsEgress" validate:"required,dive"`
}

// IPPermission is one ingress or egress rule. Exactly one of the CIDR ranges,
// the group pairs or the prefix lists is expected to be populated.
type IPPermission struct {
	IPProtocol       string            `json:"IpProtocol" yaml:"IpProtocol"`
	FromPort         *int              `json:"FromPort,omitempty" yaml:"FromPort,omitempty"`
	ToPort           *int              `json:"ToPort,omitempty" yaml:"ToPort,omitempty"`
	IPRanges         []IPRange         `json:"IpRanges" yaml:"IpRanges" validate:"required,dive"`
	IPv6Ranges       []IPv6Range       `json:"Ipv6Ranges" yaml:"Ipv6Ranges" validate:"required,dive"`
	UserIDGroupPairs []UserIDGroupPair `json:"UserIdGroupPairs" yaml:"UserIdGroupPairs" validate:"required,dive"`
	PrefixListIDs    []PrefixListID    `json:"PrefixListIds" yaml:"PrefixListIds" validate:"required,dive"`
}

// IPRange is an IPv4 CIDR target.
type IPRange struct {
	CidrIP      string `json:"CidrIp" yaml:"CidrIp" validate:"required"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// IPv6Range is an IPv6 CIDR target.
type IPv6Range struct {
	CidrIPv6    string `json:"CidrIpv6" yaml:"CidrIpv6" validate:"required"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// UserIDGroupPair references another security group, possibly in another
// account.
type UserIDGroupPair struct {
	GroupID     string `json:"GroupId" yaml:"GroupId" validate:"required"`
	UserID      string `json:"UserId,omitempty" yaml:"UserId,omitempty"`
	VpcID       string `json:"VpcId,omitempty" yaml:"VpcId,omitempty"`
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// PrefixListID references a managed prefix list.
type PrefixListID struct {
	PrefixListID string `json:"PrefixListId" yaml:"PrefixListId" validate:"required"`
	Description  string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// Ports returns the rule's port bounds, substituting -1 for a missing bound.
func (p IPPermission) Ports() (from, to int) {
	from, to = -1, -1
	if p.FromPort != nil {
		from = *p.FromPort
	}
	if p.ToPort != nil {
		to = *p.ToPort
	}
	return from, to
}
