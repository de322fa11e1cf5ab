package fetcher

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"vpc-visualizer/internal/parser"
)

// convertGroup maps an SDK security group to the parser record. Every slice
// of the result is non-nil so the record passes parser.Validate.
func convertGroup(sg ec2types.SecurityGroup) parser.SecurityGroup {
	return parser.SecurityGroup{
		GroupID:             aws.ToString(sg.GroupId),
		GroupName:           aws.ToString(sg.GroupName),
		VpcID:               aws.ToString(sg.VpcId),
		OwnerID:             aws.ToString(sg.OwnerId),
		Description:         aws.ToString(sg.Description),
		IPPermissions:       convertPermissions(sg.IpPermissions),
		IPPermissionsEgress: convertPermissions(sg.IpPermissionsEgress),
	}
}

func convertPermissions(perms []ec2types.IpPermission) []parser.IPPermission {
	out := make([]parser.IPPermission, 0, len(perms))
	for _, p := range perms {
		rule := parser.IPPermission{
			IPProtocol:       aws.ToString(p.IpProtocol),
			FromPort:         toInt(p.FromPort),
			ToPort:           toInt(p.ToPort),
			IPRanges:         make([]parser.IPRange, 0, len(p.IpRanges)),
			IPv6Ranges:       make([]parser.IPv6Range, 0, len(p.Ipv6Ranges)),
			UserIDGroupPairs: make([]parser.UserIDGroupPair, 0, len(p.UserIdGroupPairs)),
			PrefixListIDs:    make([]parser.PrefixListID, 0, len(p.PrefixListIds)),
		}
		for _, r := range p.IpRanges {
			rule.IPRanges = append(rule.IPRanges, parser.IPRange{
				CidrIP:      aws.ToString(r.CidrIp),
				Description: aws.ToString(r.Description),
			})
		}
		for _, r := range p.Ipv6Ranges {
			rule.IPv6Ranges = append(rule.IPv6Ranges, parser.IPv6Range{
				CidrIPv6:    aws.ToString(r.CidrIpv6),
				Description: aws.ToString(r.Description),
			})
		}
		for _, pair := range p.UserIdGroupPairs {
			rule.UserIDGroupPairs = append(rule.UserIDGroupPairs, parser.UserIDGroupPair{
				GroupID:     aws.ToString(pair.GroupId),
				UserID:      aws.ToString(pair.UserId),
				VpcID:       aws.ToString(pair.VpcId),
				Description: aws.ToString(pair.Description),
			})
		}
		for _, pl := range p.PrefixListIds {
			rule.PrefixListIDs = append(rule.PrefixListIDs, parser.PrefixListID{
				PrefixListID: aws.ToString(pl.PrefixListId),
				Description:  aws.ToString(pl.Description),
			})
		}
		out = append(out, rule)
	}
	return out
}

func toInt(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
