package network

import (
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/lex00/ou-network-go/internal/topology"
)

// Tier is one subnet group of the VPC.
type Tier struct {
	Name     string
	Type     SubnetType
	CIDRMask int
}

// SubnetType is the routing behavior of a tier.
type SubnetType string

const (
	SubnetPublic            SubnetType = "Public"
	SubnetPrivateWithEgress SubnetType = "PrivateWithEgress"
	SubnetIsolated          SubnetType = "Isolated"
)

// Tier names, also written to the SubnetTier tag.
const (
	TierPublic   = "public"
	TierPrivate  = "private"
	TierIsolated = "isolated"
)

// Tiers returns the three tiers of an account VPC for decision.
func Tiers(decision topology.Decision) []Tier {
	private := SubnetPrivateWithEgress
	if decision.Isolated() {
		private = SubnetIsolated
	}
	return []Tier{
		{Name: TierPublic, Type: SubnetPublic, CIDRMask: 19},
		{Name: TierPrivate, Type: private, CIDRMask: 20},
		{Name: TierIsolated, Type: SubnetIsolated, CIDRMask: 21},
	}
}

// PlannedSubnet is one subnet of the plan.
type PlannedSubnet struct {
	Tier    Tier
	AZIndex int
	CIDR    string
}

// PlanSubnets carves vpcCIDR into one subnet per tier and AZ. Subnets are
// allocated tier by tier, each tier taking the next free block.
func PlanSubnets(vpcCIDR string, tiers []Tier, azCount int) ([]PlannedSubnet, error) {
	_, vpcNet, err := net.ParseCIDR(vpcCIDR)
	if err != nil {
		return nil, fmt.Errorf("parsing VPC CIDR: %w", err)
	}
	if azCount < 1 {
		return nil, fmt.Errorf("AZ count must be at least 1, got %d", azCount)
	}
	vpcPrefix, _ := vpcNet.Mask.Size()

	var (
		plan     []PlannedSubnet
		networks []*net.IPNet
		previous *net.IPNet
	)
	for _, tier := range tiers {
		if tier.CIDRMask < vpcPrefix {
			return nil, fmt.Errorf("tier %s mask /%d is larger than VPC %s", tier.Name, tier.CIDRMask, vpcCIDR)
		}
		for az := 0; az < azCount; az++ {
			var next *net.IPNet
			if previous == nil {
				next, err = cidr.Subnet(vpcNet, tier.CIDRMask-vpcPrefix, 0)
				if err != nil {
					return nil, fmt.Errorf("allocating %s subnet: %w", tier.Name, err)
				}
			} else {
				var rollover bool
				next, rollover = cidr.NextSubnet(previous, tier.CIDRMask)
				if rollover || !vpcNet.Contains(next.IP) {
					return nil, fmt.Errorf("VPC %s has no room for %s subnet %d", vpcCIDR, tier.Name, az+1)
				}
			}
			networks = append(networks, next)
			plan = append(plan, PlannedSubnet{Tier: tier, AZIndex: az, CIDR: next.String()})
			previous = next
		}
	}

	if err := cidr.VerifyNoOverlap(networks, vpcNet); err != nil {
		return nil, fmt.Errorf("subnet plan for %s: %w", vpcCIDR, err)
	}
	return plan, nil
}
