package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/ou-network-go/internal/topology"
)

func cidrs(plan []PlannedSubnet) []string {
	result := make([]string, len(plan))
	for i, s := range plan {
		result[i] = s.CIDR
	}
	return result
}

func TestTiers(t *testing.T) {
	withEgress := Tiers(topology.Decision{PrivateSubnetMode: topology.ModeWithEgress})
	require.Len(t, withEgress, 3)
	assert.Equal(t, Tier{Name: "public", Type: SubnetPublic, CIDRMask: 19}, withEgress[0])
	assert.Equal(t, SubnetPrivateWithEgress, withEgress[1].Type)
	assert.Equal(t, 20, withEgress[1].CIDRMask)
	assert.Equal(t, Tier{Name: "isolated", Type: SubnetIsolated, CIDRMask: 21}, withEgress[2])

	isolated := Tiers(topology.Decision{PrivateSubnetMode: topology.ModeIsolated})
	assert.Equal(t, SubnetIsolated, isolated[1].Type)
}

func TestPlanSubnets_SingleAZ(t *testing.T) {
	plan, err := PlanSubnets("10.1.0.0/16", Tiers(topology.Decision{}), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.1.0.0/19", "10.1.32.0/20", "10.1.48.0/21"}, cidrs(plan))
	assert.Equal(t, TierPrivate, plan[1].Tier.Name)
	assert.Equal(t, 0, plan[2].AZIndex)
}

func TestPlanSubnets_ThreeAZs(t *testing.T) {
	plan, err := PlanSubnets("10.1.0.0/16", Tiers(topology.Decision{}), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"10.1.0.0/19", "10.1.32.0/19", "10.1.64.0/19",
		"10.1.96.0/20", "10.1.112.0/20", "10.1.128.0/20",
		"10.1.144.0/21", "10.1.152.0/21", "10.1.160.0/21",
	}, cidrs(plan))
	assert.Equal(t, 2, plan[5].AZIndex)
}

func TestPlanSubnets_Errors(t *testing.T) {
	tiers := Tiers(topology.Decision{})

	_, err := PlanSubnets("not-a-cidr", tiers, 1)
	assert.Error(t, err)

	_, err = PlanSubnets("10.1.0.0/16", tiers, 0)
	assert.Error(t, err)

	_, err = PlanSubnets("10.1.0.0/16", tiers, 5)
	assert.Error(t, err)

	_, err = PlanSubnets("10.1.0.0/20", tiers, 1)
	assert.Error(t, err)
}
