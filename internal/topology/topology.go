// Package topology derives the network shape of an account from its role in
// the Organizational Unit.
//
// The decision covers four things: how many availability zones the VPC spans,
// how many NAT gateways it runs, whether the private tier has its own egress
// path and which destination CIDR is routed to the shared Transit Gateway.
package topology

import "fmt"

// Role is an account's role in the OU.
type Role int

const (
	RoleShared Role = iota + 1
	RoleProd
	RoleDev
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleShared, RoleProd, RoleDev}

func (r Role) String() string {
	switch r {
	case RoleShared:
		return "shared"
	case RoleProd:
		return "prod"
	case RoleDev:
		return "dev"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// SubnetMode is the isolation level of the private subnet tier.
type SubnetMode string

const (
	// ModeWithEgress subnets route to a NAT gateway or the Transit Gateway.
	ModeWithEgress SubnetMode = "PRIVATE_WITH_EGRESS"
	// ModeIsolated subnets have no local internet path.
	ModeIsolated SubnetMode = "PRIVATE_ISOLATED"
)

// AnyIPv4 is the unrestricted destination CIDR.
const AnyIPv4 = "0.0.0.0/0"

// DefaultAZCount is used for every role unless prod overrides it.
const DefaultAZCount = 1

// Config is the input of a topology decision.
type Config struct {
	Role                     Role
	ForceOutboundThroughHost bool
	// MaxAzsInProd is nil when unset.
	MaxAzsInProd *int
}

// Decision is the derived network shape of one account.
type Decision struct {
	Role                  Role
	AZCount               int
	NATGatewayCount       int
	PrivateSubnetMode     SubnetMode
	EgressDestinationCIDR string
}

// Isolated reports whether the private tier is isolated.
func (d Decision) Isolated() bool {
	return d.PrivateSubnetMode == ModeIsolated
}

// DeriveAZCount returns the AZ count for role. Only prod honors maxAzsInProd;
// values below 1 are clamped to 1.
func DeriveAZCount(role Role, maxAzsInProd *int) int {
	if role == RoleProd && maxAzsInProd != nil {
		if *maxAzsInProd < 1 {
			return 1
		}
		return *maxAzsInProd
	}
	return DefaultAZCount
}

// DeriveNATGatewayCount returns 0 when egress is forced through the host
// network, one NAT per AZ in prod and a single NAT otherwise.
func DeriveNATGatewayCount(role Role, forceOutboundThroughHost bool, azCount int) int {
	if forceOutboundThroughHost {
		return 0
	}
	if role == RoleProd {
		return azCount
	}
	return 1
}

// DerivePrivateSubnetMode returns ModeIsolated only for non-shared accounts
// whose egress is forced through the host network.
func DerivePrivateSubnetMode(role Role, forceOutboundThroughHost bool) SubnetMode {
	if role == RoleShared || !forceOutboundThroughHost {
		return ModeWithEgress
	}
	return ModeIsolated
}

// DeriveEgressDestinationCIDR returns the destination routed to the Transit
// Gateway: everything when forced, otherwise only the host network.
func DeriveEgressDestinationCIDR(forceOutboundThroughHost bool, hostNetworkCIDR string) string {
	if forceOutboundThroughHost {
		return AnyIPv4
	}
	return hostNetworkCIDR
}

// Decide composes the derive functions into a Decision.
func Decide(cfg Config, hostNetworkCIDR string) Decision {
	azCount := DeriveAZCount(cfg.Role, cfg.MaxAzsInProd)
	return Decision{
		Role:                  cfg.Role,
		AZCount:               azCount,
		NATGatewayCount:       DeriveNATGatewayCount(cfg.Role, cfg.ForceOutboundThroughHost, azCount),
		PrivateSubnetMode:     DerivePrivateSubnetMode(cfg.Role, cfg.ForceOutboundThroughHost),
		EgressDestinationCIDR: DeriveEgressDestinationCIDR(cfg.ForceOutboundThroughHost, hostNetworkCIDR),
	}
}
