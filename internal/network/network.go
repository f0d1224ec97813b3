// Package network declares the OU network stacks: the shared Transit Gateway
// hub, one VPC per account and the GitHub Enterprise connection.
package network

import (
	"context"
	"fmt"

	"github.com/lex00/ou-network-go/internal/app"
	"github.com/lex00/ou-network-go/internal/config"
	"github.com/lex00/ou-network-go/internal/naming"
	"github.com/lex00/ou-network-go/internal/stack"
	"github.com/lex00/ou-network-go/internal/topology"
)

// Stack names.
const (
	SharedTgwStackName     = "SharedTgwStack"
	SharedVpcStackName     = "SharedVpcStack"
	ProdVpcStackName       = "ProdVpcStack"
	DevVpcStackName        = "DevVpcStack"
	GheConnectionStackName = "GheConnectionStack"
)

// SubnetLookup finds the private subnets of an existing VPC.
type SubnetLookup interface {
	PrivateSubnets(ctx context.Context, vpcID string) ([]string, error)
}

// Options carries the collaborators NewApp needs beyond configuration.
type Options struct {
	// Subnets resolves the shared VPC's private subnets for the GHE host.
	// Required when SHARED_VPC_ID is set.
	Subnets SubnetLookup
}

// NewApp declares every network stack for cfg. Stacks that depend on the
// outputs of an earlier deployment phase are skipped until those outputs are
// configured.
func NewApp(ctx context.Context, cfg *config.Network, opts Options) (*app.App, error) {
	a := app.New()
	names := naming.NewProducer(cfg.OU.Name)

	if err := SharedTgwStack(a, cfg, names, envFor(cfg.OU.Shared)); err != nil {
		return nil, err
	}

	vpcStacks := []struct {
		name string
		role topology.Role
	}{
		{SharedVpcStackName, topology.RoleShared},
		{ProdVpcStackName, topology.RoleProd},
		{DevVpcStackName, topology.RoleDev},
	}
	for _, v := range vpcStacks {
		if cfg.SharedTgwID == "" {
			a.Skip(v.name, config.EnvSharedTgwID+" is not set; deploy "+SharedTgwStackName+" first")
			continue
		}
		if err := VpcStack(a, v.name, cfg, names, envFor(cfg.OU.Account(v.role))); err != nil {
			return nil, err
		}
	}

	if cfg.SharedVpcID == "" {
		a.Skip(GheConnectionStackName, config.EnvSharedVpcID+" is not set; deploy "+SharedVpcStackName+" first")
		return a, nil
	}
	if opts.Subnets == nil {
		return nil, fmt.Errorf("%s: no subnet lookup configured for VPC %s", GheConnectionStackName, cfg.SharedVpcID)
	}
	if err := GheConnectionStack(ctx, a, cfg, names, envFor(cfg.OU.Shared), opts.Subnets); err != nil {
		return nil, err
	}
	return a, nil
}

func envFor(account config.AccountInfo) stack.Env {
	return stack.Env{Account: account.AccountID, Region: account.Region}
}
