package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lex00/ou-network-go/internal/topology"
)

// AccountInfo describes one account of the OU.
type AccountInfo struct {
	AccountID string
	Region    string
	VPCCIDR   string
}

// OU is the set of accounts making up an Organizational Unit.
type OU struct {
	Name   string
	Shared AccountInfo
	Prod   AccountInfo
	Dev    AccountInfo
}

// Accounts returns the account IDs keyed by role.
func (o OU) Accounts() topology.Accounts {
	return topology.Accounts{
		Shared: o.Shared.AccountID,
		Prod:   o.Prod.AccountID,
		Dev:    o.Dev.AccountID,
	}
}

// Account returns the account configured for role.
func (o OU) Account(role topology.Role) AccountInfo {
	switch role {
	case topology.RoleShared:
		return o.Shared
	case topology.RoleProd:
		return o.Prod
	default:
		return o.Dev
	}
}

// VPCCIDR returns the VPC CIDR of accountID. An account outside the OU is a
// configuration error.
func (o OU) VPCCIDR(accountID string) (string, error) {
	role, err := topology.ResolveRole(accountID, o.Accounts())
	if err != nil {
		return "", err
	}
	return o.Account(role).VPCCIDR, nil
}

// Static VPC CIDRs per role.
const (
	SharedVPCCIDR = "10.0.0.0/16"
	ProdVPCCIDR   = "10.1.0.0/16"
	DevVPCCIDR    = "10.2.0.0/16"
)

// HostNetwork describes the centrally managed network the OU peers with.
type HostNetwork struct {
	AccountID string
	TgwID     string
	TgwCIDR   string
	TgwRegion string
}

// HostNetworks holds the host network of each supported region.
var HostNetworks = map[string]HostNetwork{
	"us-west-2": {
		AccountID: "662350212343",
		TgwID:     "tgw-0c488e5cbd4d589e5",
		TgwCIDR:   "172.16.0.0/24",
		TgwRegion: "us-west-2",
	},
}

// HostNetworkFor returns the host network serving region.
func HostNetworkFor(region string) (HostNetwork, error) {
	host, ok := HostNetworks[region]
	if !ok {
		supported := make([]string, 0, len(HostNetworks))
		for r := range HostNetworks {
			supported = append(supported, r)
		}
		sort.Strings(supported)
		return HostNetwork{}, &topology.ConfigError{
			Parameters: []string{EnvAWSRegion},
			Reason:     fmt.Sprintf("no host network in region %s (supported: %s)", region, strings.Join(supported, ", ")),
		}
	}
	return host, nil
}

// Network is the configuration of the ou-network app.
type Network struct {
	OU                       OU
	Region                   string
	ForceOutboundThroughHost bool
	MaxAzsInProd             *int
	FlowLogsRetentionDays    int
	FlowLogsKMSArn           string
	Host                     HostNetwork

	GitHubEndpoint       string
	GitHubOrgNames       []string
	GitHubTLSCertFile    string
	GitHubCertificatePEM string

	// Outputs of earlier deployment phases; empty until known.
	SharedTgwID           string
	SharedTgwRouteTableID string
	SharedVpcID           string
	AttachedToHost        bool
}

// TopologyConfig returns the decision input for role.
func (n *Network) TopologyConfig(role topology.Role) topology.Config {
	return topology.Config{
		Role:                     role,
		ForceOutboundThroughHost: n.ForceOutboundThroughHost,
		MaxAzsInProd:             n.MaxAzsInProd,
	}
}

// LoadNetwork reads the network configuration from getenv. Use os.Getenv
// after LoadEnvFile for the real environment.
func LoadNetwork(getenv Getenv) (*Network, error) {
	if getenv(EnvForceOutbound) == "" && getenv(EnvForceOutboundLegacy) != "" {
		legacy := getenv
		getenv = func(key string) string {
			if key == EnvForceOutbound {
				return legacy(EnvForceOutboundLegacy)
			}
			return legacy(key)
		}
	}

	if absent := missing(getenv, RequiredNetworkParameters); len(absent) > 0 {
		return nil, requiredError(RequiredNetworkParameters, absent)
	}

	region := getOr(getenv, EnvAWSRegion, DefaultRegion)
	host, err := HostNetworkFor(region)
	if err != nil {
		return nil, err
	}

	force, err := parseBool(EnvForceOutbound, getenv(EnvForceOutbound))
	if err != nil {
		return nil, err
	}

	cfg := &Network{
		OU: OU{
			Name:   strings.TrimSpace(getenv(EnvOUName)),
			Shared: AccountInfo{AccountID: strings.TrimSpace(getenv(EnvSharedAccountID)), Region: region, VPCCIDR: SharedVPCCIDR},
			Prod:   AccountInfo{AccountID: strings.TrimSpace(getenv(EnvProdAccountID)), Region: region, VPCCIDR: ProdVPCCIDR},
			Dev:    AccountInfo{AccountID: strings.TrimSpace(getenv(EnvDevAccountID)), Region: region, VPCCIDR: DevVPCCIDR},
		},
		Region:                   region,
		ForceOutboundThroughHost: force,
		FlowLogsRetentionDays:    DefaultFlowLogsRetention,
		FlowLogsKMSArn:           strings.TrimSpace(getenv(EnvFlowLogsKMSArn)),
		Host:                     host,
		GitHubEndpoint:           strings.TrimSpace(getenv(EnvGitHubEndpoint)),
		GitHubOrgNames:           SplitList(getenv(EnvGitHubOrgNames)),
		GitHubTLSCertFile:        strings.TrimSpace(getenv(EnvGitHubTLSCertFile)),
		SharedTgwID:              strings.TrimSpace(getenv(EnvSharedTgwID)),
		SharedTgwRouteTableID:    strings.TrimSpace(getenv(EnvSharedTgwRouteTableID)),
		SharedVpcID:              strings.TrimSpace(getenv(EnvSharedVpcID)),
	}

	if len(cfg.GitHubOrgNames) == 0 {
		return nil, &topology.ConfigError{
			Parameters: []string{EnvGitHubOrgNames},
			Reason:     "no organization names given",
		}
	}

	if raw := getenv(EnvMaxAzsInProd); strings.TrimSpace(raw) != "" {
		n, err := parsePositiveInt(EnvMaxAzsInProd, raw)
		if err != nil {
			return nil, err
		}
		cfg.MaxAzsInProd = &n
	}

	if raw := getenv(EnvFlowLogsRetentionDays); strings.TrimSpace(raw) != "" {
		n, err := parseRetentionDays(EnvFlowLogsRetentionDays, raw)
		if err != nil {
			return nil, err
		}
		cfg.FlowLogsRetentionDays = n
	}

	if raw := getenv(EnvAttachedToHost); strings.TrimSpace(raw) != "" {
		attached, err := parseBool(EnvAttachedToHost, raw)
		if err != nil {
			return nil, err
		}
		cfg.AttachedToHost = attached
	}

	if cfg.GitHubTLSCertFile != "" {
		pem, err := os.ReadFile(cfg.GitHubTLSCertFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", EnvGitHubTLSCertFile, err)
		}
		cfg.GitHubCertificatePEM = string(pem)
	}

	if _, err := topology.ResolveRole(cfg.OU.Shared.AccountID, cfg.OU.Accounts()); err != nil {
		return nil, err
	}
	if _, err := topology.ResolveRole(cfg.OU.Prod.AccountID, cfg.OU.Accounts()); err != nil {
		return nil, err
	}

	return cfg, nil
}
