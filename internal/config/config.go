// Package config loads the OU network settings from a .env file and the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/lex00/ou-network-go/internal/topology"
)

// Environment variable names.
const (
	EnvOUName                 = "OU_NAME"
	EnvSharedAccountID        = "SHARED_ACCOUNT_ID"
	EnvProdAccountID          = "PROD_ACCOUNT_ID"
	EnvDevAccountID           = "DEV_ACCOUNT_ID"
	EnvForceOutbound          = "FORCE_OUTBOUND_TRAFFIC_THROUGH_HOST_NETWORK"
	EnvForceOutboundLegacy    = "FORCE_OUTBOUND_TRAFFIC_THOUGH_HOST_NETWORK"
	EnvGitHubEndpoint         = "GITHUB_ENDPOINT"
	EnvGitHubOrgNames         = "GITHUB_ORG_NAMES"
	EnvGitHubTLSCertFile      = "GITHUB_TLS_CERT_FILE"
	EnvAWSRegion              = "AWS_REGION"
	EnvMaxAzsInProd           = "MAX_AZS_IN_PROD_ACCOUNT"
	EnvFlowLogsRetentionDays  = "VPC_FLOWLOGS_RETENTION_DAYS"
	EnvFlowLogsKMSArn         = "VPC_FLOWLOGS_KMS_ARN"
	EnvSharedTgwID            = "SHARED_TGW_ID"
	EnvSharedTgwRouteTableID  = "SHARED_TGW_RT_ID"
	EnvSharedVpcID            = "SHARED_VPC_ID"
	EnvAttachedToHost         = "ATTACHED_TO_HOST"
	EnvCredentialsAccountID   = "CREDENTIALS_ACCOUNT_ID"
	EnvGitHubRepository       = "GITHUB_REPOSITORY"
	EnvGitHubBranch           = "GITHUB_BRANCH"
	DefaultRegion             = "us-west-2"
	DefaultFlowLogsRetention  = 3
	DefaultPipelineRepository = "geekle-ghe-org/iam-permissions-pipeline"
	DefaultPipelineBranch     = "main"
	DefaultEnvFile            = ".env"
)

// RequiredNetworkParameters are the variables the network app cannot start without.
var RequiredNetworkParameters = []string{
	EnvOUName,
	EnvSharedAccountID,
	EnvProdAccountID,
	EnvDevAccountID,
	EnvForceOutbound,
	EnvGitHubEndpoint,
	EnvGitHubOrgNames,
}

// RequiredPipelineParameters are the variables the pipeline app cannot start without.
var RequiredPipelineParameters = []string{
	EnvSharedAccountID,
	EnvDevAccountID,
	EnvProdAccountID,
	EnvCredentialsAccountID,
}

// Getenv reads one variable. Tests substitute a map lookup.
type Getenv func(key string) string

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing default file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == DefaultEnvFile {
			return nil
		}
		return fmt.Errorf("reading env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ReadEnvFile parses path without touching the process environment.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parsing env file %s: %w", path, err)
	}
	return values, nil
}

func missing(getenv Getenv, names []string) []string {
	var result []string
	for _, name := range names {
		if strings.TrimSpace(getenv(name)) == "" {
			result = append(result, name)
		}
	}
	return result
}

func requiredError(required, absent []string) error {
	return &topology.ConfigError{
		Parameters: absent,
		Reason: fmt.Sprintf("following parameters are required: %s; run \"export %s=<value>\"",
			strings.Join(required, ", "), absent[0]),
	}
}

func parseBool(name, raw string) (bool, error) {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, &topology.ConfigError{
			Parameters: []string{name},
			Reason:     fmt.Sprintf("%q is not a boolean", raw),
		}
	}
	return value, nil
}

func parsePositiveInt(name, raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return 0, &topology.ConfigError{
			Parameters: []string{name},
			Reason:     fmt.Sprintf("%q is not a positive integer", raw),
		}
	}
	return value, nil
}

// LogRetentionDays are the values CloudWatch Logs accepts for RetentionInDays.
var LogRetentionDays = []int{1, 3, 5, 7, 14, 30, 60, 90, 120, 150, 180, 365, 400, 545, 731, 1096, 1827, 2192, 2557, 2922, 3288, 3653}

func parseRetentionDays(name, raw string) (int, error) {
	value, err := parsePositiveInt(name, raw)
	if err != nil {
		return 0, err
	}
	for _, allowed := range LogRetentionDays {
		if value == allowed {
			return value, nil
		}
	}
	return 0, &topology.ConfigError{
		Parameters: []string{name},
		Reason:     fmt.Sprintf("%d is not a CloudWatch Logs retention period (one of %v)", value, LogRetentionDays),
	}
}

func getOr(getenv Getenv, name, fallback string) string {
	if value := strings.TrimSpace(getenv(name)); value != "" {
		return value
	}
	return fallback
}

// SplitList splits a comma separated list, trimming entries and dropping
// empty ones.
func SplitList(raw string) []string {
	var result []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
