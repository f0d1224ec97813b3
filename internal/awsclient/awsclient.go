// Package awsclient wraps the AWS SDK calls the CLIs make: caller identity,
// subnet discovery, export listing and template retrieval.
package awsclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// Clients holds the service clients built from one AWS configuration.
type Clients struct {
	Config         aws.Config
	STS            *sts.Client
	EC2            *ec2.Client
	CloudFormation *cloudformation.Client
	S3             *s3.Client
}

// Load resolves credentials from the default chain. Empty profile and region
// keep the values of the environment and shared config files.
func Load(ctx context.Context, profile, region string) (*Clients, error) {
	var optFns []func(*config.LoadOptions) error
	if profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, errors.New("no AWS region configured: set AWS_REGION or pass --region")
	}
	return &Clients{
		Config:         cfg,
		STS:            sts.NewFromConfig(cfg),
		EC2:            ec2.NewFromConfig(cfg),
		CloudFormation: cloudformation.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
	}, nil
}

// CallerIdentityAPI is the STS subset used to identify the deploying account.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// CallerAccount returns the account ID of the current credentials.
func CallerAccount(ctx context.Context, api CallerIdentityAPI) (string, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("resolving caller identity: %w", err)
	}
	account := aws.ToString(out.Account)
	if account == "" {
		return "", errors.New("caller identity has no account")
	}
	return account, nil
}

// PrivateTierTag is the tag the VPC stacks put on every subnet.
const PrivateTierTag = "SubnetTier"

// SubnetFinder looks up subnets with EC2 DescribeSubnets.
type SubnetFinder struct {
	EC2 ec2.DescribeSubnetsAPIClient
}

// PrivateSubnets returns the IDs of the private-tier subnets of vpcID, ordered
// by availability zone.
func (f SubnetFinder) PrivateSubnets(ctx context.Context, vpcID string) ([]string, error) {
	input := &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
			{Name: aws.String("tag:" + PrivateTierTag), Values: []string{"private"}},
		},
	}
	var subnets []ec2types.Subnet
	paginator := ec2.NewDescribeSubnetsPaginator(f.EC2, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing subnets of %s: %w", vpcID, err)
		}
		subnets = append(subnets, page.Subnets...)
	}
	sort.SliceStable(subnets, func(i, j int) bool {
		ai, aj := aws.ToString(subnets[i].AvailabilityZone), aws.ToString(subnets[j].AvailabilityZone)
		if ai != aj {
			return ai < aj
		}
		return aws.ToString(subnets[i].SubnetId) < aws.ToString(subnets[j].SubnetId)
	})
	ids := make([]string, 0, len(subnets))
	for _, s := range subnets {
		ids = append(ids, aws.ToString(s.SubnetId))
	}
	return ids, nil
}

// Export is a CloudFormation export live in a region.
type Export struct {
	Name  string
	Value string
	Stack string
}

// ListExports returns every export of the region, sorted by name.
func ListExports(ctx context.Context, api cloudformation.ListExportsAPIClient) ([]Export, error) {
	var result []Export
	paginator := cloudformation.NewListExportsPaginator(api, &cloudformation.ListExportsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing exports: %w", err)
		}
		for _, e := range page.Exports {
			result = append(result, Export{
				Name:  aws.ToString(e.Name),
				Value: aws.ToString(e.Value),
				Stack: StackNameFromID(aws.ToString(e.ExportingStackId)),
			})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ExportingStacks maps each export name to the stack publishing it.
func ExportingStacks(exports []Export) map[string]string {
	m := make(map[string]string, len(exports))
	for _, e := range exports {
		m[e.Name] = e.Stack
	}
	return m
}

// StackNameFromID extracts the stack name from a stack ARN
// (arn:aws:cloudformation:region:account:stack/NAME/uuid). Other values are
// returned unchanged.
func StackNameFromID(id string) string {
	_, rest, ok := strings.Cut(id, ":stack/")
	if !ok {
		return id
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// GetTemplateAPI is the CloudFormation subset used to read deployed templates.
type GetTemplateAPI interface {
	GetTemplate(ctx context.Context, params *cloudformation.GetTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error)
}

// ErrStackNotFound is returned when the stack has never been deployed.
var ErrStackNotFound = errors.New("stack does not exist")

// DeployedTemplate returns the original template body of a deployed stack.
func DeployedTemplate(ctx context.Context, api GetTemplateAPI, stackName string) ([]byte, error) {
	out, err := api.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(stackName),
		TemplateStage: cfntypes.TemplateStageOriginal,
	})
	if err != nil {
		if IsStackNotFound(err) {
			return nil, fmt.Errorf("%s: %w", stackName, ErrStackNotFound)
		}
		return nil, fmt.Errorf("getting template of %s: %w", stackName, err)
	}
	return []byte(aws.ToString(out.TemplateBody)), nil
}

// IsStackNotFound reports whether err is CloudFormation's validation error
// for a stack that does not exist.
func IsStackNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
